package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcrun/internal/apiclient"
	"tcrun/internal/assertion"
	"tcrun/internal/executor"
	"tcrun/internal/template"
	"tcrun/internal/testcase"
)

// fakeAPI is an in-memory accounts service.
type fakeAPI struct {
	mu       sync.Mutex
	calls    atomic.Int32
	bodies   []map[string]any
	accounts map[string]map[string]any
	nextID   int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{accounts: map[string]map[string]any{}, nextID: 123}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			api.calls.Add(1)
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-1"})
	})
	r.Post("/accounts", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok-1" && req.Header.Get("Authorization") != "Bearer cfg" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		data, _ := io.ReadAll(req.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)

		api.mu.Lock()
		api.bodies = append(api.bodies, body)
		id := strconv.Itoa(api.nextID)
		api.nextID++
		account := map[string]any{"id": id, "status": "ACTIVE", "name": body["name"]}
		api.accounts[id] = account
		api.mu.Unlock()

		writeJSON(w, http.StatusCreated, account)
	})
	r.Get("/accounts/{id}", func(w http.ResponseWriter, req *http.Request) {
		api.mu.Lock()
		account, ok := api.accounts[chi.URLParam(req, "id")]
		api.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, account)
	})
	r.Delete("/accounts/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return api, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type workspace struct {
	root      string
	cases     string
	requests  string
	bundles   string
	dbPath    string
	serverURL string
}

func newWorkspace(t *testing.T, serverURL string) *workspace {
	t.Helper()
	root := t.TempDir()
	ws := &workspace{
		root:      root,
		cases:     filepath.Join(root, "testcases"),
		requests:  filepath.Join(root, "requests"),
		bundles:   filepath.Join(root, "assertions"),
		dbPath:    filepath.Join(root, "db-validation.json"),
		serverURL: serverURL,
	}
	for _, d := range []string{ws.cases, ws.requests, ws.bundles} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
	ws.write(t, ws.requests, "account.json", `{"name":"${genName}"}`)
	return ws
}

func (ws *workspace) write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func (ws *workspace) runner(reporter Reporter, token string) *Runner {
	return New(Options{
		TestCaseDir:        ws.cases,
		RequestResourceDir: ws.requests,
		BundleDir:          ws.bundles,
		DBValidationPath:   ws.dbPath,
		Client:             apiclient.New(apiclient.Options{BaseURL: ws.serverURL, Token: token}),
		Reporter:           reporter,
	})
}

const createAccount = `[
  {
    "testName": "createAccount",
    "method": "POST",
    "url": "/accounts",
    "request": {"requestResource": "account.json"},
    "verify": {"responseAssertions": {"$.status": "ACTIVE"}},
    "postProcessor": {"accountId": "$.id"}
  }
]`

func TestRun_CreateAccountScenario(t *testing.T) {
	api, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)
	ws.write(t, ws.cases, "accounts.json", createAccount)

	r := ws.runner(nil, "cfg")
	require.NoError(t, r.Load("accounts.json"))

	res, err := r.Run(context.Background(), "createAccount")
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, res.Status)
	assert.Equal(t, http.StatusCreated, res.HTTPStatus)

	require.Len(t, api.bodies, 1)
	assert.Regexp(t, `^tc-[A-Za-z]{10}$`, api.bodies[0]["name"], "the fixture's ${genName} is resolved through the helper")

	id, ok := r.Variables().Get("accountId")
	require.True(t, ok)
	assert.Equal(t, "123", id)
	assert.Equal(t, map[string]string{"accountId": "123"}, res.Variables)
}

func TestRun_MissingTestCaseMakesNoCalls(t *testing.T) {
	api, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)
	ws.write(t, ws.cases, "accounts.json", createAccount)

	r := ws.runner(nil, "cfg")
	require.NoError(t, r.Load("accounts.json"))

	res, err := r.Run(context.Background(), "doesNotExist")
	require.Error(t, err)
	assert.True(t, testcase.IsNotFound(err))
	assert.Equal(t, StatusError, res.Status)
	assert.Zero(t, api.calls.Load())
}

func TestRun_VariablesFlowBetweenTestCases(t *testing.T) {
	_, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)
	ws.write(t, ws.cases, "flow.json", `[
	  {
	    "testName": "create",
	    "method": "POST",
	    "url": "/accounts",
	    "request": {"requestResource": "account.json", "requestModificationBody": {"$.name": "alice"}},
	    "verify": {"httpStatus": 201},
	    "postProcessor": {"accountId": "$.id", "expectedName": "alice"}
	  },
	  {
	    "testName": "fetch",
	    "method": "GET",
	    "url": "/accounts/{id}",
	    "pathParams": {"id": "${accountId}"},
	    "verify": {"httpStatus": 200, "responseAssertions": {"$.id": "${accountId}", "$.name": "${expectedName}"}}
	  },
	  {
	    "testName": "remove",
	    "method": "DELETE",
	    "url": "/accounts/${accountId}",
	    "verify": {"httpStatus": 204}
	  }
	]`)

	r := ws.runner(nil, "cfg")
	require.NoError(t, r.Load("flow.json"))

	fr := r.RunAll(context.Background())
	require.Len(t, fr.Cases, 3)
	for _, c := range fr.Cases {
		assert.Equal(t, StatusPassed, c.Status, "%s: %s", c.TestName, c.Error)
	}
	assert.Equal(t, 3, fr.Passed)
	assert.Equal(t, "/accounts/123", fr.Cases[2].URL)
}

func TestRun_AssertionFailureIsFailed(t *testing.T) {
	_, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)
	ws.write(t, ws.cases, "fail.json", `[
	  {"testName":"wrongStatus","method":"POST","url":"/accounts","request":{"requestResource":"account.json"},
	   "verify":{"responseAssertions":{"$.status":"CLOSED"}},"postProcessor":{"never":"$.id"}}
	]`)

	r := ws.runner(nil, "cfg")
	require.NoError(t, r.Load("fail.json"))

	res, err := r.Run(context.Background(), "wrongStatus")
	require.Error(t, err)
	assert.True(t, assertion.IsFailed(err))
	assert.Equal(t, StatusFailed, res.Status)

	_, bound := r.Variables().Get("never")
	assert.False(t, bound, "post-processor does not run after a failed assertion")
}

func TestRun_ErrorsAreClassified(t *testing.T) {
	_, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)
	ws.write(t, ws.cases, "errors.json", `[
	  {"testName":"badMethod","method":"TRACE","url":"/accounts"},
	  {"testName":"unbound","method":"GET","url":"/accounts/${nobody}"},
	  {"testName":"missingPath","method":"POST","url":"/accounts","request":{"requestResource":"account.json"},
	   "postProcessor":{"x":"$.does.not.exist"}}
	]`)

	r := ws.runner(nil, "cfg")
	require.NoError(t, r.Load("errors.json"))

	res, err := r.Run(context.Background(), "badMethod")
	assert.True(t, executor.IsUnsupportedMethod(err))
	assert.Equal(t, StatusError, res.Status)

	_, err = r.Run(context.Background(), "unbound")
	assert.True(t, template.IsResolutionError(err))

	_, err = r.Run(context.Background(), "missingPath")
	var pe *PostProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "x", pe.Variable)
}

func TestRun_RecursivePrerequisites(t *testing.T) {
	api, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)

	ws.write(t, ws.cases, "login.json", `{
	  "testName": "login", "method": "POST", "url": "/login",
	  "verify": {"responseAssertions": {"$.token": "this would fail"}},
	  "postProcessor": {"token": "$.token"}
	}`)
	ws.write(t, ws.cases, "create.json", `{
	  "testName": "create", "method": "POST", "url": "/accounts", "auth": "${token}",
	  "prerequisite": ["login.json"],
	  "request": {"requestResource": "account.json"},
	  "postProcessor": {"accountId": "$.id"}
	}`)
	ws.write(t, ws.cases, "main.json", `[
	  {"testName": "getAccount", "method": "GET", "url": "/accounts/${accountId}",
	   "prerequisite": ["create.json"],
	   "verify": {"responseAssertions": {"$.id": "${accountId}"}}}
	]`)

	// no configured token: the account call only succeeds with the login token
	r := ws.runner(nil, "")
	require.NoError(t, r.Load("main.json"))

	res, err := r.Run(context.Background(), "getAccount")
	require.NoError(t, err)
	assert.Equal(t, []string{"login.json", "create.json"}, res.Prerequisites)
	assert.EqualValues(t, 3, api.calls.Load())

	token, _ := r.Variables().Get("token")
	assert.Equal(t, "tok-1", token)
}

func TestRun_PrerequisiteCycleFailsBeforeCalls(t *testing.T) {
	api, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)

	ws.write(t, ws.cases, "a.json", `{"testName":"a","method":"POST","url":"/login","prerequisite":["b.json"]}`)
	ws.write(t, ws.cases, "b.json", `{"testName":"b","method":"POST","url":"/login","prerequisite":["a.json"]}`)
	ws.write(t, ws.cases, "main.json", `[{"testName":"main","method":"GET","url":"/accounts/1","prerequisite":["a.json"]}]`)

	r := ws.runner(nil, "cfg")
	require.NoError(t, r.Load("main.json"))

	_, err := r.Run(context.Background(), "main")
	var ce *PrerequisiteCycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"main", "a.json", "b.json", "a.json"}, ce.Chain)
	assert.Zero(t, api.calls.Load())
}

func TestRunAll_FailFast(t *testing.T) {
	_, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)
	ws.write(t, ws.cases, "ff.json", `[
	  {"testName":"first","method":"GET","url":"/accounts/none","verify":{"httpStatus":200}},
	  {"testName":"second","method":"GET","url":"/accounts/none"}
	]`)

	r := New(Options{
		TestCaseDir: ws.cases,
		Client:      apiclient.New(apiclient.Options{BaseURL: srv.URL}),
		FailFast:    true,
	})
	require.NoError(t, r.Load("ff.json"))

	fr := r.RunAll(context.Background())
	require.Len(t, fr.Cases, 1)
	assert.Equal(t, 1, fr.Failed)
}

type recordingReporter struct {
	nopReporter
	mu     sync.Mutex
	cases  []CaseResult
	files  []FileResult
	suite  *SuiteResult
	starts []string
}

func (r *recordingReporter) ReportCaseStart(_, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, name)
}

func (r *recordingReporter) ReportCaseResult(c CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases = append(r.cases, c)
}

func (r *recordingReporter) ReportFileResult(f FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, f)
}

func (r *recordingReporter) ReportSuiteResult(s SuiteResult) {
	r.suite = &s
}

func TestSuite_IndependentContexts(t *testing.T) {
	_, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)
	ws.write(t, ws.cases, "one.json", createAccount)
	ws.write(t, ws.cases, "two.json", `[
	  {"testName":"usesOtherFile","method":"GET","url":"/accounts/${accountId}"}
	]`)
	ws.write(t, ws.cases, "broken.json", `{not json`)

	for _, parallel := range []int{1, 3} {
		rep := &recordingReporter{}
		suite := NewSuite(func() *Runner { return ws.runner(rep, "cfg") }, rep, parallel)

		result := suite.Run(context.Background(), []string{"one.json", "two.json", "broken.json"})

		require.Len(t, result.Files, 3)
		assert.Equal(t, "one.json", filepath.Base(result.Files[0].File))
		assert.Equal(t, 1, result.Files[0].Passed)
		// variables do not leak from one document into another
		assert.Equal(t, 1, result.Files[1].Errored)
		assert.NotEmpty(t, result.Files[2].Error)

		assert.Equal(t, 2, result.Total)
		assert.False(t, result.Success())
		require.NotNil(t, rep.suite)
		assert.Len(t, rep.files, 3)
		assert.Len(t, rep.cases, 2)
	}
}

func TestSuite_OnlyRunsSelectedTestCases(t *testing.T) {
	api, srv := newFakeAPI(t)
	ws := newWorkspace(t, srv.URL)
	ws.write(t, ws.cases, "two.json", `[
	  {"testName":"first","method":"POST","url":"/login","verify":{"httpStatus":200}},
	  {"testName":"second","method":"POST","url":"/login","verify":{"httpStatus":200}}
	]`)

	suite := NewSuite(func() *Runner { return ws.runner(nil, "cfg") }, nil, 1).Only("second", "absent")
	result := suite.Run(context.Background(), []string{"two.json"})

	require.Len(t, result.Files, 1)
	cases := result.Files[0].Cases
	require.Len(t, cases, 2)
	assert.Equal(t, "second", cases[0].TestName)
	assert.Equal(t, StatusPassed, cases[0].Status)
	assert.Equal(t, "absent", cases[1].TestName)
	assert.Equal(t, StatusError, cases[1].Status)
	assert.Equal(t, int32(1), api.calls.Load())
}

package testcase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcrun/internal/resource"
	"tcrun/internal/template"
	"tcrun/internal/variables"
)

func setup(t *testing.T, files map[string]string) (*Repository, *variables.Context) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	vars := variables.NewContext()
	loader := resource.NewLoader(dir, template.New(vars, nil))
	return NewRepository(loader), vars
}

const casesJSON = `[
  {
    "testName": "createAccount",
    "method": "POST",
    "url": "/accounts",
    "request": {
      "requestResource": "account.json",
      "requestModificationBody": {"$.name": "alice", "$.age": 30}
    },
    "verify": {
      "httpStatus": 201,
      "responseAssertions": {"$.status": "ACTIVE", "$.verified": true},
      "dbAssertions": {"accountRow": ["ACTIVE", 1]}
    },
    "postProcessor": {"accountId": "$.id", "source": "literal"}
  },
  {
    "testName": "getAccount",
    "method": "GET",
    "url": "/accounts/${accountId}"
  }
]`

func TestRepository_LoadAndGet(t *testing.T) {
	repo, vars := setup(t, map[string]string{"cases.json": casesJSON})
	require.NoError(t, repo.Load("cases.json"))

	assert.Equal(t, []string{"createAccount", "getAccount"}, repo.Names())
	assert.True(t, repo.Has("getAccount"))

	tc, err := repo.Get("createAccount")
	require.NoError(t, err)
	assert.Equal(t, MethodPost, tc.Method)
	assert.Equal(t, []Entry{{"$.name", "alice"}, {"$.age", "30"}}, Entries(tc.Request.RequestModificationBody))
	assert.Equal(t, []Entry{{"$.status", "ACTIVE"}, {"$.verified", "true"}}, Entries(tc.Verify.ResponseAssertions))
	assert.Equal(t, []Entry{{"accountId", "$.id"}, {"source", "literal"}}, Entries(tc.PostProcessor))
	assert.Equal(t, 201, tc.Verify.HTTPStatus)

	expected, ok := tc.Verify.DBAssertions.Get("accountRow")
	require.True(t, ok)
	assert.Equal(t, []Scalar{Text("ACTIVE"), Text("1")}, expected)

	// placeholders resolve at Get time
	_, err = repo.Get("getAccount")
	assert.True(t, template.IsResolutionError(err))

	vars.Set("accountId", "123")
	tc, err = repo.Get("getAccount")
	require.NoError(t, err)
	assert.Equal(t, "/accounts/123", tc.URL)
}

func TestRepository_GetMissing(t *testing.T) {
	repo, _ := setup(t, map[string]string{"cases.json": casesJSON})
	require.NoError(t, repo.Load("cases.json"))

	_, err := repo.Get("doesNotExist")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "cases.json")
}

func TestRepository_Duplicate(t *testing.T) {
	repo, _ := setup(t, map[string]string{"dup.json": `[
		{"testName":"a","method":"GET","url":"/x"},
		{"testName":"a","method":"GET","url":"/y"}
	]`})

	err := repo.Load("dup.json")
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
}

func TestRepository_LoadErrors(t *testing.T) {
	repo, _ := setup(t, map[string]string{
		"object.json":   `{"testName":"a"}`,
		"noname.json":   `[{"method":"GET"}]`,
		"malformed.json": `[{"testName":`,
	})

	for _, name := range []string{"object.json", "noname.json", "malformed.json", "missing.json"} {
		t.Run(name, func(t *testing.T) {
			err := repo.Load(name)
			require.Error(t, err)
			assert.True(t, resource.IsLoadError(err))
		})
	}
}

func TestRepository_YAML(t *testing.T) {
	repo, vars := setup(t, map[string]string{"cases.yaml": `
- testName: listAccounts
  method: GET
  url: /accounts
  queryParams:
    owner: ${owner}
    limit: 10
  verify:
    responseAssertions:
      $.count: 2
      $.owner: ${owner}
- testName: deleteAccount
  method: DELETE
  url: /accounts/{id}
  pathParams:
    id: "42"
`})
	vars.Set("owner", "bob")

	require.NoError(t, repo.Load("cases.yaml"))
	assert.Equal(t, []string{"listAccounts", "deleteAccount"}, repo.Names())

	tc, err := repo.Get("listAccounts")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"owner", "bob"}, {"limit", "10"}}, Entries(tc.QueryParams))
	assert.Equal(t, []Entry{{"$.count", "2"}, {"$.owner", "bob"}}, Entries(tc.Verify.ResponseAssertions))

	tc, err = repo.GetRaw("deleteAccount")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"id", "42"}}, Entries(tc.PathParams))
}

func TestRepository_LoadSingle(t *testing.T) {
	repo, vars := setup(t, map[string]string{
		"prereq.json": `{"testName":"login","method":"POST","url":"/login/${user}"}`,
	})
	vars.Set("user", "u1")

	tc, err := repo.LoadSingle("prereq.json")
	require.NoError(t, err)
	assert.Equal(t, "login", tc.TestName)
	assert.Equal(t, "/login/u1", tc.URL)
}

func TestScalar_KeepsNullDistinctFromEmpty(t *testing.T) {
	repo, _ := setup(t, map[string]string{
		"cases.json": `[{"testName":"a","method":"GET","url":"/x","verify":{"dbAssertions":{"row":[null,""]}}}]`,
		"cases.yaml": "- testName: b\n  method: GET\n  url: /x\n  verify:\n    dbAssertions:\n      row: [~, \"\"]\n",
	})
	require.NoError(t, repo.Load("cases.json"))
	require.NoError(t, repo.Load("cases.yaml"))

	for _, name := range []string{"a", "b"} {
		tc, err := repo.Get(name)
		require.NoError(t, err)
		row, ok := tc.Verify.DBAssertions.Get("row")
		require.True(t, ok)
		assert.Equal(t, []Scalar{NullScalar, Text("")}, row, name)
	}
	assert.Equal(t, "null", NullScalar.String())
}

func TestScalar_RejectsObjects(t *testing.T) {
	repo, _ := setup(t, map[string]string{"bad.json": `[
		{"testName":"a","method":"GET","url":"/x","postProcessor":{"v":{"nested":true}}}
	]`})
	require.NoError(t, repo.Load("bad.json"))

	_, err := repo.Get("a")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := &TestCase{TestName: "a", URL: "/x", Method: "get"}
	assert.NoError(t, valid.Validate())

	invalid := &TestCase{
		TestName: "b",
		Method:   "TRACE",
		Request:  &Request{RequestModificationBody: NewMapping("$..x", "1")},
		Verify:   &Verify{ResponseAssertions: NewMapping("status", "x"), HTTPStatus: 42},
	}
	err := invalid.Validate()
	require.Error(t, err)
	for _, want := range []string{"url is required", "TRACE", "requestResource", "recursive descent", "must start with $", "httpStatus"} {
		assert.Contains(t, err.Error(), want)
	}
}

// Package runner executes test cases: prerequisites first, then the request,
// the call, the assertions and finally the post-processor.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tcrun/internal/apiclient"
	"tcrun/internal/assertion"
	"tcrun/internal/dbclient"
	"tcrun/internal/executor"
	"tcrun/internal/flatten"
	"tcrun/internal/request"
	"tcrun/internal/resource"
	"tcrun/internal/template"
	"tcrun/internal/testcase"
	"tcrun/internal/variables"
	"tcrun/pkg/logging"
)

// Options configures a Runner.
type Options struct {
	TestCaseDir        string
	RequestResourceDir string
	// BundleDir holds default assertion bundles.
	BundleDir        string
	DBValidationPath string

	Client apiclient.Client
	DB     dbclient.Querier
	// Types maps fixture and response type names to decoders. May be nil.
	Types *resource.TypeRegistry
	// Helpers is the template helper registry. Nil means the built-ins.
	Helpers *template.Registry
	// Variables is the context shared by every test case. Nil means a fresh one.
	Variables *variables.Context
	Reporter  Reporter
	// FailFast stops RunAll at the first test case that does not pass.
	FailFast bool
}

// Runner runs the test cases of one document against one variable context.
// Runs are serialized so prerequisite chains never interleave.
type Runner struct {
	vars       *variables.Context
	engine     *template.Engine
	repo       *testcase.Repository
	builder    *request.Builder
	executor   *executor.Executor
	assertions *assertion.Engine
	reporter   Reporter
	failFast   bool

	mu sync.Mutex
}

// New creates a runner.
func New(opts Options) *Runner {
	vars := opts.Variables
	if vars == nil {
		vars = variables.NewContext()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}

	engine := template.New(vars, opts.Helpers)

	return &Runner{
		vars:     vars,
		engine:   engine,
		repo:     testcase.NewRepository(resource.NewLoader(opts.TestCaseDir, engine)),
		builder:  request.NewBuilder(resource.NewLoader(opts.RequestResourceDir, engine), opts.Types),
		executor: executor.New(opts.Client, opts.Types),
		assertions: assertion.New(assertion.Options{
			BundleDir:        opts.BundleDir,
			DBValidationPath: opts.DBValidationPath,
			Resolver:         engine,
			DB:               opts.DB,
		}),
		reporter: reporter,
		failFast: opts.FailFast,
	}
}

// Load indexes the test cases of file, relative to the test-case directory.
func (r *Runner) Load(file string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.Load(file)
}

// Variables returns the runner's variable context.
func (r *Runner) Variables() *variables.Context {
	return r.vars
}

// Repository returns the loaded test cases.
func (r *Runner) Repository() *testcase.Repository {
	return r.repo
}

// Run runs the test case called testName with its prerequisites and
// assertions. The returned error is the same as result.Err.
func (r *Runner) Run(ctx context.Context, testName string) (*CaseResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	source := r.repo.Source()
	r.reporter.ReportCaseStart(source, testName)

	result := &CaseResult{File: source, TestName: testName, Start: time.Now()}
	err := r.run(ctx, testName, result)
	result.End = time.Now()
	result.Duration = result.End.Sub(result.Start)
	result.Status = classify(err)
	if err != nil {
		result.Err = err
		result.Error = err.Error()
		logging.Error("Runner", err, "Test case %s %s", testName, result.Status)
	} else {
		logging.Info("Runner", "Test case %s passed in %s", testName, result.Duration)
	}

	r.reporter.ReportCaseResult(*result)
	return result, err
}

// RunAll runs every loaded test case in document order. A failing test case
// does not stop the others unless FailFast is set.
func (r *Runner) RunAll(ctx context.Context) *FileResult {
	return r.RunSelected(ctx, r.repo.Names())
}

// RunSelected runs the named test cases in the given order. A name the
// document does not define yields an ERROR result.
func (r *Runner) RunSelected(ctx context.Context, names []string) *FileResult {
	fr := &FileResult{File: r.repo.Source(), Start: time.Now()}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			fr.Error = err.Error()
			break
		}
		res, _ := r.Run(ctx, name)
		fr.add(*res)
		if r.failFast && res.Status != StatusPassed {
			break
		}
	}

	fr.End = time.Now()
	fr.Duration = fr.End.Sub(fr.Start)
	r.reporter.ReportFileResult(*fr)
	return fr
}

func (r *Runner) run(ctx context.Context, testName string, result *CaseResult) error {
	raw, err := r.repo.GetRaw(testName)
	if err != nil {
		return err
	}

	plan, err := r.planPrerequisites(testName, raw.Prerequisite)
	if err != nil {
		return err
	}
	for _, ref := range plan {
		if err := r.runPrerequisite(ctx, ref); err != nil {
			return fmt.Errorf("prerequisite %s of %s: %w", ref, testName, err)
		}
		result.Prerequisites = append(result.Prerequisites, ref)
	}

	tc, err := r.repo.Get(testName)
	if err != nil {
		return err
	}
	result.Method, result.URL = string(tc.Method), tc.URL

	out, err := r.execute(ctx, tc)
	if out != nil {
		result.HTTPStatus = out.Status
	}
	if err != nil {
		return err
	}

	if err := r.assertions.Verify(ctx, tc.Verify, assertion.Subject{
		Status:   out.Status,
		Document: out.Document,
		Flat:     out.flat,
	}); err != nil {
		return fmt.Errorf("test case %s: %w", testName, err)
	}

	result.Variables, err = r.applyPostProcessor(tc.PostProcessor, out)
	return err
}

// outcome is an executed call with its flattened view.
type outcome struct {
	*executor.Result
	flat flatten.Map
}

// execute builds the payload and performs the call, without assertions.
func (r *Runner) execute(ctx context.Context, tc *testcase.TestCase) (*outcome, error) {
	payload, err := r.builder.Build(tc.Request)
	if err != nil {
		return nil, fmt.Errorf("test case %s: %w", tc.TestName, err)
	}

	var responseType string
	if tc.Verify != nil {
		responseType = tc.Verify.ResponseResourceType
	}

	res, err := r.executor.Execute(ctx, executor.Call{
		Method:       tc.Method,
		URL:          tc.URL,
		Payload:      payload,
		ResponseType: responseType,
		QueryParams:  params(tc.QueryParams),
		PathParams:   params(tc.PathParams),
		Token:        tc.Auth,
	})
	if err != nil {
		return nil, fmt.Errorf("test case %s: %w", tc.TestName, err)
	}
	return &outcome{Result: res, flat: flatten.Document(res.Document)}, nil
}

func params(m *testcase.Mapping) []apiclient.Param {
	entries := testcase.Entries(m)
	if len(entries) == 0 {
		return nil
	}
	out := make([]apiclient.Param, len(entries))
	for i, e := range entries {
		out[i] = apiclient.Param{Name: e.Key, Value: e.Value}
	}
	return out
}

func classify(err error) Status {
	switch {
	case err == nil:
		return StatusPassed
	case assertion.IsFailed(err):
		return StatusFailed
	default:
		return StatusError
	}
}

package runner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tcrun/pkg/logging"
)

// RunnerFactory creates a runner with a fresh variable context.
type RunnerFactory func() *Runner

// Suite runs several documents, each as an independent run with its own
// variable context.
type Suite struct {
	newRunner RunnerFactory
	reporter  Reporter
	parallel  int
	only      []string
}

// NewSuite creates a suite. parallel <= 1 runs documents one after another.
func NewSuite(newRunner RunnerFactory, reporter Reporter, parallel int) *Suite {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Suite{newRunner: newRunner, reporter: reporter, parallel: parallel}
}

// Only restricts every document to the named test cases.
func (s *Suite) Only(names ...string) *Suite {
	s.only = names
	return s
}

// Run runs every test case of every file. Within a document test cases run
// sequentially in document order; documents may run concurrently.
func (s *Suite) Run(ctx context.Context, files []string) *SuiteResult {
	result := &SuiteResult{Start: time.Now(), Files: make([]FileResult, len(files))}
	s.reporter.ReportStart(files)

	if s.parallel <= 1 || len(files) <= 1 {
		s.reporter.SetParallelMode(false)
		for i, file := range files {
			result.Files[i] = s.runFile(ctx, file)
		}
	} else {
		s.reporter.SetParallelMode(true)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.parallel)
		var mu sync.Mutex
		for i, file := range files {
			g.Go(func() error {
				fr := s.runFile(gctx, file)
				mu.Lock()
				result.Files[i] = fr
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, f := range result.Files {
		result.Total += len(f.Cases)
		result.Passed += f.Passed
		result.Failed += f.Failed
		result.Errored += f.Errored
	}
	result.End = time.Now()
	result.Duration = result.End.Sub(result.Start)

	s.reporter.ReportSuiteResult(*result)
	return result
}

func (s *Suite) runFile(ctx context.Context, file string) FileResult {
	r := s.newRunner()
	if err := r.Load(file); err != nil {
		logging.Error("Runner", err, "Cannot load %s", file)
		now := time.Now()
		fr := FileResult{File: file, Start: now, End: now, Error: err.Error()}
		s.reporter.ReportFileResult(fr)
		return fr
	}
	if len(s.only) > 0 {
		return *r.RunSelected(ctx, s.only)
	}
	return *r.RunAll(ctx)
}

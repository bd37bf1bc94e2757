package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tcrun/internal/config"
	"tcrun/internal/report"
	"tcrun/internal/runner"
	"tcrun/internal/testcase"
	"tcrun/internal/watch"
	"tcrun/pkg/logging"
)

type runOptions struct {
	tests        []string
	parallel     int
	failFast     bool
	verbose      bool
	progress     bool
	watch        bool
	timeout      time.Duration
	reportFormat string
	reportPath   string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Run test-case documents",
		Long: `Run the test cases of one or more documents. Files are relative to the
test-case directory; without arguments every test-case document in that
directory is run.

Each document runs with its own variable context. Within a document test
cases run in order, so later test cases can use variables captured by
earlier ones.

Examples:
  tcrun run                                   # every document
  tcrun run accounts.json                     # one document
  tcrun run accounts.json --test createAccount
  tcrun run --parallel 4 --report-format xlsx --report-path out/report.xlsx
  tcrun run --watch                           # re-run when documents change`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.parallel < 1 || opts.parallel > 50 {
				return fmt.Errorf("parallel workers must be between 1 and 50, got %d", opts.parallel)
			}
			if len(opts.tests) > 0 && len(args) != 1 {
				return fmt.Errorf("--test needs exactly one document")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.tests, "test", "t", nil, "Run only the named test cases")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 1, "Number of documents run concurrently (1-50)")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "Stop a document at its first failing test case")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show calls, prerequisites and captured variables")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Show a spinner while a test case runs")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-run when documents or fixtures change")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Overall run timeout (0 disables it)")
	cmd.Flags().StringVar(&opts.reportFormat, "report-format", "", "Write a report file (json, xlsx)")
	cmd.Flags().StringVar(&opts.reportPath, "report-path", "", "Path of the report file")

	_ = cmd.RegisterFlagCompletionFunc("report-format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return report.Formats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTests(cmd *cobra.Command, args []string, opts *runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := resolveFiles(cfg, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  No test-case documents found in %s\n", cfg.TestCaseDir)
		return nil
	}

	env, err := runner.NewEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	format, path := cfg.Report.Format, cfg.Report.Path
	if opts.reportFormat != "" {
		format = opts.reportFormat
	}
	if opts.reportPath != "" {
		path = opts.reportPath
	}
	if format != "" && path == "" {
		return fmt.Errorf("--report-path is required with --report-format")
	}

	console := report.NewConsole(cmd.OutOrStdout(), report.ConsoleOptions{
		Verbose:  opts.verbose,
		Progress: opts.progress,
		Format:   format,
		Path:     path,
	})

	runOnce := func(ctx context.Context) *runner.SuiteResult {
		if opts.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.timeout)
			defer cancel()
		}
		suite := runner.NewSuite(env.Factory(console, opts.failFast), console, opts.parallel)
		if len(opts.tests) > 0 {
			suite.Only(opts.tests...)
		}
		return suite.Run(ctx, files)
	}

	result := runOnce(ctx)
	if !opts.watch {
		if !result.Success() {
			return &TestFailureError{Failed: result.Failed, Errored: result.Errored}
		}
		return nil
	}

	return watchAndRerun(ctx, cmd, runOnce)
}

// watchAndRerun repeats the run whenever a document or fixture changes,
// until ctx is cancelled.
func watchAndRerun(ctx context.Context, cmd *cobra.Command, runOnce func(context.Context) *runner.SuiteResult) error {
	w := watch.New(watch.DefaultDebounce, watchDirs(cfg)...)
	changes := make(chan watch.Batch, 1)
	if err := w.Start(ctx, changes); err != nil {
		return fmt.Errorf("failed to watch for changes: %w", err)
	}
	defer w.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n👀 Watching for changes (Ctrl+C to stop)\n")
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-changes:
			fmt.Fprintf(out, "\n🔄 %d file(s) changed, re-running\n", len(batch.Changes))
			for _, p := range batch.Paths() {
				logging.Debug("Watch", "Changed: %s", p)
			}
			runOnce(ctx)
		}
	}
}

// resolveFiles returns args, or every document in the test-case directory.
func resolveFiles(cfg config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	files, err := testcase.Discover(cfg.TestCaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to discover test cases in %s: %w", cfg.TestCaseDir, err)
	}
	return files, nil
}

// watchDirs returns the configured directories that exist.
func watchDirs(cfg config.Config) []string {
	candidates := []string{cfg.TestCaseDir, cfg.RequestResourceDir, cfg.DefaultAssertionDir}
	if cfg.DBValidationPath != "" {
		candidates = append(candidates, filepath.Dir(cfg.DBValidationPath))
	}
	var dirs []string
	for _, d := range candidates {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

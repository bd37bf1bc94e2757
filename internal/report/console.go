// Package report prints run progress to the console and writes JSON or XLSX
// reports of a finished run.
package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tcrun/internal/formatting"
	"tcrun/internal/runner"
	"tcrun/pkg/logging"
	pkgstrings "tcrun/pkg/strings"
)

// ConsoleOptions configures a Console reporter.
type ConsoleOptions struct {
	Verbose bool
	// Progress shows a spinner while a test case runs.
	Progress bool
	// Format and Path select the file report written after the run.
	Format string
	Path   string
}

// Console implements runner.Reporter for terminal output.
type Console struct {
	w    io.Writer
	opts ConsoleOptions

	mu           sync.Mutex
	parallelMode bool
	spin         *spinner.Spinner
}

// NewConsole creates a console reporter writing to w.
func NewConsole(w io.Writer, opts ConsoleOptions) *Console {
	return &Console{w: w, opts: opts}
}

// SetParallelMode disables per-case progress lines, which would interleave.
func (c *Console) SetParallelMode(parallel bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parallelMode = parallel
}

// ReportStart is called when the run begins.
func (c *Console) ReportStart(files []string) {
	fmt.Fprintf(c.w, "🧪 Running %d test file(s)\n", len(files))
	if c.opts.Verbose {
		for _, f := range files {
			fmt.Fprintf(c.w, "   • %s\n", f)
		}
	}
	fmt.Fprintln(c.w)
}

// ReportCaseStart is called before a test case runs.
func (c *Console) ReportCaseStart(file, testName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.parallelMode {
		return
	}
	if c.opts.Progress && !c.opts.Verbose {
		c.spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.w))
		c.spin.Suffix = " " + testName
		c.spin.Start()
		return
	}
	if c.opts.Verbose {
		fmt.Fprintf(c.w, "🎯 %s\n", testName)
	}
}

// ReportCaseResult is called when a test case completes.
func (c *Console) ReportCaseResult(result runner.CaseResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.spin != nil {
		c.spin.Stop()
		c.spin = nil
	}
	if c.parallelMode {
		// printed as part of the file result
		return
	}
	c.printCase(result)
}

func (c *Console) printCase(result runner.CaseResult) {
	fmt.Fprintf(c.w, "%s %s (%s)\n", symbol(result.Status), result.TestName, result.Duration.Round(time.Millisecond))
	if c.opts.Verbose {
		if result.Method != "" {
			fmt.Fprintf(c.w, "   🔧 %s %s -> %d\n", result.Method, result.URL, result.HTTPStatus)
		}
		for _, p := range result.Prerequisites {
			fmt.Fprintf(c.w, "   🔗 prerequisite %s\n", p)
		}
		for _, name := range slices.Sorted(maps.Keys(result.Variables)) {
			fmt.Fprintf(c.w, "   📥 %s = %s\n", name, result.Variables[name])
		}
	}
	if result.Error != "" {
		msg := result.Error
		if !c.opts.Verbose {
			msg = pkgstrings.Truncate(msg, pkgstrings.DefaultMaxLen)
		}
		fmt.Fprintf(c.w, "   ❌ %s\n", msg)
	}
}

// ReportFileResult is called when a document has run.
func (c *Console) ReportFileResult(result runner.FileResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.parallelMode {
		fmt.Fprintf(c.w, "📄 %s\n", result.File)
		for _, cr := range result.Cases {
			c.printCase(cr)
		}
	}
	if result.Error != "" {
		fmt.Fprintf(c.w, "💥 %s: %s\n", result.File, pkgstrings.Truncate(result.Error, pkgstrings.DefaultMaxLen))
	}
}

// ReportSuiteResult prints the summary table and writes the file report.
func (c *Console) ReportSuiteResult(result runner.SuiteResult) {
	fmt.Fprintln(c.w)

	t := formatting.NewTable(c.w, "FILE", "TOTAL", "PASSED", "FAILED", "ERRORS", "DURATION")
	for _, f := range result.Files {
		name := f.File
		if f.Error != "" {
			name += " " + text.FgRed.Sprint("(not loaded)")
		}
		t.AppendRow(table.Row{name, len(f.Cases), f.Passed, f.Failed, f.Errored, f.Duration.Round(time.Millisecond)})
	}
	t.AppendFooter(table.Row{"", result.Total, result.Passed, result.Failed, result.Errored, result.Duration.Round(time.Millisecond)})
	t.Render()

	if result.Success() {
		fmt.Fprintf(c.w, "\n%s\n", text.FgGreen.Sprint("✅ All test cases passed"))
	} else {
		fmt.Fprintf(c.w, "\n%s\n", text.FgRed.Sprintf("❌ %d failed, %d errors", result.Failed, result.Errored+loadFailures(result)))
	}

	if c.opts.Format != "" && c.opts.Path != "" {
		if err := Write(c.opts.Format, c.opts.Path, result); err != nil {
			logging.Error("Report", err, "Failed to write %s report", c.opts.Format)
			fmt.Fprintf(c.w, "⚠️  Failed to write report: %v\n", err)
			return
		}
		fmt.Fprintf(c.w, "📄 Report written to %s\n", c.opts.Path)
	}
}

func loadFailures(result runner.SuiteResult) int {
	n := 0
	for _, f := range result.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

func symbol(s runner.Status) string {
	switch s {
	case runner.StatusPassed:
		return "✅"
	case runner.StatusFailed:
		return "❌"
	case runner.StatusError:
		return "💥"
	default:
		return "❓"
	}
}

// Multi fans reporter events out to several reporters.
type Multi []runner.Reporter

func (m Multi) ReportStart(files []string) {
	for _, r := range m {
		r.ReportStart(files)
	}
}

func (m Multi) ReportCaseStart(file, testName string) {
	for _, r := range m {
		r.ReportCaseStart(file, testName)
	}
}

func (m Multi) ReportCaseResult(result runner.CaseResult) {
	for _, r := range m {
		r.ReportCaseResult(result)
	}
}

func (m Multi) ReportFileResult(result runner.FileResult) {
	for _, r := range m {
		r.ReportFileResult(result)
	}
}

func (m Multi) ReportSuiteResult(result runner.SuiteResult) {
	for _, r := range m {
		r.ReportSuiteResult(result)
	}
}

func (m Multi) SetParallelMode(parallel bool) {
	for _, r := range m {
		r.SetParallelMode(parallel)
	}
}

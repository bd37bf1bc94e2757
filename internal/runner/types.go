package runner

import (
	"time"
)

// Status is the outcome of one test case.
type Status string

const (
	// StatusPassed indicates every assertion held.
	StatusPassed Status = "PASSED"
	// StatusFailed indicates an assertion did not hold.
	StatusFailed Status = "FAILED"
	// StatusError indicates the test case could not be carried out.
	StatusError Status = "ERROR"
)

// CaseResult is the result of running one test case.
type CaseResult struct {
	File     string        `json:"file"`
	TestName string        `json:"test_name"`
	Method   string        `json:"method,omitempty"`
	URL      string        `json:"url,omitempty"`
	Status   Status        `json:"status"`
	Start    time.Time     `json:"start_time"`
	End      time.Time     `json:"end_time"`
	Duration time.Duration `json:"duration"`
	// HTTPStatus is the status code of the main call, zero if it was not made.
	HTTPStatus int `json:"http_status,omitempty"`
	// Prerequisites lists the prerequisite documents run, in order.
	Prerequisites []string `json:"prerequisites,omitempty"`
	// Variables holds the bindings written by the post-processor.
	Variables map[string]string `json:"variables,omitempty"`
	Error     string            `json:"error,omitempty"`

	Err error `json:"-"`
}

// FileResult is the result of running every test case of one document.
type FileResult struct {
	File     string        `json:"file"`
	Start    time.Time     `json:"start_time"`
	End      time.Time     `json:"end_time"`
	Duration time.Duration `json:"duration"`
	Cases    []CaseResult  `json:"cases"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Errored  int           `json:"errored"`
	// Error is set when the document itself could not be loaded.
	Error string `json:"error,omitempty"`
}

func (f *FileResult) add(c CaseResult) {
	f.Cases = append(f.Cases, c)
	switch c.Status {
	case StatusPassed:
		f.Passed++
	case StatusFailed:
		f.Failed++
	default:
		f.Errored++
	}
}

// SuiteResult aggregates the results of several documents.
type SuiteResult struct {
	Start    time.Time     `json:"start_time"`
	End      time.Time     `json:"end_time"`
	Duration time.Duration `json:"duration"`
	Files    []FileResult  `json:"files"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Errored  int           `json:"errored"`
}

// Success reports whether every test case passed and every document loaded.
func (s *SuiteResult) Success() bool {
	if s.Failed > 0 || s.Errored > 0 {
		return false
	}
	for _, f := range s.Files {
		if f.Error != "" {
			return false
		}
	}
	return true
}

// Reporter receives progress events.
type Reporter interface {
	// ReportStart is called before any document runs.
	ReportStart(files []string)
	// ReportCaseStart is called before a test case runs.
	ReportCaseStart(file, testName string)
	// ReportCaseResult is called when a test case completes.
	ReportCaseResult(result CaseResult)
	// ReportFileResult is called when every test case of a document completed.
	ReportFileResult(result FileResult)
	// ReportSuiteResult is called when all documents completed.
	ReportSuiteResult(result SuiteResult)
	// SetParallelMode enables or disables parallel output buffering.
	SetParallelMode(parallel bool)
}

type nopReporter struct{}

func (nopReporter) ReportStart([]string) {}
func (nopReporter) ReportCaseStart(string, string) {}
func (nopReporter) ReportCaseResult(CaseResult) {}
func (nopReporter) ReportFileResult(FileResult) {}
func (nopReporter) ReportSuiteResult(SuiteResult) {}
func (nopReporter) SetParallelMode(bool) {}

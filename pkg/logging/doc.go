// Package logging provides the structured, subsystem-tagged logger used by
// every tcrun component.
//
// It is a thin layer over log/slog. Each entry carries a subsystem attribute
// (Template, TestCaseRepo, RequestBuilder, Executor, Assertions, Runner,
// DBClient, APIClient, Watch, MCPServer, Config) so a run can be filtered by
// component.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stderr)
//
//	logging.Info("Runner", "Running test case %s", name)
//	logging.Debug("Template", "Resolved %d placeholders", n)
//	logging.Error("DBClient", err, "Query failed: %s", query)
//
// Output formats:
//   - FormatText: slog.TextHandler, the default for interactive use
//   - FormatJSON: slog.JSONHandler, intended for CI log collection
//
// Until Init (or InitForCLI) is called only warnings and errors are written,
// directly to stderr.
//
// Logging is safe for concurrent use.
package logging

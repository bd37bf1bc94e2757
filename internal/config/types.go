package config

import "time"

// Config is the top-level configuration for a tcrun invocation.
//
// Relative directories are resolved against the directory containing the
// configuration file (or the working directory when no file was found).
type Config struct {
	// BaseURL is prepended to every test-case URL that is not absolute.
	BaseURL string `yaml:"baseURL,omitempty"`
	// TestCaseDir holds test-case documents and prerequisite documents.
	TestCaseDir string `yaml:"testCaseDir,omitempty"`
	// RequestResourceDir holds request fixtures referenced by requestResource.
	RequestResourceDir string `yaml:"requestResourceDir,omitempty"`
	// DefaultAssertionDir holds default assertion bundles.
	DefaultAssertionDir string `yaml:"defaultAssertionDir,omitempty"`
	// DBValidationPath is the DB-validation document with the assertion groups.
	DBValidationPath string `yaml:"dbValidationPath,omitempty"`
	// Timeout bounds a single HTTP call. Zero disables the client-side timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	Auth     AuthConfig     `yaml:"auth,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	Report   ReportConfig   `yaml:"report,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`

	// Types declares named document shapes. A name matches a fixture by
	// file name (account.json) and a response by responseResourceType.
	Types map[string]TypeConfig `yaml:"types,omitempty"`
}

// TypeConfig lists the top-level members of a document type.
type TypeConfig struct {
	Required []string `yaml:"required,omitempty"`
	// Fields, when set, rejects any member not listed here or in Required.
	Fields []string `yaml:"fields,omitempty"`
}

// AuthConfig configures the default bearer token sent with API calls.
type AuthConfig struct {
	Token string `yaml:"token,omitempty"`
}

// DatabaseConfig configures the database used by DB assertions.
// DB assertions are unavailable when DSN is empty.
type DatabaseConfig struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// ReportConfig configures the optional file report written after a run.
type ReportConfig struct {
	// Format is one of "", "json" or "xlsx".
	Format string `yaml:"format,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// HasDatabase reports whether a database connection is configured.
func (c Config) HasDatabase() bool {
	return c.Database.DSN != ""
}

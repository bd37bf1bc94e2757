package config

import "time"

const (
	// DefaultConfigFileName is looked up in the working directory when --config is not given.
	DefaultConfigFileName = "tcrun.yaml"

	// DefaultDatabaseDriver is the database/sql driver name used when none is configured.
	DefaultDatabaseDriver = "postgres"
)

// GetDefaultConfig returns the configuration used when no file is present.
func GetDefaultConfig() Config {
	return Config{
		BaseURL:             "http://localhost:8080",
		TestCaseDir:         "testdata/testcases",
		RequestResourceDir:  "testdata/requests",
		DefaultAssertionDir: "testdata/assertions",
		DBValidationPath:    "testdata/db-validation.json",
		Timeout:             30 * time.Second,
		Database: DatabaseConfig{
			Driver: DefaultDatabaseDriver,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

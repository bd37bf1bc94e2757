package config

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"tcrun/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration for values that would make every run fail.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs.Add("baseURL", "must be an absolute http(s) URL", c.BaseURL)
		}
	}

	if c.TestCaseDir == "" {
		errs.Add("testCaseDir", "is required")
	}

	if c.Timeout < 0 {
		errs.Add("timeout", "cannot be negative", c.Timeout)
	}

	if c.HasDatabase() && c.Database.Driver == "" {
		errs.Add("database.driver", "is required when database.dsn is set")
	}

	switch c.Report.Format {
	case "", "json", "xlsx":
	default:
		errs.Add("report.format", "must be one of json, xlsx", c.Report.Format)
	}
	if c.Report.Format != "" && c.Report.Path == "" {
		errs.Add("report.path", "is required when report.format is set")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), c.Logging.Level)
	}
	switch logging.Format(c.Logging.Format) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs.Add("logging.format", "must be text or json", c.Logging.Format)
	}

	for _, name := range slices.Sorted(maps.Keys(c.Types)) {
		if strings.TrimSpace(name) == "" {
			errs.Add("types", "type names cannot be empty")
			continue
		}
		if len(c.Types[name].Required) == 0 && len(c.Types[name].Fields) == 0 {
			errs.Add("types."+name, "must list required or fields")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

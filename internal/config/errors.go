package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ConfigurationError represents a structured error that occurs during configuration loading
type ConfigurationError struct {
	FilePath  string `json:"filePath"`  // Full path to the file that caused the error
	FileName  string `json:"fileName"`  // Base name of the file
	ErrorType string `json:"errorType"` // Type of error (parse, validation, io)
	Message   string `json:"message"`   // Human-readable error message
}

// Error implements the error interface
func (ce *ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.FileName, ce.Message)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(filePath, errorType, message string) *ConfigurationError {
	return &ConfigurationError{
		FilePath:  filePath,
		FileName:  filepath.Base(filePath),
		ErrorType: errorType,
		Message:   message,
	}
}

// IsConfigurationError checks if an error is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

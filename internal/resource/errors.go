package resource

import (
	"errors"
	"fmt"
)

// Load error kinds.
const (
	KindRead     = "read"
	KindTemplate = "template"
	KindParse    = "parse"
	KindDBGroup  = "db-group"
)

// LoadError is returned when a document is missing, unreadable, malformed or
// references something that does not exist.
type LoadError struct {
	Path string
	Kind string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError checks if an error is or wraps a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// SerializationError is returned when a value cannot be converted to or from JSON.
type SerializationError struct {
	// Op is "encode" or "decode".
	Op string
	// Target names the type or resource being converted.
	Target string
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cannot %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsSerializationError checks if an error is or wraps a SerializationError.
func IsSerializationError(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

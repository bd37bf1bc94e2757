package assertion

import (
	"errors"
	"fmt"
)

// Assertion kinds carried by FailedError.
const (
	KindHTTPStatus = "httpStatus"
	KindDefault    = "default"
	KindResponse   = "response"
	KindDB         = "db"
)

// FailedError is an expected/actual mismatch.
type FailedError struct {
	Kind string
	// Key is the response path, annotation path or executed query.
	Key      string
	Expected string
	Actual   string
	// Missing is set when the key had no value at all.
	Missing bool
	// Source names the bundle file or DB group the assertion came from.
	Source string
}

func (e *FailedError) Error() string {
	actual := fmt.Sprintf("%q", e.Actual)
	if e.Missing {
		actual = "<absent>"
	}
	msg := fmt.Sprintf("%s assertion failed for %s: expected %q, got %s", e.Kind, e.Key, e.Expected, actual)
	if e.Source != "" {
		msg += " (" + e.Source + ")"
	}
	return msg
}

// IsFailed checks if an error is or wraps a FailedError.
func IsFailed(err error) bool {
	var fe *FailedError
	return errors.As(err, &fe)
}

// UnknownAnnotationError is returned for an @token with no registered check.
type UnknownAnnotationError struct {
	Annotation string
	Path       string
}

func (e *UnknownAnnotationError) Error() string {
	return fmt.Sprintf("unknown annotation %s for %s", e.Annotation, e.Path)
}

// IsUnknownAnnotation checks if an error is or wraps an UnknownAnnotationError.
func IsUnknownAnnotation(err error) bool {
	var ue *UnknownAnnotationError
	return errors.As(err, &ue)
}

// ArityError is returned when a DB group and its expected values differ in length.
type ArityError struct {
	Group    string
	Queries  int
	Expected int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("db assertion group %q has %d queries but %d expected values", e.Group, e.Queries, e.Expected)
}

// IsArity checks if an error is or wraps an ArityError.
func IsArity(err error) bool {
	var ae *ArityError
	return errors.As(err, &ae)
}

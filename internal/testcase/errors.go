package testcase

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a test name is not in the repository.
type NotFoundError struct {
	Name   string
	Source string
}

func (e *NotFoundError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("test case %q not found", e.Name)
	}
	return fmt.Sprintf("test case %q not found in %s", e.Name, e.Source)
}

// IsNotFound checks if an error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// DuplicateError is returned when a document defines the same test name twice.
type DuplicateError struct {
	Name   string
	Source string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("test case %q is defined more than once in %s", e.Name, e.Source)
}

// IsDuplicate checks if an error is or wraps a DuplicateError.
func IsDuplicate(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

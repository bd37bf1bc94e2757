package template

import (
	"errors"
	"fmt"
)

// ResolutionError is returned when a placeholder cannot be resolved.
type ResolutionError struct {
	// Placeholder is the full placeholder text, e.g. "${accountId}".
	Placeholder string
	Reason      string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s: %s", e.Placeholder, e.Reason)
}

// IsResolutionError checks if an error is or wraps a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

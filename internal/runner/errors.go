package runner

import (
	"errors"
	"fmt"
	"strings"
)

// PrerequisiteCycleError is returned when prerequisites reference each other.
type PrerequisiteCycleError struct {
	// Chain lists the test case and the prerequisite documents leading back
	// to an earlier entry.
	Chain []string
}

func (e *PrerequisiteCycleError) Error() string {
	return fmt.Sprintf("prerequisite cycle: %s", strings.Join(e.Chain, " -> "))
}

// IsPrerequisiteCycle checks if an error is or wraps a PrerequisiteCycleError.
func IsPrerequisiteCycle(err error) bool {
	var ce *PrerequisiteCycleError
	return errors.As(err, &ce)
}

// PostProcessError is returned when a post-processor path selects nothing.
type PostProcessError struct {
	Variable string
	Path     string
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("post-processor: %s selects no value for variable %q", e.Path, e.Variable)
}

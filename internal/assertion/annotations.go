package assertion

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tcrun/internal/template"
)

// AnnotationMarker starts an annotation token in a default assertion bundle.
const AnnotationMarker = "@"

// Annotation checks a value selected by a default assertion. found is false
// when the path matched nothing.
type Annotation func(value any, found bool) error

var (
	annotationsMu sync.RWMutex
	annotations   = map[string]Annotation{
		"@NotNull": notNull,
		"@uuid":    isUUID,
	}
)

// RegisterAnnotation adds or replaces the check for token (e.g. "@email").
func RegisterAnnotation(token string, fn Annotation) {
	if !strings.HasPrefix(token, AnnotationMarker) {
		token = AnnotationMarker + token
	}
	annotationsMu.Lock()
	defer annotationsMu.Unlock()
	annotations[token] = fn
}

func lookupAnnotation(token string) (Annotation, bool) {
	annotationsMu.RLock()
	defer annotationsMu.RUnlock()
	fn, ok := annotations[token]
	return fn, ok
}

func notNull(value any, found bool) error {
	if !found || value == nil {
		return fmt.Errorf("value is null")
	}
	return nil
}

func isUUID(value any, found bool) error {
	if err := notNull(value, found); err != nil {
		return err
	}
	s := template.FormatValue(value)
	// uuid.Parse also accepts urn: and braced forms
	if len(s) != 36 {
		return fmt.Errorf("%q is not a canonical uuid", s)
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("%q is not a uuid: %w", s, err)
	}
	return nil
}

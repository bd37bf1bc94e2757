package template

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"
)

// HelperFunc produces the replacement text for a helper placeholder.
type HelperFunc func() string

// Registry maps helper names to their functions.
type Registry struct {
	mu      sync.RWMutex
	helpers map[string]HelperFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{helpers: make(map[string]HelperFunc)}
}

// DefaultRegistry creates a registry holding the built-in helpers:
// uuid, genName, randomNumber, randomString, timestamp, epochMillis and today.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, fn := range builtinHelpers(time.Now) {
		r.helpers[name] = fn
	}
	return r
}

// Register adds or replaces a helper.
func (r *Registry) Register(name string, fn HelperFunc) error {
	if name == "" {
		return fmt.Errorf("helper name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("helper %q has no function", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.helpers[name] = fn
	return nil
}

// Lookup returns the helper registered under name.
func (r *Registry) Lookup(name string) (HelperFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.helpers[name]
	return fn, ok
}

// Names returns the registered helper names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinHelpers(now func() time.Time) map[string]HelperFunc {
	funcs := sprig.GenericFuncMap()
	randAlpha := sprigIntFunc(funcs, "randAlpha")
	randNumeric := sprigIntFunc(funcs, "randNumeric")
	randAlphaNum := sprigIntFunc(funcs, "randAlphaNum")

	return map[string]HelperFunc{
		"uuid":         func() string { return uuid.NewString() },
		"genName":      func() string { return "tc-" + randAlpha(10) },
		"randomNumber": func() string { return randNumeric(9) },
		"randomString": func() string { return randAlphaNum(16) },
		"timestamp":    func() string { return now().UTC().Format(time.RFC3339) },
		"epochMillis":  func() string { return strconv.FormatInt(now().UnixMilli(), 10) },
		"today":        func() string { return now().UTC().Format(time.DateOnly) },
	}
}

func sprigIntFunc(funcs map[string]interface{}, name string) func(int) string {
	fn, ok := funcs[name].(func(int) string)
	if !ok {
		panic(fmt.Sprintf("sprig function %q has unexpected type %T", name, funcs[name]))
	}
	return fn
}

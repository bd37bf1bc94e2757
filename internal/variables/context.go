// Package variables holds the run-scoped variable store shared by the
// template engine and the post-processor.
package variables

import (
	"sort"
	"sync"

	"tcrun/pkg/logging"
)

// Context is a string to string store scoped to one run.
// Writes always overwrite. It is safe for concurrent use.
type Context struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewContext creates an empty variable context.
func NewContext() *Context {
	return &Context{
		values: make(map[string]string),
	}
}

// Set stores value under name, replacing any previous value.
func (c *Context) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
	logging.Debug("Variables", "Set '%s' = %q", name, value)
}

// Get returns the value bound to name and whether it exists.
func (c *Context) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.values[name]
	return value, ok
}

// Snapshot returns a copy of every binding.
func (c *Context) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Names returns the bound variable names in sorted order.
func (c *Context) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bindings.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Reset drops every binding. Called between independent runs.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]string)
}

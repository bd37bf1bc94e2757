package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"

	"sigs.k8s.io/yaml"
)

// DecodeFunc turns a JSON (or YAML) document into a value.
type DecodeFunc func(data []byte) (any, error)

// TypeOf returns a DecodeFunc that decodes into a fresh *T using the type's
// json tags. Unknown fields are rejected.
func TypeOf[T any]() DecodeFunc {
	name := reflect.TypeFor[T]().String()
	return func(data []byte) (any, error) {
		out := new(T)
		if err := yaml.UnmarshalStrict(data, out); err != nil {
			return nil, &SerializationError{Op: "decode", Target: name, Err: err}
		}
		return out, nil
	}
}

// Schema describes the top-level members of an object document.
type Schema struct {
	// Required members must be present. A null value counts as present.
	Required []string
	// Fields, when non-empty, is the complete member set; any other member
	// is rejected. Required members are always allowed.
	Fields []string
}

// SchemaOf returns a DecodeFunc that decodes generically and then checks the
// document against s.
func SchemaOf(name string, s Schema) DecodeFunc {
	return func(data []byte) (any, error) {
		out, err := DecodeGeneric(data)
		if err != nil {
			return nil, err
		}
		obj, ok := out.(map[string]any)
		if !ok {
			return nil, &SerializationError{Op: "decode", Target: name, Err: fmt.Errorf("expected an object, got %T", out)}
		}
		for _, field := range s.Required {
			if _, ok := obj[field]; !ok {
				return nil, &SerializationError{Op: "decode", Target: name, Err: fmt.Errorf("missing required field %q", field)}
			}
		}
		if len(s.Fields) > 0 {
			for _, key := range slices.Sorted(maps.Keys(obj)) {
				if !slices.Contains(s.Fields, key) && !slices.Contains(s.Required, key) {
					return nil, &SerializationError{Op: "decode", Target: name, Err: fmt.Errorf("unknown field %q", key)}
				}
			}
		}
		return obj, nil
	}
}

// DecodeGeneric decodes a JSON document into maps, slices and scalars,
// keeping numbers as json.Number.
func DecodeGeneric(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &SerializationError{Op: "decode", Target: "document", Err: err}
	}
	return out, nil
}

// Normalize converts any value into the generic form DecodeGeneric produces.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Op: "encode", Target: fmt.Sprintf("%T", v), Err: err}
	}
	return DecodeGeneric(data)
}

// TypeRegistry maps logical resource names to decoders.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]DecodeFunc
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]DecodeFunc)}
}

// Register binds name to fn, replacing any previous binding.
func (r *TypeRegistry) Register(name string, fn DecodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = fn
}

// Lookup finds the decoder for name. A fixture reference such as
// "accounts/account.json" also matches the names "account.json" and "account".
func (r *TypeRegistry) Lookup(name string) (DecodeFunc, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := filepath.Base(name)
	for _, candidate := range []string{name, base, strings.TrimSuffix(base, filepath.Ext(base))} {
		if fn, ok := r.types[candidate]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Decode decodes data with the decoder registered for name, or generically
// when name has no registration.
func (r *TypeRegistry) Decode(name string, data []byte) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return DecodeGeneric(data)
	}
	return fn(data)
}

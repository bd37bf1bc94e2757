// Package request materializes request payloads from fixture documents and
// point overrides.
package request

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"sigs.k8s.io/yaml"

	"tcrun/internal/jsonpath"
	"tcrun/internal/resource"
	"tcrun/internal/testcase"
	"tcrun/pkg/logging"
)

// Payload is a built request body.
type Payload struct {
	// Resource is the fixture reference the payload was built from.
	Resource string
	// Body is the JSON sent on the wire.
	Body []byte
	// Value is the fixture decoded into its registered type, or into generic
	// maps when the fixture has no registration. Once overrides are applied
	// it is always the generic patched document, since an override may write
	// text where the type expects another kind.
	Value any
}

// Builder loads fixtures and applies overrides.
type Builder struct {
	loader *resource.Loader
	types  *resource.TypeRegistry
}

// NewBuilder creates a builder. types may be nil.
func NewBuilder(loader *resource.Loader, types *resource.TypeRegistry) *Builder {
	return &Builder{loader: loader, types: types}
}

// Build returns the payload declared by decl, or nil when decl is nil.
//
// The fixture is resolved and decoded into its registered type, serialized,
// and every requestModificationBody entry is then written at its path in
// document order, so a later entry for the same path wins. Each override
// value is written as a JSON string and the patched document is sent as is.
func (b *Builder) Build(decl *testcase.Request) (*Payload, error) {
	if decl == nil {
		return nil, nil
	}

	text, err := b.loader.Read(decl.RequestResource)
	if err != nil {
		return nil, err
	}

	data := []byte(text)
	if resource.IsYAML(decl.RequestResource) {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return nil, &resource.LoadError{Path: b.loader.Path(decl.RequestResource), Kind: resource.KindParse, Err: err}
		}
	}

	value, err := b.types.Decode(decl.RequestResource, data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", decl.RequestResource, err)
	}

	body, err := json.Marshal(value)
	if err != nil {
		return nil, &resource.SerializationError{Op: "encode", Target: decl.RequestResource, Err: err}
	}

	overrides := testcase.Entries(decl.RequestModificationBody)
	if len(overrides) > 0 {
		if body, err = applyOverrides(body, overrides); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", decl.RequestResource, err)
		}
		if value, err = resource.DecodeGeneric(body); err != nil {
			return nil, fmt.Errorf("fixture %s after overrides: %w", decl.RequestResource, err)
		}
	}

	logging.Debug("RequestBuilder", "Built payload from %s with %d overrides: %s", decl.RequestResource, len(overrides), body)
	return &Payload{Resource: decl.RequestResource, Body: body, Value: value}, nil
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// applyOverrides writes each override in order. Object members are added
// (created or overwritten); array elements are replaced in place.
func applyOverrides(doc []byte, overrides []testcase.Entry) ([]byte, error) {
	ops := make([]patchOp, 0, len(overrides))
	for _, o := range overrides {
		segments, err := jsonpath.Split(o.Key)
		if err != nil {
			return nil, &resource.SerializationError{Op: "patch", Target: o.Key, Err: err}
		}
		pointer, err := jsonpath.ToPointer(o.Key)
		if err != nil {
			return nil, &resource.SerializationError{Op: "patch", Target: o.Key, Err: err}
		}

		op := "add"
		if len(segments) > 0 && segments[len(segments)-1].IsIndex {
			op = "replace"
		}
		ops = append(ops, patchOp{Op: op, Path: pointer, Value: o.Value})
	}

	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, &resource.SerializationError{Op: "encode", Target: "overrides", Err: err}
	}
	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, &resource.SerializationError{Op: "decode", Target: "overrides", Err: err}
	}

	opts := jsonpatch.NewApplyOptions()
	opts.EnsurePathExistsOnAdd = true
	out, err := patch.ApplyWithOptions(doc, opts)
	if err != nil {
		return nil, &resource.SerializationError{Op: "patch", Target: "request body", Err: err}
	}
	return out, nil
}

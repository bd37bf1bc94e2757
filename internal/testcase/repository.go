// Package testcase defines the test-case document model and the repository
// that indexes a document's test cases by name.
package testcase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"tcrun/internal/resource"
	"tcrun/pkg/logging"
)

// Repository indexes the test cases of one document by name.
//
// Load only indexes the raw definitions. Placeholders in a test case are
// resolved when the test case is fetched with Get, so a test case can use
// variables bound by test cases that ran before it.
type Repository struct {
	loader *resource.Loader

	mu     sync.RWMutex
	source string
	raw    map[string]string
	order  []string
}

// NewRepository creates an empty repository reading documents through loader.
func NewRepository(loader *resource.Loader) *Repository {
	return &Repository{
		loader: loader,
		raw:    make(map[string]string),
	}
}

// Load replaces the repository contents with the test cases in source.
// A name defined twice fails with DuplicateError.
func (r *Repository) Load(source string) error {
	text, err := r.loader.ReadRaw(source)
	if err != nil {
		return err
	}
	path := r.loader.Path(source)

	chunks, err := splitDocument(path, []byte(text))
	if err != nil {
		return err
	}

	raw := make(map[string]string, len(chunks))
	order := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var header struct {
			TestName string `json:"testName" yaml:"testName"`
		}
		if err := resource.DecodeDocument(path, []byte(chunk), &header); err != nil {
			return err
		}
		if header.TestName == "" {
			return &resource.LoadError{Path: path, Kind: resource.KindParse, Err: fmt.Errorf("test case %d has no testName", i+1)}
		}
		if _, exists := raw[header.TestName]; exists {
			return &DuplicateError{Name: header.TestName, Source: path}
		}
		raw[header.TestName] = chunk
		order = append(order, header.TestName)
	}

	r.mu.Lock()
	r.source = path
	r.raw = raw
	r.order = order
	r.mu.Unlock()

	logging.Info("TestCaseRepo", "Loaded %d test cases from %s", len(order), path)
	return nil
}

// Source returns the path of the loaded document.
func (r *Repository) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// Names returns the test names in document order.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Has reports whether name is defined.
func (r *Repository) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.raw[name]
	return ok
}

// Get resolves and decodes the test case called name.
func (r *Repository) Get(name string) (*TestCase, error) {
	r.mu.RLock()
	chunk, ok := r.raw[name]
	source := r.source
	r.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Name: name, Source: source}
	}

	text, err := r.resolve(source, chunk)
	if err != nil {
		return nil, fmt.Errorf("test case %q: %w", name, err)
	}
	return decodeTestCase(source, []byte(text))
}

// GetRaw decodes the test case called name without resolving placeholders.
func (r *Repository) GetRaw(name string) (*TestCase, error) {
	r.mu.RLock()
	chunk, ok := r.raw[name]
	source := r.source
	r.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Name: name, Source: source}
	}
	return decodeTestCase(source, []byte(chunk))
}

// LoadSingle reads a document holding exactly one test case, as used for
// prerequisites. Placeholders are resolved immediately.
func (r *Repository) LoadSingle(ref string) (*TestCase, error) {
	text, err := r.loader.Read(ref)
	if err != nil {
		return nil, err
	}
	tc, err := decodeTestCase(r.loader.Path(ref), []byte(text))
	if err != nil {
		return nil, err
	}
	if tc.TestName == "" {
		tc.TestName = ref
	}
	return tc, nil
}

// LoadSingleRaw reads a single test-case document without resolving
// placeholders. Used to inspect prerequisite chains before anything runs.
func (r *Repository) LoadSingleRaw(ref string) (*TestCase, error) {
	text, err := r.loader.ReadRaw(ref)
	if err != nil {
		return nil, err
	}
	return decodeTestCase(r.loader.Path(ref), []byte(text))
}

// Path returns the location of ref as the repository's loader sees it.
func (r *Repository) Path(ref string) string {
	return r.loader.Path(ref)
}

func (r *Repository) resolve(source, chunk string) (string, error) {
	resolver := r.loader.Resolver()
	if resolver == nil {
		return chunk, nil
	}
	text, err := resolver.Resolve(chunk)
	if err != nil {
		return "", &resource.LoadError{Path: source, Kind: resource.KindTemplate, Err: err}
	}
	return text, nil
}

func decodeTestCase(path string, data []byte) (*TestCase, error) {
	var tc TestCase
	if err := resource.DecodeDocument(path, data, &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}

// splitDocument returns the raw text of every element of the top-level array.
func splitDocument(path string, data []byte) ([]string, error) {
	if resource.IsYAML(path) {
		var nodes []yaml.Node
		if err := yaml.Unmarshal(data, &nodes); err != nil {
			return nil, &resource.LoadError{Path: path, Kind: resource.KindParse, Err: err}
		}
		chunks := make([]string, 0, len(nodes))
		for i := range nodes {
			out, err := yaml.Marshal(&nodes[i])
			if err != nil {
				return nil, &resource.SerializationError{Op: "encode", Target: path, Err: err}
			}
			chunks = append(chunks, string(out))
		}
		return chunks, nil
	}

	var elements []json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&elements); err != nil {
		return nil, &resource.LoadError{Path: path, Kind: resource.KindParse, Err: fmt.Errorf("expected an array of test cases: %w", err)}
	}
	chunks := make([]string, 0, len(elements))
	for _, e := range elements {
		chunks = append(chunks, string(e))
	}
	return chunks, nil
}

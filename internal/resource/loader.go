// Package resource reads documents from disk, resolves their placeholders and
// decodes them, either generically or into a type from a TypeRegistry.
package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tcrun/pkg/logging"
)

// Resolver resolves placeholders in raw document text.
type Resolver interface {
	Resolve(text string) (string, error)
}

// Loader reads documents relative to a base directory.
type Loader struct {
	baseDir  string
	resolver Resolver
}

// NewLoader creates a loader. A nil resolver returns text unchanged.
func NewLoader(baseDir string, resolver Resolver) *Loader {
	return &Loader{baseDir: baseDir, resolver: resolver}
}

// Resolver returns the resolver used by Read.
func (l *Loader) Resolver() Resolver {
	return l.resolver
}

// Path returns the location of ref under the base directory.
func (l *Loader) Path(ref string) string {
	if filepath.IsAbs(ref) || l.baseDir == "" {
		return ref
	}
	return filepath.Join(l.baseDir, ref)
}

// ReadRaw returns the file contents without resolving placeholders.
func (l *Loader) ReadRaw(ref string) (string, error) {
	path := l.Path(ref)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &LoadError{Path: path, Kind: KindRead, Err: err}
	}
	return string(data), nil
}

// Read returns the file contents with every placeholder resolved.
func (l *Loader) Read(ref string) (string, error) {
	raw, err := l.ReadRaw(ref)
	if err != nil {
		return "", err
	}
	if l.resolver == nil {
		return raw, nil
	}

	resolved, err := l.resolver.Resolve(raw)
	if err != nil {
		return "", &LoadError{Path: l.Path(ref), Kind: KindTemplate, Err: err}
	}
	logging.Debug("Resource", "Resolved %s (%d bytes)", l.Path(ref), len(resolved))
	return resolved, nil
}

// Load reads ref, resolves it and decodes it into out according to its extension.
func (l *Loader) Load(ref string, out any) error {
	text, err := l.Read(ref)
	if err != nil {
		return err
	}
	return DecodeDocument(l.Path(ref), []byte(text), out)
}

// IsYAML reports whether path has a YAML extension.
func IsYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// IsDocument reports whether path has an extension Loader can decode.
func IsDocument(path string) bool {
	return IsYAML(path) || strings.EqualFold(filepath.Ext(path), ".json")
}

// DecodeDocument decodes data into out. YAML is used for .yaml and .yml
// paths, JSON (with numbers kept as json.Number) for everything else.
func DecodeDocument(path string, data []byte, out any) error {
	if IsYAML(path) {
		if err := yaml.Unmarshal(data, out); err != nil {
			return &LoadError{Path: path, Kind: KindParse, Err: err}
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &LoadError{Path: path, Kind: KindParse, Err: err}
	}
	if dec.More() {
		return &LoadError{Path: path, Kind: KindParse, Err: fmt.Errorf("unexpected data after the top-level value")}
	}
	return nil
}

package runner

import (
	"strings"

	"tcrun/internal/jsonpath"
	"tcrun/internal/template"
	"tcrun/internal/testcase"
	"tcrun/pkg/logging"
)

// applyPostProcessor binds each declared variable. An expression containing
// the root marker $ is a path into the flattened response; anything else is
// stored literally. Paths the flattened view cannot address, such as list
// elements, are evaluated as JSONPath against the response document.
func (r *Runner) applyPostProcessor(m *testcase.Mapping, out *outcome) (map[string]string, error) {
	entries := testcase.Entries(m)
	if len(entries) == 0 {
		return nil, nil
	}

	bound := make(map[string]string, len(entries))
	for _, e := range entries {
		value := e.Value
		if strings.Contains(e.Value, jsonpath.Root) {
			v, ok := lookup(out, e.Value)
			if !ok {
				return bound, &PostProcessError{Variable: e.Key, Path: e.Value}
			}
			value = v
		}
		r.vars.Set(e.Key, value)
		bound[e.Key] = value
		logging.Debug("Runner", "Post-processor bound %s = %q", e.Key, value)
	}
	return bound, nil
}

func lookup(out *outcome, path string) (string, bool) {
	if v, ok := out.flat.Lookup(path); ok {
		return v, true
	}
	if out.Document == nil {
		return "", false
	}
	v, found, err := jsonpath.Lookup(out.Document, path)
	if err != nil || !found || v == nil {
		return "", false
	}
	return template.FormatValue(v), true
}

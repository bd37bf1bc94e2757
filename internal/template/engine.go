// Package template resolves placeholders inside raw document text before the
// text is decoded.
//
// The general placeholder ${...} has three forms:
//
//	${name()}    helper invocation
//	${env.NAME}  process environment variable
//	${name}      variable lookup; falls back to a helper of the same name
//
// Response-parameter placeholders #{<jsonpath>} are resolved separately by
// ResolveResponseParams against a decoded response document.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"tcrun/internal/jsonpath"
	"tcrun/pkg/logging"
)

// VariableSource is the read side of a variable store.
type VariableSource interface {
	Get(name string) (string, bool)
}

var (
	placeholderPattern   = regexp.MustCompile(`\$\{\s*(?:env\.(?P<env>[A-Za-z_][A-Za-z0-9_]*)|(?P<method>[A-Za-z_][A-Za-z0-9_]*)\(\)|(?P<var>[A-Za-z_][A-Za-z0-9_\-]*))\s*\}`)
	responseParamPattern = regexp.MustCompile(`#\{\s*(\$[^}]*?)\s*\}`)
)

// Engine resolves placeholders against a variable source and a helper registry.
type Engine struct {
	vars    VariableSource
	helpers *Registry

	envIdx    int
	methodIdx int
	varIdx    int
}

// New creates an engine. A nil registry means DefaultRegistry().
func New(vars VariableSource, helpers *Registry) *Engine {
	if helpers == nil {
		helpers = DefaultRegistry()
	}
	return &Engine{
		vars:      vars,
		helpers:   helpers,
		envIdx:    placeholderPattern.SubexpIndex("env"),
		methodIdx: placeholderPattern.SubexpIndex("method"),
		varIdx:    placeholderPattern.SubexpIndex("var"),
	}
}

// Resolve replaces every ${...} placeholder in text in a single left-to-right
// pass. Text without placeholders is returned unchanged.
func (e *Engine) Resolve(text string) (string, error) {
	return replaceAll(placeholderPattern, text, func(match string, groups []string) (string, error) {
		switch {
		case groups[e.envIdx] != "":
			name := groups[e.envIdx]
			value, ok := os.LookupEnv(name)
			if !ok {
				return "", &ResolutionError{Placeholder: match, Reason: fmt.Sprintf("environment variable %s is not set", name)}
			}
			return value, nil

		case groups[e.methodIdx] != "":
			return e.callHelper(match, groups[e.methodIdx])

		default:
			name := groups[e.varIdx]
			if e.vars != nil {
				if value, ok := e.vars.Get(name); ok {
					return value, nil
				}
			}
			if _, ok := e.helpers.Lookup(name); ok {
				return e.callHelper(match, name)
			}
			return "", &ResolutionError{Placeholder: match, Reason: fmt.Sprintf("variable %q is not bound", name)}
		}
	})
}

func (e *Engine) callHelper(match, name string) (string, error) {
	fn, ok := e.helpers.Lookup(name)
	if !ok {
		return "", &ResolutionError{Placeholder: match, Reason: fmt.Sprintf("unknown helper %q", name)}
	}
	value := fn()
	logging.Debug("Template", "Helper %s() produced %q", name, value)
	return value, nil
}

// ResolveResponseParams replaces every #{<jsonpath>} placeholder in text with
// the value the path selects in response.
func (e *Engine) ResolveResponseParams(text string, response any) (string, error) {
	return replaceAll(responseParamPattern, text, func(match string, groups []string) (string, error) {
		path := groups[1]
		value, found, err := jsonpath.Lookup(response, path)
		if err != nil {
			return "", &ResolutionError{Placeholder: match, Reason: err.Error()}
		}
		if !found {
			return "", &ResolutionError{Placeholder: match, Reason: "path matched nothing in the response"}
		}
		return FormatValue(value), nil
	})
}

// UndefinedHelpers returns the helper invocations in text that have no
// registration, in order of first appearance. Variable placeholders are not
// reported since they may be bound at run time.
func (e *Engine) UndefinedHelpers(text string) []string {
	var out []string
	for _, groups := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := groups[e.methodIdx]
		if name == "" || slices.Contains(out, name) {
			continue
		}
		if _, ok := e.helpers.Lookup(name); !ok {
			out = append(out, name)
		}
	}
	return out
}

func replaceAll(re *regexp.Regexp, text string, fn func(match string, groups []string) (string, error)) (string, error) {
	indexes := re.FindAllStringSubmatchIndex(text, -1)
	if len(indexes) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for _, loc := range indexes {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = text[loc[2*i]:loc[2*i+1]]
			}
		}

		replacement, err := fn(groups[0], groups)
		if err != nil {
			return "", err
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(replacement)
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// FormatValue renders a decoded JSON value as the text used in comparisons
// and substitutions. Strings are returned without quotes.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

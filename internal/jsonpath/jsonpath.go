// Package jsonpath evaluates JSONPath reads against decoded JSON documents and
// converts simple member/index paths into JSON Pointers for writes.
//
// Reads are delegated to k8s.io/client-go/util/jsonpath, so any expression it
// understands ($.a.b, $.items[0].id, $..name, filters) can be used.
package jsonpath

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	k8sjsonpath "k8s.io/client-go/util/jsonpath"
)

// Root is the marker every path starts with.
const Root = "$"

// IsPath reports whether expr looks like a JSONPath expression.
func IsPath(expr string) bool {
	return strings.HasPrefix(strings.TrimSpace(expr), Root)
}

// Find evaluates path against doc and returns every matched value.
// A path that matches nothing returns an empty slice and no error.
func Find(doc any, path string) ([]any, error) {
	jp := k8sjsonpath.New("path").AllowMissingKeys(true)
	if err := jp.Parse(wrap(path)); err != nil {
		return nil, fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}

	results, err := jp.FindResults(doc)
	if err != nil {
		return nil, fmt.Errorf("evaluating JSONPath %q: %w", path, err)
	}

	var out []any
	for _, group := range results {
		for _, v := range group {
			out = append(out, unwrap(v))
		}
	}
	return out, nil
}

// Lookup returns the first value matched by path. The bool is false when
// nothing matched; a matched JSON null is returned as (nil, true).
func Lookup(doc any, path string) (any, bool, error) {
	values, err := Find(doc, path)
	if err != nil {
		return nil, false, err
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	return values[0], true, nil
}

func wrap(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "{") {
		return path
	}
	return "{" + path + "}"
}

func unwrap(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer || v.Kind() == reflect.Map || v.Kind() == reflect.Slice) && v.IsNil() {
		return nil
	}
	return v.Interface()
}

// Segment is one step of a simple path: an object member or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Split parses a simple path such as $.a.b[0]['c.d'] into segments.
// Wildcards, filters and recursive descent are rejected.
func Split(path string) ([]Segment, error) {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, Root) {
		return nil, fmt.Errorf("path %q must start with %q", path, Root)
	}

	var segments []Segment
	rest := path[len(Root):]
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			if strings.HasPrefix(rest, ".") {
				return nil, fmt.Errorf("path %q: recursive descent is not supported here", path)
			}
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			key := rest[:end]
			if key == "" || key == "*" {
				return nil, fmt.Errorf("path %q: empty or wildcard member", path)
			}
			segments = append(segments, Segment{Key: key})
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("path %q: unterminated '['", path)
			}
			inner := strings.TrimSpace(rest[1:end])
			rest = rest[end+1:]
			if quoted, ok := unquote(inner); ok {
				segments = append(segments, Segment{Key: quoted})
				continue
			}
			idx, err := strconv.Atoi(inner)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("path %q: unsupported subscript [%s]", path, inner)
			}
			segments = append(segments, Segment{Index: idx, IsIndex: true})
		default:
			return nil, fmt.Errorf("path %q: unexpected %q", path, rest[0])
		}
	}
	return segments, nil
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// ToPointer converts a simple path into an RFC 6901 JSON Pointer.
// The root path "$" maps to the empty pointer.
func ToPointer(path string) (string, error) {
	segments, err := Split(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		if s.IsIndex {
			b.WriteString(strconv.Itoa(s.Index))
			continue
		}
		b.WriteString(escapePointer(s.Key))
	}
	return b.String(), nil
}

func escapePointer(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	return strings.ReplaceAll(key, "/", "~1")
}

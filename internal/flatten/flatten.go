// Package flatten turns a decoded JSON document into a single-level
// dotted-path view.
package flatten

import (
	"encoding/json"
	"strconv"
)

// Root is the prefix of every flattened key.
const Root = "$"

// Map is a flattened document: dotted path to string value.
type Map map[string]string

// Lookup returns the value at path.
func (m Map) Lookup(path string) (string, bool) {
	v, ok := m[path]
	return v, ok
}

// Document flattens doc under the root prefix.
func Document(doc any) Map {
	return Flatten(Root, doc)
}

// Flatten records prefix.key = value for every scalar leaf reachable from
// value through nested objects. Strings, numbers and booleans are leaves.
// Lists and nulls are not expanded and produce no entry.
func Flatten(prefix string, value any) Map {
	out := make(Map)
	walk(prefix, value, out)
	return out
}

func walk(prefix string, value any, out Map) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			walk(prefix+"."+key, child, out)
		}
	case string:
		out[prefix] = v
	case json.Number:
		out[prefix] = v.String()
	case bool:
		out[prefix] = strconv.FormatBool(v)
	case float64:
		out[prefix] = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		out[prefix] = strconv.Itoa(v)
	case int64:
		out[prefix] = strconv.FormatInt(v, 10)
	}
}

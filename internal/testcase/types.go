package testcase

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Method is an HTTP method a test case may use.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// Mapping is a string-keyed mapping that keeps document order.
type Mapping = orderedmap.OrderedMap[string, Scalar]

// GroupValues maps DB assertion group names to positional expected values.
type GroupValues = orderedmap.OrderedMap[string, []Scalar]

// TestCase is one named, declarative scenario.
type TestCase struct {
	TestName    string `json:"testName" yaml:"testName"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url" yaml:"url"`
	Method      Method `json:"method" yaml:"method"`

	// Prerequisite lists test-case documents run, in order, before this one.
	Prerequisite []string `json:"prerequisite,omitempty" yaml:"prerequisite,omitempty"`

	QueryParams *Mapping `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`
	// PathParams replace {name} segments in URL.
	PathParams *Mapping `json:"pathParams,omitempty" yaml:"pathParams,omitempty"`
	// Auth overrides the configured bearer token.
	Auth string `json:"auth,omitempty" yaml:"auth,omitempty"`

	Request       *Request `json:"request,omitempty" yaml:"request,omitempty"`
	Verify        *Verify  `json:"verify,omitempty" yaml:"verify,omitempty"`
	PostProcessor *Mapping `json:"postProcessor,omitempty" yaml:"postProcessor,omitempty"`
}

// Request declares the payload of a test case.
type Request struct {
	RequestResource string `json:"requestResource" yaml:"requestResource"`
	// RequestModificationBody maps paths such as $.a.b to literal overrides.
	RequestModificationBody *Mapping `json:"requestModificationBody,omitempty" yaml:"requestModificationBody,omitempty"`
}

// Verify declares everything checked after the call.
type Verify struct {
	ResponseResourceType string       `json:"responseResourceType,omitempty" yaml:"responseResourceType,omitempty"`
	DefaultAssertions    string       `json:"defaultAssertions,omitempty" yaml:"defaultAssertions,omitempty"`
	ResponseAssertions   *Mapping     `json:"responseAssertions,omitempty" yaml:"responseAssertions,omitempty"`
	DBAssertions         *GroupValues `json:"dbAssertions,omitempty" yaml:"dbAssertions,omitempty"`
	HTTPStatus           int          `json:"httpStatus,omitempty" yaml:"httpStatus,omitempty"`
}

// Entry is one key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value string
}

// Entries returns the pairs of m in document order. A nil mapping has none.
func Entries(m *Mapping) []Entry {
	if m == nil || m.Len() == 0 {
		return nil
	}
	out := make([]Entry, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		out = append(out, Entry{Key: p.Key, Value: p.Value.Text})
	}
	return out
}

// NewMapping builds a Mapping from alternating key/value arguments.
func NewMapping(kv ...string) *Mapping {
	m := orderedmap.New[string, Scalar]()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], Text(kv[i+1]))
	}
	return m
}

// Scalar is a document value compared and substituted as text. Strings,
// numbers and booleans are accepted. A null keeps Null set so that an
// expected null stays distinct from an expected empty string.
type Scalar struct {
	Text string
	Null bool
}

// Text returns a non-null Scalar holding s.
func Text(s string) Scalar {
	return Scalar{Text: s}
}

// NullScalar is the Scalar decoded from a null.
var NullScalar = Scalar{Null: true}

func (s Scalar) String() string {
	if s.Null {
		return "null"
	}
	return s.Text
}

// MarshalJSON writes null for a null Scalar and a JSON string otherwise.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.Null {
		return []byte("null"), nil
	}
	return json.Marshal(s.Text)
}

// UnmarshalJSON accepts any JSON scalar.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*s = NullScalar
	case strings.HasPrefix(trimmed, `"`):
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Text(str)
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		return fmt.Errorf("expected a scalar value, got %s", trimmed)
	default:
		// numbers and booleans keep their exact JSON text
		*s = Text(trimmed)
	}
	return nil
}

// UnmarshalYAML accepts any YAML scalar.
func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	if node.Tag == "!!null" {
		*s = NullScalar
		return nil
	}
	*s = Text(node.Value)
	return nil
}

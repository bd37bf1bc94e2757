// Package assertion verifies an executed test case against its HTTP status,
// its default assertion bundle, its response assertions and its DB assertions.
package assertion

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"tcrun/internal/dbclient"
	"tcrun/internal/flatten"
	"tcrun/internal/jsonpath"
	"tcrun/internal/resource"
	"tcrun/internal/template"
	"tcrun/internal/testcase"
	"tcrun/pkg/logging"
)

// Resolver resolves general and response-parameter placeholders.
type Resolver interface {
	Resolve(text string) (string, error)
	ResolveResponseParams(text string, response any) (string, error)
}

// Options configures an Engine.
type Options struct {
	// BundleDir holds default assertion bundles.
	BundleDir string
	// DBValidationPath is the document holding DB assertion groups.
	DBValidationPath string
	Resolver         Resolver
	// DB runs DB assertion queries. DB assertions fail when it is nil.
	DB dbclient.Querier
}

// Subject is the executed call being verified.
type Subject struct {
	Status   int
	Document any
	Flat     flatten.Map
}

// Engine runs the assertion passes.
type Engine struct {
	bundles  *resource.Loader
	dbDocs   *resource.Loader
	dbPath   string
	resolver Resolver
	db       dbclient.Querier
}

// New creates an assertion engine.
func New(opts Options) *Engine {
	return &Engine{
		bundles:  resource.NewLoader(opts.BundleDir, opts.Resolver),
		dbDocs:   resource.NewLoader("", opts.Resolver),
		dbPath:   opts.DBValidationPath,
		resolver: opts.Resolver,
		db:       opts.DB,
	}
}

// Verify runs the HTTP status check, the default bundle, the response
// assertions and the DB assertions, in that order, and returns the first
// failure.
func (e *Engine) Verify(ctx context.Context, v *testcase.Verify, s Subject) error {
	if v == nil {
		return nil
	}
	if err := CheckStatus(v.HTTPStatus, s.Status); err != nil {
		return err
	}
	if v.DefaultAssertions != "" {
		if err := e.CheckDefault(v.DefaultAssertions, s.Document); err != nil {
			return err
		}
	}
	if err := CheckResponse(v.ResponseAssertions, s.Flat); err != nil {
		return err
	}
	if v.DBAssertions != nil && v.DBAssertions.Len() > 0 {
		if err := e.CheckDB(ctx, v.DBAssertions, s.Document); err != nil {
			return err
		}
	}
	return nil
}

// CheckStatus compares the response status when expected is non-zero.
func CheckStatus(expected, actual int) error {
	if expected == 0 || expected == actual {
		return nil
	}
	return &FailedError{
		Kind:     KindHTTPStatus,
		Key:      "status",
		Expected: strconv.Itoa(expected),
		Actual:   strconv.Itoa(actual),
	}
}

// CheckResponse requires every path in assertions to be present in flat with
// exactly the expected text.
func CheckResponse(assertions *testcase.Mapping, flat flatten.Map) error {
	for _, a := range testcase.Entries(assertions) {
		actual, ok := flat.Lookup(a.Key)
		if !ok || actual != a.Value {
			return &FailedError{Kind: KindResponse, Key: a.Key, Expected: a.Value, Actual: actual, Missing: !ok}
		}
		logging.Debug("Assertions", "Response %s == %q", a.Key, actual)
	}
	return nil
}

// CheckDefault loads the bundle ref and evaluates each of its JSONPath
// expressions against doc. Expected values starting with @ are annotations.
func (e *Engine) CheckDefault(ref string, doc any) error {
	bundle := orderedmap.New[string, testcase.Scalar]()
	if err := e.bundles.Load(ref, bundle); err != nil {
		return err
	}
	source := e.bundles.Path(ref)

	for p := bundle.Oldest(); p != nil; p = p.Next() {
		path, want := p.Key, p.Value
		value, found, err := jsonpath.Lookup(doc, path)
		if err != nil {
			return fmt.Errorf("default assertion %s in %s: %w", path, source, err)
		}

		if !want.Null && strings.HasPrefix(want.Text, AnnotationMarker) {
			check, ok := lookupAnnotation(want.Text)
			if !ok {
				return &UnknownAnnotationError{Annotation: want.Text, Path: path}
			}
			if err := check(value, found); err != nil {
				return &FailedError{Kind: KindDefault, Key: path, Expected: want.Text, Actual: err.Error(), Missing: !found, Source: source}
			}
			continue
		}

		if !found || !matches(want, value) {
			return &FailedError{Kind: KindDefault, Key: path, Expected: want.String(), Actual: template.FormatValue(value), Missing: !found || value == nil, Source: source}
		}
	}
	logging.Debug("Assertions", "Default bundle %s passed (%d entries)", source, bundle.Len())
	return nil
}

// dbGroups maps a group name to its query templates in document order.
type dbGroups = orderedmap.OrderedMap[string, *testcase.Mapping]

// CheckDB runs each referenced group's queries and compares result i with
// expected value i. A length mismatch fails before any query of the group runs.
func (e *Engine) CheckDB(ctx context.Context, assertions *testcase.GroupValues, doc any) error {
	if e.db == nil {
		return fmt.Errorf("db assertions declared but no database is configured")
	}
	if e.dbPath == "" {
		return fmt.Errorf("db assertions declared but no DB validation document is configured")
	}

	groups := orderedmap.New[string, *testcase.Mapping]()
	if err := e.dbDocs.Load(e.dbPath, groups); err != nil {
		return err
	}

	for p := assertions.Oldest(); p != nil; p = p.Next() {
		if err := e.checkGroup(ctx, groups, p.Key, p.Value, doc); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) checkGroup(ctx context.Context, groups *dbGroups, name string, expected []testcase.Scalar, doc any) error {
	group, ok := groups.Get(name)
	if !ok {
		return &resource.LoadError{Path: e.dbPath, Kind: resource.KindDBGroup, Err: fmt.Errorf("group %q is not defined", name)}
	}

	queries := testcase.Entries(group)
	if len(queries) != len(expected) {
		return &ArityError{Group: name, Queries: len(queries), Expected: len(expected)}
	}

	for i, q := range queries {
		query, err := e.resolver.ResolveResponseParams(q.Key, doc)
		if err != nil {
			return fmt.Errorf("db group %q query %d: %w", name, i+1, err)
		}

		value, err := e.db.ExecuteSelectQuery(ctx, query)
		if err != nil {
			return fmt.Errorf("db group %q: %w", name, err)
		}

		if !matches(expected[i], value) {
			return &FailedError{Kind: KindDB, Key: query, Expected: expected[i].String(), Actual: template.FormatValue(value), Missing: value == nil, Source: name}
		}
		logging.Debug("Assertions", "DB %s[%d] == %s", name, i, expected[i])
	}
	return nil
}

// matches compares an actual value with its expected Scalar. A nil actual
// only matches an expected null and never the empty string.
func matches(want testcase.Scalar, actual any) bool {
	if actual == nil || want.Null {
		return actual == nil && want.Null
	}
	return template.FormatValue(actual) == want.Text
}

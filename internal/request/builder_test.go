package request

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcrun/internal/resource"
	"tcrun/internal/template"
	"tcrun/internal/testcase"
	"tcrun/internal/variables"
)

type account struct {
	Name    string   `json:"name"`
	Owner   string   `json:"owner"`
	Tags    []string `json:"tags,omitempty"`
	Balance int      `json:"balance,omitempty"`
}

func newBuilder(t *testing.T, files map[string]string, vars map[string]string) (*Builder, *resource.TypeRegistry) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	ctx := variables.NewContext()
	for k, v := range vars {
		ctx.Set(k, v)
	}
	types := resource.NewTypeRegistry()
	return NewBuilder(resource.NewLoader(dir, template.New(ctx, nil)), types), types
}

func TestBuild_NilDeclaration(t *testing.T) {
	b, _ := newBuilder(t, nil, nil)
	p, err := b.Build(nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestBuild_OverridePrecedence(t *testing.T) {
	b, _ := newBuilder(t, map[string]string{"x.json": `{"x":1}`}, nil)

	p, err := b.Build(&testcase.Request{
		RequestResource:         "x.json",
		RequestModificationBody: testcase.NewMapping("$.x", "2"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"2"}`, string(p.Body))
	assert.Equal(t, map[string]any{"x": "2"}, p.Value)

	// a mapping keeps one value per key, so "later wins" is exercised with
	// two spellings of the same location
	p, err = b.Build(&testcase.Request{
		RequestResource:         "x.json",
		RequestModificationBody: testcase.NewMapping("$.x", "2", "$['x']", "3"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"3"}`, string(p.Body))
}

func TestBuild_TemplatedFixture(t *testing.T) {
	b, _ := newBuilder(t,
		map[string]string{"account.json": `{"name":"${genName}","owner":"${owner}"}`},
		map[string]string{"owner": "bob"},
	)

	p, err := b.Build(&testcase.Request{RequestResource: "account.json"})
	require.NoError(t, err)

	m, ok := p.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bob", m["owner"])
	assert.Regexp(t, `^tc-[A-Za-z]{10}$`, m["name"])
}

func TestBuild_NestedAndArrayOverrides(t *testing.T) {
	b, _ := newBuilder(t, map[string]string{
		"order.json": `{"customer":{"id":"c1"},"items":[{"sku":"a"},{"sku":"b"}]}`,
	}, nil)

	p, err := b.Build(&testcase.Request{
		RequestResource: "order.json",
		RequestModificationBody: testcase.NewMapping(
			"$.customer.id", "c2",
			"$.items[1].sku", "z",
			"$.meta.source", "tcrun",
		),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"customer":{"id":"c2"},"items":[{"sku":"a"},{"sku":"z"}],"meta":{"source":"tcrun"}}`, string(p.Body))
}

func TestBuild_ArrayIndexOutOfRange(t *testing.T) {
	b, _ := newBuilder(t, map[string]string{"list.json": `{"items":["a"]}`}, nil)

	_, err := b.Build(&testcase.Request{
		RequestResource:         "list.json",
		RequestModificationBody: testcase.NewMapping("$.items[3]", "x"),
	})
	require.Error(t, err)
	assert.True(t, resource.IsSerializationError(err))
}

func TestBuild_RegisteredType(t *testing.T) {
	b, types := newBuilder(t, map[string]string{"account.json": `{"name":"n","owner":"o","balance":3}`}, nil)
	types.Register("account", resource.TypeOf[account]())

	p, err := b.Build(&testcase.Request{
		RequestResource:         "account.json",
		RequestModificationBody: testcase.NewMapping("$.owner", "changed"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"n","owner":"changed","balance":3}`, string(p.Body))

	p, err = b.Build(&testcase.Request{RequestResource: "account.json"})
	require.NoError(t, err)
	assert.Equal(t, &account{Name: "n", Owner: "o", Balance: 3}, p.Value)
}

func TestBuild_OverrideOnTypedNonStringField(t *testing.T) {
	b, types := newBuilder(t, map[string]string{"x.json": `{"x":1}`}, nil)
	types.Register("x", resource.TypeOf[struct {
		X int `json:"x"`
	}]())

	p, err := b.Build(&testcase.Request{
		RequestResource:         "x.json",
		RequestModificationBody: testcase.NewMapping("$.x", "2"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"2"}`, string(p.Body))
	assert.Equal(t, map[string]any{"x": "2"}, p.Value)
}

func TestBuild_YAMLFixture(t *testing.T) {
	b, _ := newBuilder(t, map[string]string{"account.yaml": "name: n\ntags:\n  - a\n"}, nil)

	p, err := b.Build(&testcase.Request{RequestResource: "account.yaml"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"n","tags":["a"]}`, string(p.Body))
}

func TestBuild_Errors(t *testing.T) {
	b, _ := newBuilder(t, map[string]string{
		"unbound.json": `{"a":"${nope}"}`,
		"broken.json":  `{"a":`,
	}, nil)

	_, err := b.Build(&testcase.Request{RequestResource: "missing.json"})
	assert.True(t, resource.IsLoadError(err))

	_, err = b.Build(&testcase.Request{RequestResource: "unbound.json"})
	assert.True(t, template.IsResolutionError(err))

	_, err = b.Build(&testcase.Request{RequestResource: "broken.json"})
	assert.True(t, resource.IsSerializationError(err))
}

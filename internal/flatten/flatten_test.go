package flatten

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcrun/internal/jsonpath"
	"tcrun/internal/resource"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := resource.DecodeGeneric([]byte(s))
	require.NoError(t, err)
	return v
}

func TestFlatten(t *testing.T) {
	doc := decode(t, `{
		"id": "123",
		"status": "ACTIVE",
		"account": {"balance": 10.50, "verified": true, "owner": {"name": "bob"}},
		"tags": ["a", "b"],
		"closedAt": null
	}`)

	got := Document(doc)
	assert.Equal(t, Map{
		"$.id":                 "123",
		"$.status":             "ACTIVE",
		"$.account.balance":    "10.50",
		"$.account.verified":   "true",
		"$.account.owner.name": "bob",
	}, got)

	_, ok := got.Lookup("$.tags")
	assert.False(t, ok, "lists are not expanded")
	_, ok = got.Lookup("$.closedAt")
	assert.False(t, ok, "nulls are skipped")
}

func TestFlatten_ScalarRoot(t *testing.T) {
	assert.Equal(t, Map{"$": "x"}, Document("x"))
	assert.Empty(t, Document(nil))
	assert.Empty(t, Document([]any{"a"}))
}

func TestFlatten_PlainFloats(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"n":3,"f":1.25}`), &doc))
	assert.Equal(t, Map{"$.n": "3", "$.f": "1.25"}, Document(doc))
}

// For objects whose leaves are all scalars, every leaf appears exactly once
// and JSONPath on the original document agrees with the flattened value.
func TestFlatten_MatchesJSONPath(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 25; i++ {
		doc, leaves := randomObject(r, 3)
		flat := Document(doc)
		require.Len(t, flat, leaves)

		for path, want := range flat {
			got, found, err := jsonpath.Lookup(doc, path)
			require.NoError(t, err)
			require.True(t, found, path)
			assert.Equal(t, want, got.(string), path)
		}
	}
}

func randomObject(r *rand.Rand, depth int) (map[string]any, int) {
	obj := make(map[string]any)
	leaves := 0
	for i := 0; i < 1+r.Intn(4); i++ {
		key := "k" + strconv.Itoa(i)
		if depth > 0 && r.Intn(3) == 0 {
			child, n := randomObject(r, depth-1)
			obj[key] = child
			leaves += n
			continue
		}
		obj[key] = "v" + strconv.Itoa(r.Intn(1000))
		leaves++
	}
	return obj, leaves
}

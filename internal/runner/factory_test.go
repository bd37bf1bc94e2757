package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcrun/internal/config"
	"tcrun/internal/resource"
)

func TestNewEnvironment_WithoutDatabase(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.TestCaseDir = t.TempDir()

	env, err := NewEnvironment(context.Background(), cfg)
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Client)
	assert.Contains(t, env.Helpers.Names(), "genName")

	factory := env.Factory(nil, false)
	a, b := factory(), factory()
	a.Variables().Set("x", "1")
	_, shared := b.Variables().Get("x")
	assert.False(t, shared, "each runner gets its own variable context")
}

func TestNewEnvironment_RegistersConfiguredTypes(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.TestCaseDir = t.TempDir()
	cfg.Types = map[string]config.TypeConfig{"account": {Required: []string{"id"}}}

	env, err := NewEnvironment(context.Background(), cfg)
	require.NoError(t, err)
	defer env.Close()

	_, ok := env.Types.Lookup("fixtures/account.json")
	assert.True(t, ok)

	_, err = env.Types.Decode("account", []byte(`{"name":"n"}`))
	assert.True(t, resource.IsSerializationError(err))
}

func TestNewEnvironment_UnreachableDatabase(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Database = config.DatabaseConfig{Driver: "postgres", DSN: "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"}

	_, err := NewEnvironment(context.Background(), cfg)
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "endpoint: http://from-file:4000\n")
	t.Setenv("APOLLO_MCP_ENDPOINT", "https://from-env:4000/")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env:4000/", cfg.Endpoint)
}

func TestLoad_NestedEnvSeparator(t *testing.T) {
	path := writeConfigFile(t, "overrides:\n  disable_type_description: false\n")
	t.Setenv("APOLLO_MCP_OVERRIDES__DISABLE_TYPE_DESCRIPTION", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Overrides.DisableTypeDescription)
}

func TestLoad_MergesEnvAndFile(t *testing.T) {
	path := writeConfigFile(t, "endpoint: http://from-file:4000/\n")
	t.Setenv("APOLLO_MCP_INTROSPECTION__EXECUTE__ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:4000/", cfg.Endpoint)
	assert.True(t, cfg.Introspection.Execute.Enabled)
}

func TestLoad_CommonApolloEnvVars(t *testing.T) {
	path := writeConfigFile(t, "endpoint: http://from-file:4000/\n")
	t.Setenv("APOLLO_GRAPH_REF", "my-graph@prod")
	t.Setenv("APOLLO_KEY", "service:my-graph:abc123")
	t.Setenv("APOLLO_UPLINK_ENDPOINTS", "http://from-env:4000/,http://from-env2:4000/")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-graph@prod", cfg.GraphOS.ApolloGraphRef)
	assert.Equal(t, "service:my-graph:abc123", cfg.GraphOS.ApolloKey)
	require.Len(t, cfg.GraphOS.ApolloUplinkEndpoints, 2)
	assert.Equal(t, "http://from-env:4000/", cfg.GraphOS.ApolloUplinkEndpoints[0])
	assert.Equal(t, "http://from-env2:4000/", cfg.GraphOS.ApolloUplinkEndpoints[1])
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "hourly", cfg.Logging.Rotation)
	assert.False(t, cfg.HealthCheck.Enabled)
	assert.Equal(t, "/health", cfg.HealthCheck.Path)
	assert.Equal(t, 100, cfg.HealthCheck.Readiness.Allowed)
	assert.Equal(t, int64(50_000_000), cfg.Introspection.Search.IndexMemoryBytes)
	assert.Equal(t, 1, cfg.Introspection.Search.LeafDepth)
	assert.Equal(t, string(TransportStdio), string(cfg.Transport.Type))
	assert.Equal(t, string(OperationSourceInfer), string(cfg.Operations.Source))
}

func TestGraphOSConfig_GraphRef(t *testing.T) {
	g := GraphOSConfig{ApolloGraphRef: "my-graph@prod"}
	graph, variant, ok := g.GraphRef()
	require.True(t, ok)
	assert.Equal(t, "my-graph", graph)
	assert.Equal(t, "prod", variant)

	empty := GraphOSConfig{}
	_, _, ok = empty.GraphRef()
	assert.False(t, ok)
}

func TestConfig_Validate_RejectsBadMutationMode(t *testing.T) {
	cfg := Config{Overrides: OverridesConfig{MutationMode: "bogus"}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfig_CompileOptions_ParsesMutationMode(t *testing.T) {
	cfg := Config{Overrides: OverridesConfig{MutationMode: "all"}}
	opts, err := cfg.CompileOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, "all", opts.MutationMode.String())
}

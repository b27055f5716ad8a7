package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/apollographql/mcp-server-go/internal/operations"
	"github.com/apollographql/mcp-server-go/internal/poller"
	"github.com/apollographql/mcp-server-go/internal/statemachine"
)

const testSDL = `
type Query {
  widget(id: ID!): Widget
}

type Mutation {
  updateWidget(id: ID!): Widget
}

type Widget {
  id: ID!
  name: String
}
`

func TestMergeHeaders_OperationDefaultsOverrideServerDefaults(t *testing.T) {
	merged := mergeHeaders(
		map[string]string{"X-Shared": "server", "X-Only-Server": "1"},
		"",
		map[string]string{"X-Shared": "operation"},
	)
	assert.Equal(t, "operation", merged["X-Shared"])
	assert.Equal(t, "1", merged["X-Only-Server"])
	assert.Equal(t, "application/json", merged["Content-Type"])
	_, hasAuth := merged["Authorization"]
	assert.False(t, hasAuth)
}

func TestMergeHeaders_BearerTokenOverlaysBetweenDefaultsAndOperation(t *testing.T) {
	merged := mergeHeaders(nil, "token-123", nil)
	assert.Equal(t, "Bearer token-123", merged["Authorization"])
}

func TestMergeVariables_OperationDefaultFillsAbsentKey(t *testing.T) {
	merged, err := mergeVariables(map[string]any{"id": "1"}, map[string]any{"limit": 10.0})
	require.NoError(t, err)
	assert.Equal(t, "1", merged["id"])
	assert.Equal(t, 10.0, merged["limit"])
}

func TestMergeVariables_ConflictingKeyIsInvalidParams(t *testing.T) {
	_, err := mergeVariables(map[string]any{"id": "1"}, map[string]any{"id": "2"})
	require.Error(t, err)
	var invalid *invalidParamsError
	assert.ErrorAs(t, err, &invalid)
}

func TestParseVariablesInput(t *testing.T) {
	t.Run("nil is empty", func(t *testing.T) {
		v, err := parseVariablesInput(nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})
	t.Run("object passes through", func(t *testing.T) {
		v, err := parseVariablesInput(map[string]any{"id": "1"})
		require.NoError(t, err)
		assert.Equal(t, "1", v["id"])
	})
	t.Run("json string is decoded", func(t *testing.T) {
		v, err := parseVariablesInput(`{"id":"1"}`)
		require.NoError(t, err)
		assert.Equal(t, "1", v["id"])
	})
	t.Run("malformed string is invalid params", func(t *testing.T) {
		_, err := parseVariablesInput(`not json`)
		require.Error(t, err)
	})
	t.Run("other types are rejected", func(t *testing.T) {
		_, err := parseVariablesInput(42.0)
		require.Error(t, err)
	})
}

// buildRunningServer drives a Machine from Configuring to Running with
// testSDL and one compiled operation, wires a Server to it pointed at a
// fake upstream, and waits for the tool set to be built.
func buildRunningServer(t *testing.T, upstreamURL string, cfg Config) (*Server, func()) {
	t.Helper()

	m := statemachine.New(operations.CompileOptions{MutationMode: cfg.MutationMode})
	ctx, cancel := context.WithCancel(t.Context())

	var bound *mcp.Server
	boundCh := make(chan struct{}, 1)
	binder := func(_ context.Context, srv *mcp.Server) error {
		bound = srv
		select {
		case boundCh <- struct{}{}:
		default:
		}
		return nil
	}

	s := New(m, upstreamURL, 5*time.Second, cfg, nil, binder, logr.Discard())

	schemaEvents := make(chan poller.SchemaSourceEvent, 1)
	opEvents := make(chan poller.OperationSourceEvent, 1)
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, schemaEvents, opEvents) }()

	schemaEvents <- poller.SchemaSourceEvent{Schema: mustTestSchema(t)}
	opEvents <- poller.OperationSourceEvent{Operations: []operations.RawOperation{
		{SourceText: `query GetWidget($id: ID!) { widget(id: $id) { id name } }`},
	}}

	select {
	case <-boundCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the tool set to be bound")
	}
	_ = bound

	return s, func() {
		cancel()
		<-done
	}
}

func mustTestSchema(t *testing.T) *gqlschema.Schema {
	t.Helper()
	s, err := gqlschema.Parse(testSDL, "launch-1")
	require.NoError(t, err)
	return s
}

func TestServer_CompiledOperationForwardsToUpstream(t *testing.T) {
	var gotBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"widget":{"id":"1","name":"Widget One"}}}`))
	}))
	defer upstream.Close()

	s, stop := buildRunningServer(t, upstream.URL, DefaultConfig())
	defer stop()

	op, ok := s.machine.Lookup("GetWidget")
	require.True(t, ok)

	result, _, err := s.executeOperation(t.Context(), op, map[string]any{"id": "1"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "1", gotBody["variables"].(map[string]any)["id"])

	text := result.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, "Widget One")
}

func TestServer_CompiledOperationSurfacesUpstreamGraphQLErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"widget not found"}]}`))
	}))
	defer upstream.Close()

	s, stop := buildRunningServer(t, upstream.URL, DefaultConfig())
	defer stop()

	op, ok := s.machine.Lookup("GetWidget")
	require.True(t, ok)

	result, _, err := s.executeOperation(t.Context(), op, map[string]any{"id": "1"})
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, "widget not found")
}

func TestServer_IntrospectReturnsOneBlockPerType(t *testing.T) {
	s, stop := buildRunningServer(t, "http://example.invalid", DefaultConfig())
	defer stop()

	result, _, err := s.introspectHandler(t.Context(), nil, map[string]any{"type_name": "Widget"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, "type Widget")
}

func TestServer_IntrospectUnknownTypeIsEmptyNotError(t *testing.T) {
	s, stop := buildRunningServer(t, "http://example.invalid", DefaultConfig())
	defer stop()

	result, _, err := s.introspectHandler(t.Context(), nil, map[string]any{"type_name": "DoesNotExist"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "", result.Content[0].(*mcp.TextContent).Text)
}

func TestServer_SearchFindsWidget(t *testing.T) {
	s, stop := buildRunningServer(t, "http://example.invalid", DefaultConfig())
	defer stop()

	result, _, err := s.searchHandler(t.Context(), nil, map[string]any{"terms": []any{"widget"}})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
}

func TestServer_ValidateReportsErrorsAsText(t *testing.T) {
	s, stop := buildRunningServer(t, "http://example.invalid", DefaultConfig())
	defer stop()

	result, _, err := s.validateHandler(t.Context(), nil, map[string]any{"query": "{ doesNotExist }"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Content[0].(*mcp.TextContent).Text)
}

func TestServer_ValidateEmptyOnSuccess(t *testing.T) {
	s, stop := buildRunningServer(t, "http://example.invalid", DefaultConfig())
	defer stop()

	result, _, err := s.validateHandler(t.Context(), nil, map[string]any{"query": `query { widget(id: "1") { id } }`})
	require.NoError(t, err)
	assert.Equal(t, "", result.Content[0].(*mcp.TextContent).Text)
}

func TestServer_ExecuteRejectsMutationWhenModeIsNone(t *testing.T) {
	s, stop := buildRunningServer(t, "http://example.invalid", DefaultConfig())
	defer stop()

	_, _, err := s.executeHandler(t.Context(), nil, map[string]any{"query": `mutation { updateWidget(id: "1") { id } }`})
	require.Error(t, err)
}

func TestServer_ExecuteAllowsMutationWhenModeIsAll(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"updateWidget":{"id":"1"}}}`))
	}))
	defer upstream.Close()

	cfg := DefaultConfig()
	cfg.MutationMode = operations.MutationModeAll
	s, stop := buildRunningServer(t, upstream.URL, cfg)
	defer stop()

	result, _, err := s.executeHandler(t.Context(), nil, map[string]any{"query": `mutation { updateWidget(id: "1") { id } }`})
	require.NoError(t, err)
	require.False(t, result.IsError)
}

func TestServer_ExplorerDisabledByDefault(t *testing.T) {
	s, stop := buildRunningServer(t, "http://example.invalid", DefaultConfig())
	defer stop()
	assert.Nil(t, s.explore)
}

func TestServer_ExplorerBuildsURLWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExplorerGraphRef = "my-graph@prod"
	s, stop := buildRunningServer(t, "http://example.invalid", cfg)
	defer stop()

	result, _, err := s.explorerHandler(t.Context(), nil, map[string]any{"document": `{query{widget{id}}}`})
	require.NoError(t, err)
	assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, "https://studio.apollographql.com/graph/my-graph/variant/prod/explorer")
}

package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SplitsGraphRefOnAt(t *testing.T) {
	e := New("mcp-example@mcp")
	assert.Equal(t, "mcp-example", e.graphID)
	assert.Equal(t, "mcp", e.variant)
}

func TestNew_DefaultsVariantToCurrent(t *testing.T) {
	e := New("mcp-example")
	assert.Equal(t, "mcp-example", e.graphID)
	assert.Equal(t, "current", e.variant)
}

func TestBuildURL_HasExpectedShape(t *testing.T) {
	e := New("mcp-example@mcp")
	got, err := e.BuildURL(Input{Document: "query { widget { id } }"})
	require.NoError(t, err)
	assert.Contains(t, got, "https://studio.apollographql.com/graph/mcp-example/variant/mcp/explorer?explorerURLState=")
	assert.NotContains(t, got, "{}{}{}")
}

func TestBuildURL_DefaultsMissingFieldsToEmptyObject(t *testing.T) {
	e := New("g@v")
	withAll, err := e.BuildURL(Input{Document: "{}", Variables: "{}", Headers: "{}"})
	require.NoError(t, err)
	withNone, err := e.BuildURL(Input{})
	require.NoError(t, err)
	assert.Equal(t, withAll, withNone)
}

func TestCompressToEncodedURIComponent_EmptyInput(t *testing.T) {
	assert.Equal(t, "", compressToEncodedURIComponent(""))
}

func TestCompressToEncodedURIComponent_UsesURISafeAlphabet(t *testing.T) {
	out := compressToEncodedURIComponent(`{"document":"query { widget { id } }","variables":"{}","headers":"{}"}`)
	require.NotEmpty(t, out)
	for _, r := range out {
		assert.Contains(t, uriSafeAlphabet, string(r))
	}
}

func TestCompressToEncodedURIComponent_DeterministicForSameInput(t *testing.T) {
	in := `{"document":"query Foo { bar }","variables":"{}","headers":"{}"}`
	assert.Equal(t, compressToEncodedURIComponent(in), compressToEncodedURIComponent(in))
}

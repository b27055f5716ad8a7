package graphqlupstream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_SendsQueryAndVariables(t *testing.T) {
	var gotBody wireRequest
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		gotHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{"widget":{"id":"1"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.Execute(t.Context(), Request{
		Query:     "query Widget($id: ID!) { widget(id: $id) { id } }",
		Variables: map[string]any{"id": "1"},
		Headers:   map[string]string{"Authorization": "Bearer tok"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"widget":{"id":"1"}}`, string(resp.Data))
	assert.Equal(t, "query Widget($id: ID!) { widget(id: $id) { id } }", gotBody.Query)
	assert.Equal(t, "Bearer tok", gotHeader)
}

func TestExecute_OmitsQueryWhenPersistedQueryIDSetAndNoSourceText(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Execute(t.Context(), Request{PersistedQueryID: "abc123"})
	require.NoError(t, err)

	_, hasQuery := gotBody["query"]
	assert.False(t, hasQuery)
	ext := gotBody["extensions"].(map[string]any)["persistedQuery"].(map[string]any)
	assert.Equal(t, "abc123", ext["sha256Hash"])
	assert.Equal(t, float64(1), ext["version"])
}

func TestExecute_ReturnsErrorOnNon200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Execute(t.Context(), Request{Query: "{ __typename }"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestExecute_PropagatesGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"field not found"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.Execute(t.Context(), Request{Query: "{ bogus }"})
	require.NoError(t, err)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "field not found", resp.Errors[0].Message)
}

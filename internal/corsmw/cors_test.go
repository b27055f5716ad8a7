package corsmw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsWildcardOrigin(t *testing.T) {
	c := DefaultConfig()
	c.Origins = []string{"*"}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allow_any_origin")
}

func TestValidate_RejectsTrailingSlashOrigin(t *testing.T) {
	c := DefaultConfig()
	c.Origins = []string{"https://example.com/"}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing slashes")
}

func TestValidate_RejectsCredentialsWithAnyOrigin(t *testing.T) {
	c := DefaultConfig()
	c.AllowCredentials = true
	c.AllowAnyOrigin = true
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allow_any_origin")
}

func TestValidate_RejectsCredentialsWithWildcardHeaders(t *testing.T) {
	c := DefaultConfig()
	c.AllowCredentials = true
	c.AllowHeaders = []string{"*"}
	err := c.Validate()
	require.Error(t, err)
}

func TestValidate_AcceptsDefaultConfig(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestMiddleware_DisabledIsIdentity(t *testing.T) {
	mw, err := Middleware(Config{Enabled: false})
	require.NoError(t, err)

	called := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestMiddleware_RejectsInvalidConfig(t *testing.T) {
	_, err := Middleware(Config{Enabled: true, Origins: []string{"*"}})
	require.Error(t, err)
}

func TestMiddleware_SetsAllowOriginHeader(t *testing.T) {
	c := DefaultConfig()
	c.Enabled = true
	mw, err := Middleware(c)
	require.NoError(t, err)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://studio.apollographql.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://studio.apollographql.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

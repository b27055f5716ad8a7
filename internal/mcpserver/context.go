package mcpserver

import (
	"context"

	"github.com/apollographql/mcp-server-go/internal/auth"
)

// contextKey namespaces this package's context values, following the
// teacher's passthruHeadersKey{} pattern in graphql_executor.go.
type contextKey struct{}

var validTokenKey = contextKey{}

// WithValidToken attaches a validated bearer token to ctx. The HTTP
// transport layer calls this (after running the token through an
// auth.Validator) before dispatching into the MCP handler, so header
// merging can find it without threading the token through every call
// signature.
func WithValidToken(ctx context.Context, token *auth.ValidToken) context.Context {
	return context.WithValue(ctx, validTokenKey, token)
}

// ValidTokenFromContext returns the token WithValidToken attached, if any.
func ValidTokenFromContext(ctx context.Context) (*auth.ValidToken, bool) {
	token, ok := ctx.Value(validTokenKey).(*auth.ValidToken)
	if !ok || token == nil {
		return nil, false
	}
	return token, true
}

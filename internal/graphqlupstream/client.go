// Package graphqlupstream executes compiled operations and introspection
// queries against the configured GraphQL endpoint. Grounded on the
// teacher's pkg/graphqlmcp/graphql.go GraphQLClient: a thin net/http
// wrapper rather than a third-party GraphQL client, since the pack's only
// alternative (machinebox/graphql, used by wricardo-graphql-mcp) has no
// slot for operationName or extensions.persistedQuery (see DESIGN.md).
package graphqlupstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client POSTs GraphQL requests to a single upstream endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New builds a Client with the given request timeout.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Request is one upstream GraphQL call. Query may be empty when
// PersistedQueryID is set — the server is expected to resolve it from its
// own persisted-query cache.
type Request struct {
	Query            string
	OperationName    string
	Variables        map[string]any
	PersistedQueryID string
	Headers          map[string]string
}

type wireExtensions struct {
	PersistedQuery *wirePersistedQuery `json:"persistedQuery,omitempty"`
}

type wirePersistedQuery struct {
	Version    int    `json:"version"`
	Sha256Hash string `json:"sha256Hash"`
}

type wireRequest struct {
	Query         string          `json:"query,omitempty"`
	OperationName string          `json:"operationName,omitempty"`
	Variables     map[string]any  `json:"variables,omitempty"`
	Extensions    *wireExtensions `json:"extensions,omitempty"`
}

// Response is the upstream's GraphQL response envelope.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// ResponseError is one entry of a GraphQL response's top-level errors array.
type ResponseError struct {
	Message string `json:"message"`
}

// Execute sends req to the configured endpoint and decodes the response
// envelope. Transport and decode failures are returned as plain errors;
// callers are expected to turn them into MCP tool-call error results
// rather than protocol-level errors, per the executor's contract.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	wire := wireRequest{
		Query:         req.Query,
		OperationName: req.OperationName,
		Variables:     req.Variables,
	}
	if req.PersistedQueryID != "" {
		wire.Extensions = &wireExtensions{
			PersistedQuery: &wirePersistedQuery{Version: 1, Sha256Hash: req.PersistedQueryID},
		}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute upstream request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded Response
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}
	return &decoded, nil
}

package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/apollographql/mcp-server-go/internal/explorer"
	"github.com/apollographql/mcp-server-go/internal/graphqlupstream"
	"github.com/apollographql/mcp-server-go/internal/operations"
	"github.com/apollographql/mcp-server-go/internal/searchindex"
	"github.com/apollographql/mcp-server-go/internal/treeshake"
)

// addMetaTools registers introspect, search, validate, execute, and
// explorer according to which ones this server's Config enables.
func (s *Server) addMetaTools(srv *mcp.Server) {
	if s.cfg.EnableIntrospect {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        introspectToolName,
			Description: "Look up a GraphQL type from the current schema, tree-shaken to the types and arguments it reaches.",
			InputSchema: introspectInputSchema,
		}, s.introspectHandler)
	}
	if s.cfg.EnableSearch {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        searchToolName,
			Description: "Search the current schema for types matching the given terms, returning each as a root-rooted, tree-shaken path.",
			InputSchema: searchInputSchema,
		}, s.searchHandler)
	}
	if s.cfg.EnableValidate {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        validateToolName,
			Description: "Validate a GraphQL operation against the current schema without executing it.",
			InputSchema: validateInputSchema,
		}, s.validateHandler)
	}
	if s.cfg.EnableExecute {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        executeToolName,
			Description: "Execute an ad hoc GraphQL operation against the upstream endpoint. Use introspect and validate first.",
			InputSchema: executeInputSchema,
		}, s.executeHandler)
	}
	if s.explore != nil {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        explorerToolName,
			Description: "Build an Apollo Studio Explorer deep link for a GraphQL document, variables, and headers.",
			InputSchema: explorerInputSchema,
		}, s.explorerHandler)
	}
}

func (s *Server) introspectHandler(_ context.Context, _ *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
	typeName, _ := input["type_name"].(string)
	if typeName == "" {
		return nil, nil, invalidParams("type_name is required")
	}

	depth := s.cfg.IntrospectDefaultDepth
	if raw, ok := input["depth"]; ok {
		if f, ok := raw.(float64); ok {
			depth = int(f)
		}
	}

	schema := s.machine.Schema()
	if schema == nil {
		return errorResult("no schema is currently available"), nil, nil
	}

	blocks, err := treeshake.RetainTypeBlocks(schema.AST, typeName, treeshake.FromInt(depth))
	if err != nil {
		// Unknown type: an empty, non-error result per §4.6.
		return textResult(""), nil, nil
	}

	return &mcp.CallToolResult{Content: blockContent(blocks)}, nil, nil
}

func blockContent(blocks []treeshake.TypeBlock) []mcp.Content {
	content := make([]mcp.Content, 0, len(blocks))
	for _, b := range blocks {
		content = append(content, &mcp.TextContent{Text: b.SDL})
	}
	return content
}

func (s *Server) searchHandler(_ context.Context, _ *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
	rawTerms, _ := input["terms"].([]any)
	terms := make([]string, 0, len(rawTerms))
	for _, t := range rawTerms {
		if str, ok := t.(string); ok {
			terms = append(terms, str)
		}
	}
	if len(terms) == 0 {
		return nil, nil, invalidParams("terms is required")
	}

	schema := s.machine.Schema()
	if schema == nil {
		return errorResult("no schema is currently available"), nil, nil
	}

	idx := s.search.Get(schema)
	paths := idx.Search(terms, searchindex.DefaultOptions())
	if len(paths) > 5 {
		paths = paths[:5]
	}

	var content []mcp.Content
	for _, p := range paths {
		shaken, err := treeshake.RetainPath(schema.AST, p.Types, treeshake.FromInt(s.cfg.SearchLeafDepth))
		if err != nil {
			continue
		}
		content = append(content, &mcp.TextContent{Text: shaken.SDL})
	}
	if len(content) == 0 {
		return textResult(""), nil, nil
	}
	return &mcp.CallToolResult{Content: content}, nil, nil
}

func (s *Server) validateHandler(_ context.Context, _ *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
	query, _ := input["query"].(string)
	if query == "" {
		return nil, nil, invalidParams("query is required")
	}

	schema := s.machine.Schema()
	if schema == nil {
		return errorResult("no schema is currently available"), nil, nil
	}

	_, gqlErrs := gqlparser.LoadQuery(schema.AST, query)
	if len(gqlErrs) > 0 {
		return textResult(gqlErrs.Error()), nil, nil
	}
	return textResult(""), nil, nil
}

func (s *Server) executeHandler(ctx context.Context, _ *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
	query, _ := input["query"].(string)
	if query == "" {
		return nil, nil, invalidParams("query is required")
	}

	variables, err := parseVariablesInput(input["variables"])
	if err != nil {
		return nil, nil, err
	}

	schema := s.machine.Schema()
	if schema == nil {
		return errorResult("no schema is currently available"), nil, nil
	}

	doc, gqlErrs := gqlparser.LoadQuery(schema.AST, query)
	if len(gqlErrs) > 0 {
		return nil, nil, invalidParams("%s", gqlErrs.Error())
	}
	if len(doc.Operations) != 1 {
		return nil, nil, invalidParams("query must contain exactly one operation")
	}
	op := doc.Operations[0]
	if op.Operation == ast.Subscription {
		return nil, nil, invalidParams("subscriptions cannot be executed")
	}
	if op.Operation == ast.Mutation && s.cfg.MutationMode != operations.MutationModeAll {
		return nil, nil, invalidParams("mutations require mutation_mode: all")
	}

	var bearer string
	if token, ok := ValidTokenFromContext(ctx); ok {
		bearer = token.Raw
	}
	headers := mergeHeaders(s.cfg.DefaultHeaders, bearer, nil)

	resp, err := s.upstream.Execute(ctx, graphqlupstream.Request{
		Query:         query,
		OperationName: op.Name,
		Variables:     variables,
		Headers:       headers,
	})
	if err != nil {
		return errorResult("upstream request failed: " + err.Error()), nil, nil
	}
	return upstreamResponseResult(resp), nil, nil
}

// parseVariablesInput accepts the same two shapes the original execute
// tool does: a JSON object, or a JSON-encoded string of one.
func parseVariablesInput(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, invalidParams("invalid variables: %v", err)
		}
		return out, nil
	default:
		return nil, invalidParams("variables must be a JSON object or a JSON-encoded string")
	}
}

func (s *Server) explorerHandler(_ context.Context, _ *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
	document, _ := input["document"].(string)
	variables, _ := input["variables"].(string)
	headers, _ := input["headers"].(string)

	url, err := s.explore.BuildURL(explorer.Input{Document: document, Variables: variables, Headers: headers})
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(url), nil, nil
}

package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apollographql/mcp-server-go/internal/graphqlupstream"
	"github.com/apollographql/mcp-server-go/internal/operations"
)

// addCompiledOperationTool registers one tool per compiled operation,
// forwarding every call straight to the upstream endpoint (§4.6 "compiled
// operation tool"). Grounded on the teacher's addQueryTool/addMutationTool,
// generalized from a schema-reflected field to a pre-compiled operation.
func (s *Server) addCompiledOperationTool(srv *mcp.Server, op *operations.Operation) {
	tool := &mcp.Tool{
		Name:        op.ToolDescriptor.Name,
		Description: op.ToolDescriptor.Description,
		InputSchema: map[string]any(op.ToolDescriptor.InputSchema),
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
		return s.executeOperation(ctx, op, input)
	}
	mcp.AddTool(srv, tool, handler)
}

func (s *Server) executeOperation(ctx context.Context, op *operations.Operation, callerArgs map[string]any) (*mcp.CallToolResult, any, error) {
	variables, err := mergeVariables(callerArgs, op.Inner.DefaultVariables)
	if err != nil {
		return nil, nil, err
	}

	var bearer string
	if token, ok := ValidTokenFromContext(ctx); ok {
		bearer = token.Raw
	}
	headers := mergeHeaders(s.cfg.DefaultHeaders, bearer, op.Inner.DefaultHeaders)

	resp, err := s.upstream.Execute(ctx, graphqlupstream.Request{
		Query:            op.Inner.SourceText,
		OperationName:    op.OperationName,
		Variables:        variables,
		PersistedQueryID: op.Inner.PersistedQueryID,
		Headers:          headers,
	})
	if err != nil {
		return errorResult("upstream request failed: " + err.Error()), nil, nil
	}
	return upstreamResponseResult(resp), nil, nil
}

// errorResult builds a tool-result-level error (§7): surfaced to the
// client as a normal CallToolResult with IsError set, never as a protocol
// error.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// upstreamResponseResult turns a decoded GraphQL response into a
// CallToolResult: GraphQL-level errors are reported as an error result
// carrying the joined messages; otherwise the data is marshaled as the
// tool's text output.
func upstreamResponseResult(resp *graphqlupstream.Response) *mcp.CallToolResult {
	if len(resp.Errors) > 0 {
		messages := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			messages[i] = e.Message
		}
		return errorResult("graphql errors: " + strings.Join(messages, "; "))
	}

	data, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		return errorResult("failed to marshal response: " + err.Error())
	}
	return textResult(string(data))
}

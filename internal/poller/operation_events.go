package poller

import "github.com/apollographql/mcp-server-go/internal/operations"

// OperationSourceEvent is an operation source's event union (§4.1):
// OperationsUpdated carries a full replacement batch from the source;
// OperationErrorPath/CollectionErrorMessage report a source-specific failure
// without ending the stream.
type OperationSourceEvent struct {
	Operations             []operations.RawOperation
	OperationErrorPath     string
	CollectionErrorMessage string
}

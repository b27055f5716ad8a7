// Package operations implements the operation compiler: turning a raw
// GraphQL operation document plus the current schema into an MCP tool
// descriptor. Grounded on the teacher's pkg/graphqlmcp/mcp.go tool-building
// path and pkg/graphqlmcp/schema/json_schema_helpers.go's variable-schema
// derivation, generalized to the $ref-based jsonschema package and extended
// with description assembly and mutation-mode gating.
package operations

import (
	"errors"

	"github.com/apollographql/mcp-server-go/internal/jsonschema"
)

// MutationMode controls whether and how mutations may be exposed as tools.
type MutationMode int

const (
	MutationModeNone MutationMode = iota
	MutationModeExplicit
	MutationModeAll
)

func (m MutationMode) String() string {
	switch m {
	case MutationModeNone:
		return "none"
	case MutationModeExplicit:
		return "explicit"
	case MutationModeAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseMutationMode parses the YAML/env value for overrides.mutation_mode.
func ParseMutationMode(s string) (MutationMode, error) {
	switch s {
	case "", "none":
		return MutationModeNone, nil
	case "explicit":
		return MutationModeExplicit, nil
	case "all":
		return MutationModeAll, nil
	default:
		return MutationModeNone, errors.New("mutation_mode must be one of none, explicit, all")
	}
}

// RawOperation is an operation as delivered by a source, before compilation.
// Default headers/variables are operation-level fallbacks merged at call
// time; identity is by source text or persisted-query id so a source can
// tell whether an incoming update actually changed an operation.
type RawOperation struct {
	SourceText       string
	PersistedQueryID string
	DefaultHeaders   map[string]string
	DefaultVariables map[string]any
	SourcePath       string
}

// Identity returns a key stable across source re-deliveries of an unchanged
// operation.
func (r RawOperation) Identity() string {
	if r.PersistedQueryID != "" {
		return "pq:" + r.PersistedQueryID
	}
	return "src:" + r.SourceText
}

// ToolDescriptor is the compiled, MCP-facing shape of an operation.
type ToolDescriptor struct {
	Name         string
	Description  string
	InputSchema  jsonschema.Schema
	ReadOnlyHint bool
}

// Operation is a RawOperation that has been successfully compiled against a
// schema.
type Operation struct {
	ToolDescriptor ToolDescriptor
	Inner          RawOperation
	OperationName  string
}

// SkipReason distinguishes the non-error outcomes of compilation.
type SkipReason int

const (
	SkipSubscription SkipReason = iota
	SkipMutationMode
	SkipUnnamed
)

// Skipped signals that an operation was deliberately excluded from the tool
// list; it is never logged as a compile failure.
type Skipped struct {
	Reason  SkipReason
	Message string
}

func (s *Skipped) Error() string { return s.Message }

var (
	// ErrTooManyOperations is returned when a document contains more than
	// one operation definition.
	ErrTooManyOperations = errors.New("document must contain exactly one operation definition")
	// ErrNoOperations is returned when a document contains no operation
	// definitions.
	ErrNoOperations = errors.New("document contains no operation definitions")
)

package operations

import (
	"fmt"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/apollographql/mcp-server-go/internal/jsonschema"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// CompileOptions carries the inputs to CompileOperation that are shared
// across every operation in the current operation set.
type CompileOptions struct {
	CustomScalars            map[string]jsonschema.Schema
	MutationMode             MutationMode
	DisableTypeDescription   bool
	DisableSchemaDescription bool
	// Warn receives one message per unmapped custom scalar or unresolvable
	// GraphQL type encountered while building a variable schema.
	Warn func(string)
}

// CompileOperation implements the operation compiler (parse, select exactly
// one operation, apply the MutationMode gate, build the tool descriptor).
//
// A non-nil *Skipped return is a deliberate exclusion, not a failure: the
// caller drops the operation from the tool list without logging an error.
func CompileOperation(schema *gqlschema.Schema, raw RawOperation, opts CompileOptions) (*Operation, *Skipped, error) {
	doc, gqlErrs := gqlparser.LoadQuery(schema.AST, raw.SourceText)
	if len(gqlErrs) > 0 {
		return nil, nil, fmt.Errorf("parse operation: %w", gqlErrs)
	}

	if len(doc.Operations) > 1 {
		return nil, nil, ErrTooManyOperations
	}
	if len(doc.Operations) == 0 {
		return nil, nil, ErrNoOperations
	}
	op := doc.Operations[0]

	if op.Operation == ast.Subscription {
		return nil, &Skipped{Reason: SkipSubscription, Message: "subscriptions are not exposed as tools"}, nil
	}
	if op.Operation == ast.Mutation && opts.MutationMode == MutationModeNone {
		return nil, &Skipped{Reason: SkipMutationMode, Message: fmt.Sprintf("mutation %q skipped: mutation_mode is none", op.Name)}, nil
	}
	if op.Name == "" {
		return nil, &Skipped{Reason: SkipUnnamed, Message: "unnamed operation skipped"}, nil
	}

	variablesSchema := BuildVariablesSchema(schema.AST, doc, op, raw.SourceText, raw.DefaultVariables, opts.CustomScalars, opts.Warn)
	description := buildDescription(schema.AST, doc, op, raw.SourceText, opts.DisableTypeDescription, opts.DisableSchemaDescription)

	descriptor := ToolDescriptor{
		Name:         op.Name,
		Description:  description,
		InputSchema:  variablesSchema,
		ReadOnlyHint: op.Operation != ast.Mutation,
	}

	return &Operation{
		ToolDescriptor: descriptor,
		Inner:          raw,
		OperationName:  op.Name,
	}, nil, nil
}

package operations

import (
	"fmt"
	"strings"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/apollographql/mcp-server-go/internal/treeshake"
	"github.com/vektah/gqlparser/v2/ast"
)

// buildDescription implements the operation description assembly: a leading
// comment on the operation wins outright; otherwise the type-description and
// schema-description blocks are joined with "---".
func buildDescription(schema *ast.Schema, doc *ast.QueryDocument, op *ast.OperationDefinition, rawSource string, disableTypeDescription, disableSchemaDescription bool) string {
	if op.Position != nil {
		if c := extractLeadingComment(rawSource, op.Position.Start, 0); c != "" {
			return c
		}
	}

	var typeBlock string
	if !disableTypeDescription {
		typeBlock = buildTypeDescriptionBlock(schema, op)
	}

	var schemaBlock string
	if !disableSchemaDescription {
		if sdl, err := treeshake.DescribeReachableTypes(schema, doc, op); err == nil {
			schemaBlock = sdl
		}
	}

	switch {
	case typeBlock == "" && schemaBlock == "":
		return ""
	case schemaBlock == "":
		return typeBlock
	case typeBlock == "":
		return "---\n" + schemaBlock
	default:
		return typeBlock + "\n---\n" + schemaBlock
	}
}

func buildTypeDescriptionBlock(schema *ast.Schema, op *ast.OperationDefinition) string {
	rootDef := rootDefinitionForOp(schema, op.Operation)
	if rootDef == nil {
		return ""
	}

	var blocks []string
	for _, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		fieldDef := findField(rootDef, field.Name)
		if fieldDef == nil {
			continue
		}

		optionalPrefix := ""
		if !fieldDef.Type.NonNull {
			optionalPrefix = "is optional and "
		}

		var shape string
		innerName := gqlschema.TypeName(fieldDef.Type)
		if gqlschema.IsList(fieldDef.Type) {
			shape = fmt.Sprintf("is an array of type `%s`", innerName)
		} else {
			shape = fmt.Sprintf("has type `%s`", innerName)
		}

		blocks = append(blocks, fmt.Sprintf("%s\nThe returned value %s%s", fieldDef.Description, optionalPrefix, shape))
	}
	return strings.Join(blocks, "\n---\n")
}

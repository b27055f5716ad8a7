package operations

import (
	"strings"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/apollographql/mcp-server-go/internal/jsonschema"
	"github.com/vektah/gqlparser/v2/ast"
)

// variableUsage collects everything a variable's description can be derived
// from besides a comment override.
type variableUsage struct {
	directiveDesc string
	argDescs      []string
}

// collectVariableUsage walks the operation's selection set once, recording
// for each variable: a directive-derived description (from @skip/@include)
// and the schema descriptions of every argument position the variable is
// passed into.
func collectVariableUsage(schema *ast.Schema, doc *ast.QueryDocument, op *ast.OperationDefinition) map[string]*variableUsage {
	usage := map[string]*variableUsage{}
	ensure := func(name string) *variableUsage {
		u, ok := usage[name]
		if !ok {
			u = &variableUsage{}
			usage[name] = u
		}
		return u
	}

	fragments := map[string]*ast.FragmentDefinition{}
	for _, f := range doc.Fragments {
		fragments[f.Name] = f
	}

	walkDirectives := func(directives ast.DirectiveList) {
		for _, d := range directives {
			for _, arg := range d.Arguments {
				if arg.Value == nil || arg.Value.Kind != ast.Variable {
					continue
				}
				switch d.Name {
				case "skip":
					ensure(arg.Value.Raw).directiveDesc = "Skipped when true."
				case "include":
					ensure(arg.Value.Raw).directiveDesc = "Included when true."
				}
			}
		}
	}

	argDescription := func(fieldDef *ast.FieldDefinition, argName string) string {
		if fieldDef == nil {
			return ""
		}
		for _, a := range fieldDef.Arguments {
			if a.Name == argName {
				return a.Description
			}
		}
		return ""
	}

	var walkSelectionSet func(typeDef *ast.Definition, set ast.SelectionSet)
	walkSelectionSet = func(typeDef *ast.Definition, set ast.SelectionSet) {
		for _, sel := range set {
			switch node := sel.(type) {
			case *ast.Field:
				walkDirectives(node.Directives)
				fieldDef := findField(typeDef, node.Name)
				for _, arg := range node.Arguments {
					if arg.Value == nil || arg.Value.Kind != ast.Variable {
						continue
					}
					if d := argDescription(fieldDef, arg.Name); d != "" {
						u := ensure(arg.Value.Raw)
						u.argDescs = append(u.argDescs, d)
					}
				}
				var next *ast.Definition
				if fieldDef != nil {
					next = schema.Types[gqlschema.TypeName(fieldDef.Type)]
				}
				walkSelectionSet(next, node.SelectionSet)
			case *ast.InlineFragment:
				walkDirectives(node.Directives)
				walkSelectionSet(targetDef(schema, typeDef, node.TypeCondition), node.SelectionSet)
			case *ast.FragmentSpread:
				walkDirectives(node.Directives)
				frag, ok := fragments[node.Name]
				if !ok {
					continue
				}
				walkSelectionSet(targetDef(schema, typeDef, frag.TypeCondition), frag.SelectionSet)
			}
		}
	}

	walkSelectionSet(rootDefinitionForOp(schema, op.Operation), op.SelectionSet)
	return usage
}

// BuildVariablesSchema implements the variables object schema described by
// type_to_schema: properties mirror the operation's variables (minus any
// bound by default_variables), required lists the non-null ones, and each
// property's description is resolved in priority order: comment override,
// directive-derived description, schema argument-position description(s).
func BuildVariablesSchema(
	schema *ast.Schema,
	doc *ast.QueryDocument,
	op *ast.OperationDefinition,
	rawSource string,
	defaultVariables map[string]any,
	customScalars map[string]jsonschema.Schema,
	warn func(string),
) jsonschema.Schema {
	builder := jsonschema.NewBuilder(schema, customScalars, warn)
	usage := collectVariableUsage(schema, doc, op)

	variableListParen := variableListParenBoundary(rawSource, op)

	properties := jsonschema.Schema{}
	required := make([]string, 0, len(op.VariableDefinitions))

	for _, vd := range op.VariableDefinitions {
		if _, bound := defaultVariables[vd.Variable]; bound {
			continue
		}

		propSchema := builder.SchemaForType(vd.Type)

		desc := ""
		if vd.Position != nil {
			desc = extractLeadingComment(rawSource, vd.Position.Start, variableListParen)
		}
		if desc == "" {
			if u, ok := usage[vd.Variable]; ok && u.directiveDesc != "" {
				desc = u.directiveDesc
			}
		}
		if desc == "" {
			if u, ok := usage[vd.Variable]; ok && len(u.argDescs) > 0 {
				desc = strings.Join(u.argDescs, " # ")
			}
		}
		if desc != "" {
			propSchema = withDescription(propSchema, desc)
		}

		properties[vd.Variable] = propSchema
		if vd.Type.NonNull {
			required = append(required, vd.Variable)
		}
	}

	out := jsonschema.Schema{"type": "object", "properties": properties}
	if len(required) > 0 {
		out["required"] = required
	}
	if defs := builder.Definitions(); len(defs) > 0 {
		defsOut := make(map[string]jsonschema.Schema, len(defs))
		for k, v := range defs {
			defsOut[k] = v
		}
		out["definitions"] = defsOut
	}
	return out
}

// variableListParenBoundary finds the offset just after the '(' that opens
// op's variable definition list, so extractLeadingComment can recognize a
// comment sharing that line with the paren (e.g. `query Q(# override`)
// without the operation keyword before it defeating the blank-or-'#' line
// test. The variable list, when present, always immediately follows the
// operation name in source order and precedes any directives or the
// selection set, so the first '(' at or after the operation's start is it.
// Returns 0 (scan the whole preceding source) when there is no variable list
// or no position information to search from.
func variableListParenBoundary(rawSource string, op *ast.OperationDefinition) int {
	if len(op.VariableDefinitions) == 0 || op.Position == nil {
		return 0
	}
	idx := strings.IndexByte(rawSource[op.Position.Start:], '(')
	if idx == -1 {
		return 0
	}
	return op.Position.Start + idx + 1
}

func withDescription(s jsonschema.Schema, desc string) jsonschema.Schema {
	out := make(jsonschema.Schema, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out["description"] = desc
	return out
}

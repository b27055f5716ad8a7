package treeshake

import (
	"fmt"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/vektah/gqlparser/v2/ast"
)

// opShaker walks a single operation's selection set, recording exactly the
// fields it reaches so the output schema contains only what the operation
// can select.
type opShaker struct {
	*typeShaker
	fragments map[string]*ast.FragmentDefinition
	visiting  map[string]bool // cycle guard for the current selection-set walk
}

// RetainOperation implements retain_operation(op, document, depth).
func RetainOperation(schema *ast.Schema, doc *ast.QueryDocument, op *ast.OperationDefinition, depth Depth) (*gqlschema.Schema, error) {
	rootDef := rootDefinitionFor(schema, op.Operation)
	if rootDef == nil {
		return nil, fmt.Errorf("schema has no root type for operation %q", op.Operation)
	}

	fragments := map[string]*ast.FragmentDefinition{}
	for _, f := range doc.Fragments {
		fragments[f.Name] = f
	}

	s := &opShaker{
		typeShaker: newTypeShaker(schema),
		fragments:  fragments,
		visiting:   map[string]bool{},
	}
	s.walkSelectionSet(rootDef, op.SelectionSet, depth)

	return s.build(schema)
}

func rootDefinitionFor(schema *ast.Schema, op ast.Operation) *ast.Definition {
	switch op {
	case ast.Query:
		return schema.Query
	case ast.Mutation:
		return schema.Mutation
	case ast.Subscription:
		return schema.Subscription
	default:
		return nil
	}
}

// walkSelectionSet retains typeDef and every type reachable through set,
// restricting Object/Interface field retention to exactly the fields named.
func (s *opShaker) walkSelectionSet(typeDef *ast.Definition, set ast.SelectionSet, depth Depth) {
	if typeDef == nil || len(set) == 0 {
		if typeDef != nil {
			s.remember(typeDef.Name, typeDef)
		}
		return
	}
	if s.visiting[typeDef.Name] {
		return
	}
	s.visiting[typeDef.Name] = true
	defer delete(s.visiting, typeDef.Name)

	s.remember(typeDef.Name, typeDef)

	for _, sel := range set {
		switch node := sel.(type) {
		case *ast.Field:
			s.walkField(typeDef, node, depth)
		case *ast.InlineFragment:
			target := targetDefinition(s.schema, typeDef, node.TypeCondition)
			s.walkSelectionSet(target, node.SelectionSet, depth)
		case *ast.FragmentSpread:
			frag, ok := s.fragments[node.Name]
			if !ok {
				continue
			}
			target := targetDefinition(s.schema, typeDef, frag.TypeCondition)
			s.walkSelectionSet(target, frag.SelectionSet, depth)
		}
	}
}

func targetDefinition(schema *ast.Schema, fallback *ast.Definition, typeCondition string) *ast.Definition {
	if typeCondition == "" {
		return fallback
	}
	if def, ok := schema.Types[typeCondition]; ok {
		return def
	}
	return fallback
}

func (s *opShaker) walkField(typeDef *ast.Definition, field *ast.Field, depth Depth) {
	if field.Name == "__typename" {
		return
	}
	fieldDef := findField(typeDef, field.Name)
	if fieldDef == nil {
		return
	}
	s.allowField(typeDef.Name, field.Name)

	// Arguments only reach nested input types; walk those with the type
	// retainer's depth-bounded traversal, independent of selection depth.
	for _, arg := range fieldDef.Arguments {
		s.visitType(gqlschema.TypeName(arg.Type), depth.dec())
	}

	fieldTypeName := gqlschema.TypeName(fieldDef.Type)
	if fieldTypeName == "" || gqlschema.IsBuiltinType(fieldTypeName) {
		return
	}
	fieldTypeDef, ok := s.schema.Types[fieldTypeName]
	if !ok || fieldTypeDef == nil {
		return
	}

	if len(field.SelectionSet) == 0 {
		// No selection set (a scalar or enum leaf): retain the type itself
		// (enums/scalars need no further fields). An object or interface
		// reached this way keeps only fields recorded for it elsewhere.
		s.remember(fieldTypeName, fieldTypeDef)
		if fieldTypeDef.Kind != ast.Enum && fieldTypeDef.Kind != ast.Scalar {
			if _, exists := s.fields[fieldTypeName]; !exists {
				s.fields[fieldTypeName] = map[string]bool{}
			}
		}
		return
	}

	s.walkSelectionSet(fieldTypeDef, field.SelectionSet, depth)
}

// DescribeReachableTypes returns the SDL text for every non-root, non-builtin
// type reachable from op's selection set, in first-visit order. Used to build
// an operation's schema-description block: unlike RetainOperation, root types
// are never included, since the description is prose, not an executable
// schema.
func DescribeReachableTypes(schema *ast.Schema, doc *ast.QueryDocument, op *ast.OperationDefinition) (string, error) {
	rootDef := rootDefinitionFor(schema, op.Operation)
	if rootDef == nil {
		return "", fmt.Errorf("schema has no root type for operation %q", op.Operation)
	}

	fragments := map[string]*ast.FragmentDefinition{}
	for _, f := range doc.Fragments {
		fragments[f.Name] = f
	}

	s := &opShaker{
		typeShaker: newTypeShaker(schema),
		fragments:  fragments,
		visiting:   map[string]bool{},
	}
	s.walkSelectionSet(rootDef, op.SelectionSet, Unlimited)

	roots := gqlschema.RootTypeNames(schema)
	builder := &sdlBuilder{schema: schema}
	for _, name := range s.order {
		if roots[name] || gqlschema.IsBuiltinType(name) {
			continue
		}
		builder.writeType(s.def[name], s.fields[name])
	}
	return builder.String(), nil
}

func findField(def *ast.Definition, name string) *ast.FieldDefinition {
	if def == nil {
		return nil
	}
	for _, f := range def.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

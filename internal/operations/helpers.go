package operations

import "github.com/vektah/gqlparser/v2/ast"

func rootDefinitionForOp(schema *ast.Schema, op ast.Operation) *ast.Definition {
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

func targetDef(schema *ast.Schema, fallback *ast.Definition, typeCondition string) *ast.Definition {
	if typeCondition == "" {
		return fallback
	}
	if d, ok := schema.Types[typeCondition]; ok {
		return d
	}
	return fallback
}

// Package gqlschema wraps gqlparser's AST schema with the launch metadata
// the rest of the server needs to treat a schema update as one atomic unit.
package gqlschema

import (
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Schema is an immutable, validated GraphQL schema plus the opaque id of the
// launch (Uplink delivery, file revision, ...) it was built from.
type Schema struct {
	AST      *ast.Schema
	SDL      string
	LaunchID string
}

// Parse validates sdl and returns an immutable Schema. A new Schema value is
// produced on every call; callers never mutate one in place.
func Parse(sdl string, launchID string) (*Schema, error) {
	src := &ast.Source{Name: "supergraph", Input: sdl, BuiltIn: false}
	astSchema, err := gqlparser.LoadSchema(src)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &Schema{AST: astSchema, SDL: sdl, LaunchID: launchID}, nil
}

// BuiltinScalars are the GraphQL scalar types every schema gets for free.
var BuiltinScalars = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
	"ID":      true,
}

// IsBuiltinType reports whether name is a built-in scalar or introspection type.
func IsBuiltinType(name string) bool {
	return BuiltinScalars[name] || IsIntrospectionType(name)
}

// IsIntrospectionType reports whether name is one of the `__`-prefixed
// introspection types every schema carries.
func IsIntrospectionType(name string) bool {
	return len(name) >= 2 && name[0] == '_' && name[1] == '_'
}

// TypeName unwraps list/non-null wrappers and returns the innermost named type.
func TypeName(t *ast.Type) string {
	for t != nil {
		if t.NamedType != "" {
			return t.NamedType
		}
		t = t.Elem
	}
	return ""
}

// IsList reports whether t (at any nesting of NON_NULL) is a list type.
func IsList(t *ast.Type) bool {
	return t != nil && t.NamedType == "" && t.Elem != nil
}

// RootTypeNames returns the names of the schema's Query/Mutation/Subscription
// root object types that are present.
func RootTypeNames(s *ast.Schema) map[string]bool {
	roots := map[string]bool{}
	if s.Query != nil {
		roots[s.Query.Name] = true
	}
	if s.Mutation != nil {
		roots[s.Mutation.Name] = true
	}
	if s.Subscription != nil {
		roots[s.Subscription.Name] = true
	}
	return roots
}

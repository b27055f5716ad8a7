package treeshake

import (
	"fmt"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/vektah/gqlparser/v2/ast"
)

// typeShaker accumulates the set of types (and, for selection-driven
// retention, the per-type set of retained fields) reachable from a set of
// roots, then serializes that set back into SDL.
type typeShaker struct {
	schema *ast.Schema

	// order lists the name of every type kept in the output, in first-visit order.
	order   []string
	def     map[string]*ast.Definition
	fields  map[string]map[string]bool // type name -> retained field names; nil set means "keep all fields"
	unboundVisit map[string]bool       // types fully visited at Unlimited depth with no field filter
}

func newTypeShaker(schema *ast.Schema) *typeShaker {
	return &typeShaker{
		schema:       schema,
		def:          map[string]*ast.Definition{},
		fields:       map[string]map[string]bool{},
		unboundVisit: map[string]bool{},
	}
}

func (s *typeShaker) remember(name string, def *ast.Definition) bool {
	if _, ok := s.def[name]; !ok {
		s.order = append(s.order, name)
	}
	s.def[name] = def
	return true
}

// allowField records that fieldName is reachable on typeName through a
// selection set. Once any field is recorded for a type, only recorded
// fields are serialized for it (Object/Interface only); if allowAllFields(typeName)
// is called the type reverts to "keep every field".
func (s *typeShaker) allowField(typeName, fieldName string) {
	set, ok := s.fields[typeName]
	if !ok {
		set = map[string]bool{}
		s.fields[typeName] = set
	}
	set[fieldName] = true
}

func (s *typeShaker) allowAllFields(typeName string) {
	s.fields[typeName] = nil
}

// visitType retains name, without any field selection filter, and recurses
// into every field/argument type up to depth steps. This is retain_type's
// traversal and is also used for input-object reachability from operation
// arguments (arguments only reach nested input types, per spec).
func (s *typeShaker) visitType(name string, depth Depth) {
	if name == "" || gqlschema.IsBuiltinType(name) {
		return
	}
	def, ok := s.schema.Types[name]
	if !ok || def == nil {
		return
	}

	_, seen := s.def[name]
	if seen && s.unboundVisit[name] {
		return
	}
	if depth.exhausted() {
		if !seen {
			s.remember(name, def)
			s.allowAllFields(name)
		}
		return
	}

	s.remember(name, def)
	s.allowAllFields(name)
	if depth.unlimited {
		s.unboundVisit[name] = true
	}

	switch def.Kind {
	case ast.Object, ast.Interface:
		for _, f := range def.Fields {
			s.visitType(gqlschema.TypeName(f.Type), depth.dec())
			for _, arg := range f.Arguments {
				s.visitType(gqlschema.TypeName(arg.Type), depth.dec())
			}
		}
		for _, ifaceName := range def.Interfaces {
			s.visitType(ifaceName, depth)
		}
	case ast.Union:
		for _, member := range def.Types {
			s.visitType(member, depth.dec())
		}
	case ast.InputObject:
		for _, f := range def.Fields {
			s.visitType(gqlschema.TypeName(f.Type), depth.dec())
		}
	}
}

// RetainType implements retain_type(T, depth): keep T and recurse into its
// fields and argument types up to depth steps.
func RetainType(schema *ast.Schema, typeName string, depth Depth) (*gqlschema.Schema, error) {
	def, ok := schema.Types[typeName]
	if !ok || def == nil {
		return nil, fmt.Errorf("unknown type %q", typeName)
	}
	s := newTypeShaker(schema)
	s.visitType(typeName, depth)
	return s.build(schema)
}

func (s *typeShaker) build(schema *ast.Schema) (*gqlschema.Schema, error) {
	builder := &sdlBuilder{schema: schema}
	haveQueryRoot := false
	for _, name := range s.order {
		def := s.def[name]
		if def == nil || gqlschema.IsBuiltinType(name) || gqlschema.IsIntrospectionType(name) {
			continue
		}
		if schema.Query != nil && name == schema.Query.Name {
			haveQueryRoot = true
		}
		builder.writeType(def, s.fields[name])
	}
	if !haveQueryRoot {
		builder.writeRaw("type Query {\n  stub: String\n}\n\n")
	}
	builder.writeDirectives(schema, s.def)

	sdl := builder.String()
	return gqlschema.Parse(sdl, "")
}

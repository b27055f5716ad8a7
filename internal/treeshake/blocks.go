package treeshake

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
)

// TypeBlock is one retained type's own SDL text, serialized independently of
// its neighbours.
type TypeBlock struct {
	Name string
	SDL  string
}

// RetainTypeBlocks runs the same traversal as RetainType but returns one SDL
// block per retained type instead of a single merged schema, skipping root
// operation types and built-ins. The introspect meta-tool needs one text
// block per type rather than a combined document.
func RetainTypeBlocks(schema *ast.Schema, typeName string, depth Depth) ([]TypeBlock, error) {
	if def, ok := schema.Types[typeName]; !ok || def == nil {
		return nil, fmt.Errorf("unknown type %q", typeName)
	}

	s := newTypeShaker(schema)
	s.visitType(typeName, depth)

	roots := gqlschema.RootTypeNames(schema)

	var blocks []TypeBlock
	for _, name := range s.order {
		if roots[name] || gqlschema.IsBuiltinType(name) || gqlschema.IsIntrospectionType(name) {
			continue
		}
		typeDef := s.def[name]
		if typeDef == nil {
			continue
		}
		builder := &sdlBuilder{schema: schema}
		builder.writeType(typeDef, s.fields[name])
		blocks = append(blocks, TypeBlock{Name: name, SDL: builder.String()})
	}
	return blocks, nil
}

// RetainPath tree-shakes a single search result path: path[0] is the
// matched leaf type, path[len(path)-1] is the root it was walked back to.
// The leaf is retained to leafDepth; every other type on the path is
// retained at Limited(1), matching the search meta-tool's "path types at
// depth-1" rule.
func RetainPath(schema *ast.Schema, path []string, leafDepth Depth) (*gqlschema.Schema, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	s := newTypeShaker(schema)
	s.visitType(path[0], leafDepth)
	for _, name := range path[1:] {
		s.visitType(name, Limited(1))
	}
	return s.build(schema)
}

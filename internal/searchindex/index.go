// Package searchindex implements the schema full-text index and search
// scoring described in spec.md §4.5: an inverted index over a schema's
// reachable types, plus boosted root-rooted path retrieval.
package searchindex

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
)

type document struct {
	rawName           string
	typeNameTokens    []string
	descriptionTokens []string
	fieldsTokens      []string
	// referencers are all the types that reach this type through a field,
	// argument or union member; a type with no referencers is a root.
	referencers []string
}

// Index is an immutable, built-once-per-schema-launch full-text index.
type Index struct {
	docs  map[string]*document
	order []string
}

// Build traverses schema depth-first from its root operation types,
// recording each reachable type's analysed text and referencers. Only the
// first occurrence of a type initialises its document; later occurrences
// only add a referencer.
func Build(schema *ast.Schema) *Index {
	idx := &Index{docs: map[string]*document{}}
	roots := gqlschema.RootTypeNames(schema)

	var walk func(name, referencer string)
	walk = func(name, referencer string) {
		if name == "" || gqlschema.IsBuiltinType(name) {
			return
		}
		def, ok := schema.Types[name]
		if !ok || def == nil {
			return
		}

		if existing, ok := idx.docs[name]; ok {
			if referencer != "" {
				existing.referencers = appendUnique(existing.referencers, referencer)
			}
			return
		}

		doc := &document{rawName: name, typeNameTokens: analyze(name)}
		if referencer != "" {
			doc.referencers = []string{referencer}
		}

		var desc, fields strings.Builder
		desc.WriteString(def.Description)
		for _, f := range def.Fields {
			desc.WriteString(" ")
			desc.WriteString(f.Description)
			fields.WriteString(f.Name)
			fields.WriteString(": ")
			fields.WriteString(gqlschema.TypeName(f.Type))
			fields.WriteString(", ")
		}
		for _, v := range def.EnumValues {
			desc.WriteString(" ")
			desc.WriteString(v.Description)
		}
		doc.descriptionTokens = analyze(desc.String())
		doc.fieldsTokens = analyze(fields.String())

		idx.docs[name] = doc
		idx.order = append(idx.order, name)

		for _, f := range def.Fields {
			walk(gqlschema.TypeName(f.Type), name)
			for _, arg := range f.Arguments {
				walk(gqlschema.TypeName(arg.Type), name)
			}
		}
		if def.Kind == ast.Union {
			for _, member := range def.Types {
				walk(member, name)
			}
		}
	}

	for root := range roots {
		walk(root, "")
	}

	return idx
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Package jsonschema turns GraphQL types into the JSON Schema fragments the
// MCP tool input schemas are built from. Grounded on the teacher's
// schema/json_schema_helpers.go (depth-limited, visited-map recursion
// guard), generalized here to use genuine $ref/definitions indirection
// instead of inline merging, per the recursive-input-type requirement.
package jsonschema

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// Schema is a JSON Schema fragment. Using map[string]any rather than a
// struct mirrors the teacher's json_schema_helpers.go approach and keeps
// arbitrary custom-scalar schemas passed through verbatim.
type Schema map[string]any

func withDescription(s Schema, desc string) Schema {
	if desc == "" {
		return s
	}
	if _, has := s["description"]; has {
		return s
	}
	out := make(Schema, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out["description"] = desc
	return out
}

// Builder accumulates the definitions map shared by every variable schema
// produced for one operation; reuse a
// single Builder across all variables of the same operation so repeated
// input object/enum references resolve to the same $ref.
type Builder struct {
	schema        *ast.Schema
	customScalars map[string]Schema
	warn          func(string)
	warned        map[string]bool

	definitions map[string]Schema
	// building tracks input objects whose placeholder has been inserted but
	// whose fields have not finished recursing, so self-reference stops here.
	building map[string]bool
}

// NewBuilder constructs a Builder. customScalars maps a scalar's GraphQL
// type name to a schema fragment to use verbatim; warn receives one message
// per first occurrence of an unmapped custom scalar or unresolvable type
// (pass nil to discard).
func NewBuilder(schema *ast.Schema, customScalars map[string]Schema, warn func(string)) *Builder {
	if warn == nil {
		warn = func(string) {}
	}
	return &Builder{
		schema:        schema,
		customScalars: customScalars,
		warn:          warn,
		warned:        map[string]bool{},
		definitions:   map[string]Schema{},
		building:      map[string]bool{},
	}
}

// Definitions returns the accumulated $ref targets. The caller embeds this
// under the top-level schema's "definitions" key.
func (b *Builder) Definitions() map[string]Schema {
	return b.definitions
}

func (b *Builder) warnOnce(key, msg string) {
	if b.warned[key] {
		return
	}
	b.warned[key] = true
	b.warn(msg)
}

// SchemaForType implements type_to_schema for a single GraphQL type
// reference. Non-nullness is never encoded in the returned fragment: the
// caller is responsible for adding the containing property to its parent's
// "required" list when t is NonNull.
func (b *Builder) SchemaForType(t *ast.Type) Schema {
	if t == nil {
		return Schema{}
	}
	if t.NonNull {
		return b.SchemaForType(t.Elem)
	}
	if t.Elem != nil {
		item := b.SchemaForType(t.Elem)
		if t.Elem.NonNull {
			return Schema{"type": "array", "items": item}
		}
		return Schema{
			"type": "array",
			"items": Schema{
				"oneOf": []Schema{item, {"type": "null"}},
			},
		}
	}
	return b.schemaForNamed(t.NamedType)
}

func (b *Builder) schemaForNamed(name string) Schema {
	switch name {
	case "String", "ID":
		return Schema{"type": "string"}
	case "Int", "Float":
		return Schema{"type": "number"}
	case "Boolean":
		return Schema{"type": "boolean"}
	}

	def, ok := b.schema.Types[name]
	if !ok || def == nil {
		b.warnOnce("type:"+name, fmt.Sprintf("unknown GraphQL type %q", name))
		return Schema{}
	}

	switch def.Kind {
	case ast.InputObject:
		return b.refInputObject(name, def)
	case ast.Enum:
		return b.refEnum(name, def)
	case ast.Scalar:
		return b.refCustomScalar(name, def)
	default:
		b.warnOnce("type:"+name, fmt.Sprintf("cannot derive a variable schema for %s type %q", def.Kind, name))
		return Schema{}
	}
}

func refTo(name string) Schema {
	return Schema{"$ref": "#/definitions/" + name}
}

// refInputObject implements the named-input-object row, including the
// placeholder-before-recursing technique that terminates self-referential
// input shapes: the placeholder is installed in definitions (and in
// building, to guard the *current* recursion) before any field is visited.
func (b *Builder) refInputObject(name string, def *ast.Definition) Schema {
	ref := refTo(name)
	if _, done := b.definitions[name]; done && !b.building[name] {
		return ref
	}
	if b.building[name] {
		return ref
	}

	b.building[name] = true
	b.definitions[name] = Schema{"type": "object"}
	defer delete(b.building, name)

	properties := Schema{}
	required := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		fieldSchema := b.SchemaForType(f.Type)
		fieldSchema = withDescription(fieldSchema, f.Description)
		properties[f.Name] = fieldSchema
		if f.Type.NonNull {
			required = append(required, f.Name)
		}
	}

	obj := Schema{"type": "object", "properties": properties}
	if def.Description != "" {
		obj["description"] = def.Description
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	b.definitions[name] = obj
	return ref
}

// refEnum implements the enum row: definition is a string schema carrying
// every enum value plus a description assembled from the enum's own
// description and each value's description.
func (b *Builder) refEnum(name string, def *ast.Definition) Schema {
	ref := refTo(name)
	if _, done := b.definitions[name]; done {
		return ref
	}

	values := make([]string, 0, len(def.EnumValues))
	var desc strings.Builder
	desc.WriteString(def.Description)
	if len(def.EnumValues) > 0 {
		desc.WriteString("\n\nValues:\n")
	}
	for _, v := range def.EnumValues {
		values = append(values, v.Name)
		fmt.Fprintf(&desc, "%s: %s\n", v.Name, v.Description)
	}

	b.definitions[name] = Schema{
		"type":        "string",
		"enum":        values,
		"description": strings.TrimSpace(desc.String()),
	}
	return ref
}

// refCustomScalar implements the named-scalar row. A mapped scalar is used
// verbatim, except a description already present on the mapped schema wins
// over the schema's own scalar description. An unmapped scalar warns once
// and degrades to an empty schema.
func (b *Builder) refCustomScalar(name string, def *ast.Definition) Schema {
	mapped, ok := b.customScalars[name]
	if !ok {
		b.warnOnce("scalar:"+name, fmt.Sprintf("no custom scalar mapping for %q; emitting empty schema", name))
		return Schema{}
	}
	out := make(Schema, len(mapped)+1)
	for k, v := range mapped {
		out[k] = v
	}
	if _, has := out["description"]; !has && def.Description != "" {
		out["description"] = def.Description
	}
	return out
}

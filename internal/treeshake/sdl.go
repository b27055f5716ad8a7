package treeshake

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// sdlBuilder serializes a set of retained type definitions back into SDL.
// Grounded on the teacher's schema/sdl.go generateTypeSDL/generateFieldSDL,
// generalized to accept a field allow-list per type.
type sdlBuilder struct {
	schema *ast.Schema
	out    strings.Builder
}

func (b *sdlBuilder) String() string {
	return strings.TrimSpace(b.out.String())
}

func (b *sdlBuilder) writeRaw(s string) {
	b.out.WriteString(s)
}

func (b *sdlBuilder) writeType(def *ast.Definition, allowedFields map[string]bool) {
	if def.Description != "" {
		fmt.Fprintf(&b.out, "\"%s\"\n", def.Description)
	}

	switch def.Kind {
	case ast.Object:
		fmt.Fprintf(&b.out, "type %s", def.Name)
		if len(def.Interfaces) > 0 {
			fmt.Fprintf(&b.out, " implements %s", strings.Join(def.Interfaces, " & "))
		}
		b.out.WriteString(" {\n")
		b.writeFields(def.Fields, allowedFields)
		b.out.WriteString("}\n\n")

	case ast.Interface:
		fmt.Fprintf(&b.out, "interface %s", def.Name)
		if len(def.Interfaces) > 0 {
			fmt.Fprintf(&b.out, " implements %s", strings.Join(def.Interfaces, " & "))
		}
		b.out.WriteString(" {\n")
		b.writeFields(def.Fields, allowedFields)
		b.out.WriteString("}\n\n")

	case ast.Union:
		if len(def.Types) == 0 {
			return
		}
		fmt.Fprintf(&b.out, "union %s = %s\n\n", def.Name, strings.Join(def.Types, " | "))

	case ast.Enum:
		fmt.Fprintf(&b.out, "enum %s {\n", def.Name)
		for _, v := range def.EnumValues {
			if v.Description != "" {
				fmt.Fprintf(&b.out, "  \"%s\"\n", v.Description)
			}
			fmt.Fprintf(&b.out, "  %s\n", v.Name)
		}
		b.out.WriteString("}\n\n")

	case ast.InputObject:
		fmt.Fprintf(&b.out, "input %s {\n", def.Name)
		b.writeFields(def.Fields, nil)
		b.out.WriteString("}\n\n")

	case ast.Scalar:
		fmt.Fprintf(&b.out, "scalar %s\n\n", def.Name)
	}
}

func (b *sdlBuilder) writeFields(fields ast.FieldList, allowedFields map[string]bool) {
	for _, f := range fields {
		if allowedFields != nil && !allowedFields[f.Name] {
			continue
		}
		b.writeField(f)
	}
}

func (b *sdlBuilder) writeField(f *ast.FieldDefinition) {
	if f.Description != "" {
		fmt.Fprintf(&b.out, "  \"%s\"\n", f.Description)
	}
	fmt.Fprintf(&b.out, "  %s", f.Name)
	if len(f.Arguments) > 0 {
		b.out.WriteString("(")
		for i, arg := range f.Arguments {
			if i > 0 {
				b.out.WriteString(", ")
			}
			b.writeArgument(arg)
		}
		b.out.WriteString(")")
	}
	fmt.Fprintf(&b.out, ": %s\n", typeRefSDL(f.Type))
}

func (b *sdlBuilder) writeArgument(arg *ast.ArgumentDefinition) {
	if arg.Description != "" {
		fmt.Fprintf(&b.out, "\"%s\" ", arg.Description)
	}
	fmt.Fprintf(&b.out, "%s: %s", arg.Name, typeRefSDL(arg.Type))
	if arg.DefaultValue != nil {
		fmt.Fprintf(&b.out, " = %s", arg.DefaultValue.Raw)
	}
}

func typeRefSDL(t *ast.Type) string {
	if t == nil {
		return "String"
	}
	if t.NonNull {
		return typeRefSDL(t.Elem) + "!"
	}
	if t.Elem != nil {
		return "[" + typeRefSDL(t.Elem) + "]"
	}
	return t.NamedType
}

// builtinDirectives are always available via gqlparser.LoadSchema and never
// need redeclaring in tree-shaken output.
var builtinDirectives = map[string]bool{
	"skip":          true,
	"include":       true,
	"deprecated":    true,
	"specifiedBy":   true,
}

// writeDirectives emits declarations for custom directives used anywhere on
// a retained type/field/argument.
func (b *sdlBuilder) writeDirectives(schema *ast.Schema, retained map[string]*ast.Definition) {
	used := map[string]bool{}
	collect := func(list ast.DirectiveList) {
		for _, d := range list {
			if !builtinDirectives[d.Name] {
				used[d.Name] = true
			}
		}
	}
	for _, def := range retained {
		collect(def.Directives)
		for _, f := range def.Fields {
			collect(f.Directives)
			for _, arg := range f.Arguments {
				collect(arg.Directives)
			}
		}
		for _, v := range def.EnumValues {
			collect(v.Directives)
		}
	}
	for name := range used {
		dd, ok := schema.Directives[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b.out, "directive @%s", dd.Name)
		if len(dd.Arguments) > 0 {
			b.out.WriteString("(")
			for i, arg := range dd.Arguments {
				if i > 0 {
					b.out.WriteString(", ")
				}
				fmt.Fprintf(&b.out, "%s: %s", arg.Name, typeRefSDL(arg.Type))
			}
			b.out.WriteString(")")
		}
		locs := make([]string, len(dd.Locations))
		for i, loc := range dd.Locations {
			locs[i] = string(loc)
		}
		fmt.Fprintf(&b.out, " on %s\n\n", strings.Join(locs, " | "))
	}
}

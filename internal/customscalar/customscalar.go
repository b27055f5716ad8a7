// Package customscalar loads the custom_scalars configuration file (§6):
// a YAML map of GraphQL scalar name to a JSON Schema fragment, feeding
// internal/jsonschema's Builder.
package customscalar

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/apollographql/mcp-server-go/internal/jsonschema"
)

// Load reads and decodes path into the scalar-name -> JSON Schema map the
// operation compiler's CompileOptions.CustomScalars expects. A missing path
// is not an error: custom scalars are optional, and an absent map simply
// means every custom scalar falls back to the compiler's warn-and-empty-schema
// behaviour.
func Load(path string) (map[string]jsonschema.Schema, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read custom scalars file: %w", err)
	}

	var decoded map[string]map[string]any
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("parse custom scalars file: %w", err)
	}

	out := make(map[string]jsonschema.Schema, len(decoded))
	for scalar, fragment := range decoded {
		s := make(jsonschema.Schema, len(fragment))
		for k, v := range fragment {
			s[k] = v
		}
		out[scalar] = s
	}
	return out, nil
}

package mcpserver

// Input schemas for the five meta-tools (§4.6). These are hand-written
// rather than derived through internal/jsonschema.Builder: unlike a
// compiled operation's variables, a meta-tool's input shape never varies
// with the schema, so there is nothing to derive it from.

var introspectInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"type_name": map[string]any{
			"type":        "string",
			"description": "The GraphQL type to look up.",
		},
		"depth": map[string]any{
			"type":        "integer",
			"description": "How many field/argument steps to follow from type_name. 0 means unlimited.",
		},
	},
	"required": []string{"type_name"},
}

var searchInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"terms": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Search terms matched against type names, field names, and descriptions.",
		},
	},
	"required": []string{"terms"},
}

var validateInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "The GraphQL operation to validate against the current schema.",
		},
	},
	"required": []string{"query"},
}

var executeInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "The GraphQL operation to execute.",
		},
		"variables": map[string]any{
			"description": "Variable values as a JSON object or a JSON-encoded string.",
		},
	},
	"required": []string{"query"},
}

var explorerInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"document":  map[string]any{"type": "string", "description": "The GraphQL document, as JSON."},
		"variables": map[string]any{"type": "string", "description": "The operation variables, as JSON."},
		"headers":   map[string]any{"type": "string", "description": "The request headers, as JSON."},
	},
}

const (
	introspectToolName = "introspect"
	searchToolName     = "search"
	validateToolName   = "validate"
	executeToolName    = "execute"
	explorerToolName   = "explorer"
)

package config

import (
	"fmt"

	"github.com/apollographql/mcp-server-go/internal/customscalar"
	"github.com/apollographql/mcp-server-go/internal/mcpserver"
	"github.com/apollographql/mcp-server-go/internal/operations"
)

// Validate applies the cross-field checks the original enforces at
// startup: an invalid mutation_mode value, and (delegated) an invalid CORS
// combination.
func (c *Config) Validate() error {
	if _, err := operations.ParseMutationMode(c.Overrides.MutationMode); err != nil {
		return fmt.Errorf("overrides.mutation_mode: %w", err)
	}
	if err := c.CORS.Validate(); err != nil {
		return err
	}
	return nil
}

// CompileOptions builds the operations.CompileOptions this config implies,
// loading the custom_scalars file if one is configured.
func (c *Config) CompileOptions(warn func(string)) (operations.CompileOptions, error) {
	mode, err := operations.ParseMutationMode(c.Overrides.MutationMode)
	if err != nil {
		return operations.CompileOptions{}, err
	}

	scalars, err := customscalar.Load(c.CustomScalars)
	if err != nil {
		return operations.CompileOptions{}, err
	}

	return operations.CompileOptions{
		CustomScalars:            scalars,
		MutationMode:             mode,
		DisableTypeDescription:   c.Overrides.DisableTypeDescription,
		DisableSchemaDescription: c.Overrides.DisableSchemaDescription,
		Warn:                     warn,
	}, nil
}

// MCPServerConfig builds the internal/mcpserver.Config this config implies.
// serverVersion is threaded in separately since it comes from the build,
// not the configuration file.
func (c *Config) MCPServerConfig(serverVersion string) (mcpserver.Config, error) {
	mode, err := operations.ParseMutationMode(c.Overrides.MutationMode)
	if err != nil {
		return mcpserver.Config{}, err
	}

	cfg := mcpserver.Config{
		ServerVersion:          serverVersion,
		MutationMode:           mode,
		EnableIntrospect:       c.Introspection.Introspect.Enabled,
		EnableSearch:           c.Introspection.Search.Enabled,
		EnableValidate:         c.Introspection.Validate.Enabled,
		EnableExecute:          c.Introspection.Execute.Enabled,
		IntrospectDefaultDepth: 1,
		SearchLeafDepth:        c.Introspection.Search.LeafDepth,
		DefaultHeaders:         c.Headers,
	}

	if c.Overrides.EnableExplorer {
		if graph, variant, ok := c.GraphOS.GraphRef(); ok {
			ref := graph
			if variant != "" {
				ref = graph + "@" + variant
			}
			cfg.ExplorerGraphRef = ref
		}
	}

	return cfg, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/apollographql/mcp-server-go/internal/config"
	"github.com/apollographql/mcp-server-go/internal/manifest"
	"github.com/apollographql/mcp-server-go/internal/operations"
	"github.com/apollographql/mcp-server-go/internal/poller"
)

// defaultPlatformAPIURL is used for operation collection polling when the
// config does not override it via graphos.apollo_registry_url.
const defaultPlatformAPIURL = "https://api.apollographql.com/api/graphql"

const (
	defaultUplinkPollInterval = 10 * time.Second
	defaultUplinkTimeout      = 30 * time.Second
)

// buildSchemaSource translates cfg.Schema into the event stream the state
// machine consumes, per the schema: local{path} | uplink variants (§6).
func buildSchemaSource(ctx context.Context, cfg *config.Config) (<-chan poller.SchemaSourceEvent, error) {
	switch cfg.Schema.Source {
	case config.SchemaSourceLocal:
		if cfg.Schema.Path == "" {
			return nil, fmt.Errorf("schema.path is required when schema.source is local")
		}
		return poller.LocalSchemaSource(ctx, cfg.Schema.Path), nil

	case config.SchemaSourceUplink, "":
		endpoints := uplinkEndpoints(cfg)
		return poller.UplinkSchemaSource(ctx, cfg.GraphOS.ApolloKey, cfg.GraphOS.ApolloGraphRef, endpoints, defaultUplinkPollInterval, defaultUplinkTimeout), nil

	default:
		return nil, fmt.Errorf("unknown schema.source %q", cfg.Schema.Source)
	}
}

func uplinkEndpoints(cfg *config.Config) *poller.Endpoints {
	if len(cfg.GraphOS.ApolloUplinkEndpoints) > 0 {
		return poller.RoundRobin(cfg.GraphOS.ApolloUplinkEndpoints)
	}
	return poller.DefaultUplinkEndpoints()
}

// buildOperationSource translates cfg.Operations into the event stream the
// state machine consumes. The infer variant mirrors main.rs's fallback
// chain: no operations configured falls back to introspection-only (an
// immediately-closed, empty stream) when any introspection meta-tool is
// enabled, else to the graph's default collection when a graph ref is
// configured, else it is a startup error.
func buildOperationSource(ctx context.Context, cfg *config.Config, log logr.Logger) (<-chan poller.OperationSourceEvent, error) {
	switch cfg.Operations.Source {
	case config.OperationSourceLocal:
		if len(cfg.Operations.Paths) == 0 {
			return nil, fmt.Errorf("operations.paths is required when operations.source is local")
		}
		return poller.FileOperationSource(ctx, cfg.Operations.Paths, log), nil

	case config.OperationSourceManifest:
		if cfg.Operations.ManifestPath == "" {
			return nil, fmt.Errorf("operations.manifest_path is required when operations.source is manifest")
		}
		return localManifestSource(cfg.Operations.ManifestPath)

	case config.OperationSourceUplink:
		endpoints := uplinkEndpoints(cfg)
		return poller.UplinkManifestSource(ctx, cfg.GraphOS.ApolloKey, cfg.GraphOS.ApolloGraphRef, endpoints, defaultUplinkPollInterval, defaultUplinkTimeout, nil), nil

	case config.OperationSourceCollection:
		return collectionSource(ctx, cfg, cfg.Operations.CollectionID)

	case config.OperationSourceInfer, "":
		return inferOperationSource(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown operations.source %q", cfg.Operations.Source)
	}
}

func inferOperationSource(ctx context.Context, cfg *config.Config) (<-chan poller.OperationSourceEvent, error) {
	if cfg.Introspection.Execute.Enabled || cfg.Introspection.Introspect.Enabled ||
		cfg.Introspection.Search.Enabled || cfg.Introspection.Validate.Enabled {
		out := make(chan poller.OperationSourceEvent, 1)
		out <- poller.OperationSourceEvent{Operations: nil}
		close(out)
		return out, nil
	}

	if _, _, ok := cfg.GraphOS.GraphRef(); ok {
		return collectionSource(ctx, cfg, "")
	}

	return nil, fmt.Errorf("no operations source configured: set operations.source, or enable an introspection meta-tool, or configure a graph ref for the default collection")
}

func collectionSource(ctx context.Context, cfg *config.Config, collectionID string) (<-chan poller.OperationSourceEvent, error) {
	platformAPIURL := cfg.GraphOS.ApolloRegistryURL
	if platformAPIURL == "" {
		platformAPIURL = defaultPlatformAPIURL
	}
	ref := poller.CollectionRef{CollectionID: collectionID}
	if collectionID == "" {
		ref.GraphRef = cfg.GraphOS.ApolloGraphRef
	}
	return poller.CollectionOperationSource(ctx, platformAPIURL, cfg.GraphOS.ApolloKey, ref, defaultUplinkPollInterval), nil
}

// localManifestSource decodes a persisted-query manifest file once and
// emits it as a single, final operation batch: unlike FileOperationSource,
// a manifest file is not watched, matching the original's "local" manifest
// source having no live-reload story of its own.
func localManifestSource(path string) (<-chan poller.OperationSourceEvent, error) {
	raws, err := readManifestFile(path)
	if err != nil {
		return nil, err
	}

	out := make(chan poller.OperationSourceEvent, 1)
	out <- poller.OperationSourceEvent{Operations: raws}
	close(out)
	return out, nil
}

func readManifestFile(path string) ([]operations.RawOperation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persisted query manifest: %w", err)
	}

	decoded, err := manifest.Decode(raw, nil)
	if err != nil {
		return nil, err
	}

	raws := make([]operations.RawOperation, 0, len(decoded.Operations))
	for _, op := range decoded.Operations {
		raws = append(raws, operations.RawOperation{
			SourceText:       op.Body,
			PersistedQueryID: op.ID,
		})
	}
	return raws, nil
}

// Package config loads the YAML/env configuration surface (§6), grounded
// on original_source/crates/apollo-mcp-server/src/runtime.rs: a config file
// merged with environment variables, env taking precedence, using
// "APOLLO_MCP_" with "__" as the nested separator, plus three bare
// Apollo-wide variables (APOLLO_GRAPH_REF, APOLLO_KEY,
// APOLLO_UPLINK_ENDPOINTS) folded into the graphos block. The original uses
// figment; this port uses spf13/viper, already one of the teacher's
// dependencies, for the same merge-then-decode shape.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/apollographql/mcp-server-go/internal/corsmw"
	"github.com/apollographql/mcp-server-go/internal/health"
	"github.com/apollographql/mcp-server-go/internal/operations"
)

// SchemaSourceKind selects how the schema is obtained.
type SchemaSourceKind string

const (
	SchemaSourceLocal  SchemaSourceKind = "local"
	SchemaSourceUplink SchemaSourceKind = "uplink"
)

// SchemaConfig is the schema.{...} configuration block.
type SchemaConfig struct {
	Source SchemaSourceKind `mapstructure:"source"`
	Path   string           `mapstructure:"path"`
}

// OperationSourceKind selects how operations are obtained.
type OperationSourceKind string

const (
	OperationSourceInfer      OperationSourceKind = "infer"
	OperationSourceLocal      OperationSourceKind = "local"
	OperationSourceManifest   OperationSourceKind = "manifest"
	OperationSourceUplink     OperationSourceKind = "uplink"
	OperationSourceCollection OperationSourceKind = "collection"
)

// OperationsConfig is the operations.{...} configuration block.
type OperationsConfig struct {
	Source       OperationSourceKind `mapstructure:"source"`
	Paths        []string            `mapstructure:"paths"`
	ManifestPath string              `mapstructure:"manifest_path"`
	CollectionID string              `mapstructure:"collection_id"`
}

// ExecuteConfig is the introspection.execute configuration block.
type ExecuteConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// IntrospectConfig is the introspection.introspect configuration block.
type IntrospectConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Minify  bool `mapstructure:"minify"`
}

// SearchConfig is the introspection.search configuration block.
type SearchConfig struct {
	Enabled          bool  `mapstructure:"enabled"`
	IndexMemoryBytes int64 `mapstructure:"index_memory_bytes"`
	LeafDepth        int   `mapstructure:"leaf_depth"`
	Minify           bool  `mapstructure:"minify"`
}

// ValidateConfig is the introspection.validate configuration block.
type ValidateConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// IntrospectionConfig is the introspection.{...} configuration block: one
// enable flag per meta-tool.
type IntrospectionConfig struct {
	Execute    ExecuteConfig    `mapstructure:"execute"`
	Introspect IntrospectConfig `mapstructure:"introspect"`
	Search     SearchConfig     `mapstructure:"search"`
	Validate   ValidateConfig   `mapstructure:"validate"`
}

// OverridesConfig is the overrides.{...} configuration block.
type OverridesConfig struct {
	MutationMode             string `mapstructure:"mutation_mode"`
	DisableTypeDescription   bool   `mapstructure:"disable_type_description"`
	DisableSchemaDescription bool   `mapstructure:"disable_schema_description"`
	EnableExplorer           bool   `mapstructure:"enable_explorer"`
}

// LoggingConfig is the logging.{...} configuration block.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Path     string `mapstructure:"path"`
	Rotation string `mapstructure:"rotation"`
}

// GraphOSConfig is the graphos.{...} configuration block, populated either
// from the YAML file or from the bare APOLLO_GRAPH_REF / APOLLO_KEY /
// APOLLO_UPLINK_ENDPOINTS environment variables.
type GraphOSConfig struct {
	ApolloKey             string   `mapstructure:"apollo_key"`
	ApolloGraphRef        string   `mapstructure:"apollo_graph_ref"`
	ApolloRegistryURL     string   `mapstructure:"apollo_registry_url"`
	ApolloUplinkEndpoints []string `mapstructure:"apollo_uplink_endpoints"`
}

// GraphRef splits "graph@variant" into its two parts, as the explorer deep
// link and the default-collection operation source both need.
func (g GraphOSConfig) GraphRef() (graph, variant string, ok bool) {
	if g.ApolloGraphRef == "" {
		return "", "", false
	}
	parts := strings.SplitN(g.ApolloGraphRef, "@", 2)
	if len(parts) != 2 {
		return parts[0], "", true
	}
	return parts[0], parts[1], true
}

// AuthConfig is the transport.*.auth.{...} configuration block.
type AuthConfig struct {
	Servers   []string `mapstructure:"servers"`
	Audiences []string `mapstructure:"audiences"`
}

// TransportKind selects the MCP transport.
type TransportKind string

const (
	TransportStdio          TransportKind = "stdio"
	TransportSSE            TransportKind = "sse"
	TransportStreamableHTTP TransportKind = "streamable_http"
)

// TransportConfig is the transport.{...} configuration block. The original
// Rust config represents this as a tagged enum (a bare "stdio" string, or a
// "sse"/"streamable_http" map carrying its own fields); runtime.rs's own
// Config/Transport types are not part of the filtered original source, so
// this port uses an explicit Type discriminator instead of reconstructing
// the exact serde tagging, while keeping the three variants and fields
// (address, port, auth) runtime/serve.rs names.
type TransportConfig struct {
	Type    TransportKind `mapstructure:"type"`
	Address string        `mapstructure:"address"`
	Port    int           `mapstructure:"port"`
	Auth    *AuthConfig   `mapstructure:"auth"`
}

// TelemetryConfig is the telemetry.{...} configuration block. Telemetry
// export is out of scope (§1 Non-goals); these fields are parsed so the key
// surface round-trips, but nothing in this server acts on them.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
}

// Config is the full configuration surface (§6).
type Config struct {
	Endpoint      string              `mapstructure:"endpoint"`
	Headers       map[string]string   `mapstructure:"headers"`
	Schema        SchemaConfig        `mapstructure:"schema"`
	Operations    OperationsConfig    `mapstructure:"operations"`
	Introspection IntrospectionConfig `mapstructure:"introspection"`
	Overrides     OverridesConfig     `mapstructure:"overrides"`
	CustomScalars string              `mapstructure:"custom_scalars"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	HealthCheck   health.Config       `mapstructure:"health_check"`
	CORS          corsmw.Config       `mapstructure:"cors"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Transport     TransportConfig     `mapstructure:"transport"`
	GraphOS       GraphOSConfig       `mapstructure:"graphos"`
}

const envNestedSeparator = "__"

// viperDurationHook lets "5s"-style strings decode into time.Duration
// fields (health_check.readiness.interval.sampling), matching the
// original's humantime-backed duration parsing.
var viperDurationHook = viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())

// Load reads configuration from path, a YAML file, merged with environment
// variables (env wins). An empty path reads from the environment alone,
// matching the original's read_config_from_env fallback.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("APOLLO_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envNestedSeparator))
	v.AutomaticEnv()

	bindCommonApolloEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDurationHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if endpoints := os.Getenv("APOLLO_UPLINK_ENDPOINTS"); endpoints != "" {
		cfg.GraphOS.ApolloUplinkEndpoints = splitCommaList(endpoints)
	}

	return &cfg, nil
}

// bindCommonApolloEnv folds the three bare Apollo-wide environment
// variables into the graphos block, matching runtime.rs's apollo_common_env.
func bindCommonApolloEnv(v *viper.Viper) {
	_ = v.BindEnv("graphos.apollo_graph_ref", "APOLLO_GRAPH_REF")
	_ = v.BindEnv("graphos.apollo_key", "APOLLO_KEY")
	_ = v.BindEnv("graphos.apollo_uplink_endpoints", "APOLLO_UPLINK_ENDPOINTS")
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// setDefaults registers every default the snapshot test in runtime.rs
// pins: health_check disabled at /health with a 5s sampling window and 100
// allowed rejections, search's 50MB index budget and leaf_depth 1, info
// level hourly-rotated logging, and the default CORS methods/origin.
func setDefaults(v *viper.Viper) {
	v.SetDefault("schema.source", string(SchemaSourceUplink))
	v.SetDefault("operations.source", string(OperationSourceInfer))

	v.SetDefault("introspection.execute.enabled", false)
	v.SetDefault("introspection.introspect.enabled", false)
	v.SetDefault("introspection.introspect.minify", false)
	v.SetDefault("introspection.search.enabled", false)
	v.SetDefault("introspection.search.index_memory_bytes", 50_000_000)
	v.SetDefault("introspection.search.leaf_depth", 1)
	v.SetDefault("introspection.search.minify", false)
	v.SetDefault("introspection.validate.enabled", false)

	v.SetDefault("overrides.mutation_mode", "")
	v.SetDefault("overrides.disable_type_description", false)
	v.SetDefault("overrides.disable_schema_description", false)
	v.SetDefault("overrides.enable_explorer", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.rotation", "hourly")

	v.SetDefault("health_check.enabled", false)
	v.SetDefault("health_check.path", "/health")
	v.SetDefault("health_check.readiness.interval.sampling", 5*time.Second)
	v.SetDefault("health_check.readiness.allowed", 100)

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.origins", []string{"https://studio.apollographql.com"})

	v.SetDefault("transport.type", string(TransportStdio))
}

// Command apollo-mcp-server bridges a GraphQL API to the Model Context
// Protocol: it loads a schema and a set of operations, compiles each
// operation into an MCP tool, and serves the result over stdio or HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/apollographql/mcp-server-go/internal/auth"
	"github.com/apollographql/mcp-server-go/internal/config"
	"github.com/apollographql/mcp-server-go/internal/logging"
	"github.com/apollographql/mcp-server-go/internal/mcpserver"
	"github.com/apollographql/mcp-server-go/internal/poller"
	"github.com/apollographql/mcp-server-go/internal/statemachine"
)

// serverVersion is the version reported to MCP peers during initialize and
// sent to Uplink as x-apollo-mcp-server-version; overridden at build time with
// -ldflags "-X main.serverVersion=...".
var serverVersion = "dev"

// upstreamCallTimeout bounds every GraphQL request the compiled-operation
// and execute tools issue against the upstream endpoint.
const upstreamCallTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "apollo-mcp-server",
		Short:         "Bridge a GraphQL API to the Model Context Protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	poller.SetServerVersion(serverVersion)

	log := logging.Setup(cfg.Logging, cfg.Transport.Type == config.TransportStdio)
	log.Info("loaded configuration", "endpoint", cfg.Endpoint, "transport", cfg.Transport.Type)

	compileOpts, err := cfg.CompileOptions(func(msg string) { log.Info(msg) })
	if err != nil {
		return err
	}

	machine := statemachine.New(compileOpts)
	machine.Logger = log

	mcpCfg, err := cfg.MCPServerConfig(serverVersion)
	if err != nil {
		return err
	}

	validator := buildValidator(cfg, log)

	// server is assigned below, after the binder is constructed: the
	// binder only runs once the state machine reaches Starting, which is
	// always after mcpserver.New returns, so the closure never observes
	// a nil server in practice.
	var server *mcpserver.Server
	getServer := func() *mcpserver.Server { return server }

	binder, err := newBinder(cfg, getServer, validator, log)
	if err != nil {
		return err
	}
	server = mcpserver.New(machine, cfg.Endpoint, upstreamCallTimeout, mcpCfg, validator, binder, log)

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	schemaEvents, err := buildSchemaSource(runCtx, cfg)
	if err != nil {
		return err
	}
	opEvents, err := buildOperationSource(runCtx, cfg, log)
	if err != nil {
		return err
	}

	log.Info("starting state machine")
	return machine.Run(runCtx, schemaEvents, opEvents)
}

func buildValidator(cfg *config.Config, log logr.Logger) *auth.Validator {
	if cfg.Transport.Auth == nil || len(cfg.Transport.Auth.Servers) == 0 {
		return nil
	}
	return auth.NewValidator(cfg.Transport.Auth.Servers, cfg.Transport.Auth.Audiences, log)
}

// Package mcpserver builds the MCP tool surface described in spec.md §4.6
// from the state machine's compiled operations: the five meta-tools
// (introspect, search, validate, execute, explorer) plus one tool per
// compiled operation. Grounded on the teacher's pkg/graphqlmcp/mcp.go —
// mcp.AddTool registration, the CallToolResult success/error shaping in
// executeGraphQLOperation, and RefreshSchema's "rebuild the whole
// mcp.Server from scratch" idiom, which this package follows exactly:
// every tools-changed event builds a brand new *mcp.Server and swaps it in
// under a mutex rather than mutating an existing one's tool set in place.
package mcpserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apollographql/mcp-server-go/internal/auth"
	"github.com/apollographql/mcp-server-go/internal/explorer"
	"github.com/apollographql/mcp-server-go/internal/graphqlupstream"
	"github.com/apollographql/mcp-server-go/internal/operations"
	"github.com/apollographql/mcp-server-go/internal/searchindex"
	"github.com/apollographql/mcp-server-go/internal/statemachine"
)

// ServerName, with Config.ServerVersion, identifies this server to MCP peers (§6:
// initialize must report `{name:"Apollo MCP Server", version:<version>}`).
const ServerName = "Apollo MCP Server"

// Config carries the parts of the configuration surface (§6) this package
// needs: which meta-tools are enabled, and the knobs each accepts.
type Config struct {
	ServerVersion string

	MutationMode operations.MutationMode

	EnableIntrospect bool
	EnableSearch     bool
	EnableValidate   bool
	EnableExecute    bool

	// IntrospectDefaultDepth is the depth introspect uses when the caller
	// omits one; 0 means Unlimited, matching the meta-tool's own convention.
	IntrospectDefaultDepth int
	// SearchLeafDepth is the depth search retains the matched leaf type to.
	SearchLeafDepth int

	// ExplorerGraphRef, when non-empty, enables the explorer tool scoped to
	// this graph-id@variant.
	ExplorerGraphRef string

	DefaultHeaders map[string]string
}

// DefaultConfig returns the meta-tool defaults spec.md §4.6 documents.
func DefaultConfig() Config {
	return Config{
		ServerVersion:          "dev",
		EnableIntrospect:       true,
		EnableSearch:           true,
		EnableValidate:         true,
		EnableExecute:          true,
		IntrospectDefaultDepth: 1,
		SearchLeafDepth:        1,
	}
}

// Binder hands a freshly built *mcp.Server to its transport. It is called
// once, from Start, and is expected to return quickly — serving a
// long-lived transport is the binder's own job (e.g. spawn a goroutine),
// not something Start blocks on.
type Binder func(ctx context.Context, server *mcp.Server) error

// Server owns the MCP tool surface: it listens for statemachine.Machine's
// tools-changed notifications, rebuilds the tool set, and hands the result
// to a transport via Binder.
type Server struct {
	cfg      Config
	machine  *statemachine.Machine
	upstream *graphqlupstream.Client
	search   *searchindex.Cache
	explore  *explorer.Explorer
	validate *auth.Validator
	log      logr.Logger
	binder   Binder

	mu        sync.RWMutex
	mcpServer *mcp.Server
}

// New wires a Server to machine's OnToolsChanged and OnStart hooks. tokenValidator
// may be nil (auth disabled); upstreamTimeout bounds every upstream GraphQL
// call the compiled-operation and execute tools make.
func New(machine *statemachine.Machine, endpoint string, upstreamTimeout time.Duration, cfg Config, tokenValidator *auth.Validator, binder Binder, log logr.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		machine:  machine,
		upstream: graphqlupstream.New(endpoint, upstreamTimeout),
		search:   mustSearchCache(),
		validate: tokenValidator,
		binder:   binder,
		log:      log,
	}
	if cfg.ExplorerGraphRef != "" {
		s.explore = explorer.New(cfg.ExplorerGraphRef)
	}

	machine.OnToolsChanged = s.rebuild
	machine.OnStart = s.Start
	return s
}

func mustSearchCache() *searchindex.Cache {
	// A fixed small size: one schema launch is active at a time, plus
	// whatever the LRU keeps around across a handful of recent launches.
	c, err := searchindex.NewCache(4)
	if err != nil {
		panic(err) // unreachable: NewCache only fails for a non-positive size
	}
	return c
}

// Start performs an initial rebuild (covering the case where the schema
// arrived before New wired the hook) and hands the current snapshot to the
// transport binder.
func (s *Server) Start(ctx context.Context) error {
	if s.currentServer() == nil {
		s.rebuild(s.machine.Operations())
	}

	srv := s.currentServer()
	if srv == nil {
		return fmt.Errorf("mcpserver: no tool set compiled before start")
	}
	return s.binder(ctx, srv)
}

func (s *Server) currentServer() *mcp.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mcpServer
}

// Current returns the most recently rebuilt *mcp.Server, or nil before the
// first rebuild. HTTP-based binders should call this on every incoming
// request rather than closing over the snapshot Start hands them, so a
// later schema/operation change is reflected on the next request even
// though no live tools_changed notification reaches already-connected
// stdio/SSE sessions: rebuild swaps in a new *mcp.Server instead of
// changing the tool set of the one those sessions are bound to.
func (s *Server) Current() *mcp.Server {
	return s.currentServer()
}

// rebuild implements statemachine.ToolsChangedFunc: build a fresh
// *mcp.Server with every compiled operation plus the enabled meta-tools,
// then swap it in. Matches the teacher's RefreshSchema.
func (s *Server) rebuild(ops []*operations.Operation) {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: s.cfg.ServerVersion,
	}, nil)

	for _, op := range ops {
		s.addCompiledOperationTool(srv, op)
	}
	s.addMetaTools(srv)

	s.mu.Lock()
	s.mcpServer = srv
	s.mu.Unlock()

	s.log.V(1).Info("rebuilt mcp tool set", "operation_count", len(ops))
}

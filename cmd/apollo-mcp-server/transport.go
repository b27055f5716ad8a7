package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apollographql/mcp-server-go/internal/auth"
	"github.com/apollographql/mcp-server-go/internal/config"
	"github.com/apollographql/mcp-server-go/internal/corsmw"
	"github.com/apollographql/mcp-server-go/internal/health"
	"github.com/apollographql/mcp-server-go/internal/mcpserver"
)

// newBinder builds the mcpserver.Binder for cfg.Transport, grounded on
// runtime/serve.rs's three-way match over Transport: Stdio runs the
// connection to completion in its own goroutine (the original's
// `service.waiting().await`); StreamableHttp and SSE both mount the MCP
// handler on an http.Server behind optional auth and CORS, with the health
// endpoint attached only when configured (the original restricts health
// checks to StreamableHttp; this port allows either HTTP-based transport
// since both serve the same mux).
func newBinder(cfg *config.Config, getServer func() *mcpserver.Server, validator *auth.Validator, log logr.Logger) (mcpserver.Binder, error) {
	switch cfg.Transport.Type {
	case config.TransportStdio, "":
		return stdioBinder(log), nil

	case config.TransportStreamableHTTP, config.TransportSSE:
		return httpBinder(cfg, getServer, validator, log), nil

	default:
		return nil, fmt.Errorf("unknown transport.type %q", cfg.Transport.Type)
	}
}

func stdioBinder(log logr.Logger) mcpserver.Binder {
	return func(ctx context.Context, srv *mcp.Server) error {
		go func() {
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				log.Error(err, "stdio transport exited")
			}
		}()
		return nil
	}
}

func httpBinder(cfg *config.Config, getServer func() *mcpserver.Server, validator *auth.Validator, log logr.Logger) mcpserver.Binder {
	return func(ctx context.Context, _ *mcp.Server) error {
		mux, err := buildHTTPMux(cfg, getServer, validator, log)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf("%s:%d", cfg.Transport.Address, cfg.Transport.Port)
		if cfg.Transport.Address == "" {
			addr = fmt.Sprintf(":%d", cfg.Transport.Port)
		}

		httpServer := &http.Server{Addr: addr, Handler: mux}

		go func() {
			<-ctx.Done()
			_ = httpServer.Close()
		}()

		go func() {
			log.Info("starting mcp server", "transport", cfg.Transport.Type, "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error(err, "http transport exited")
			}
		}()

		return nil
	}
}

// buildHTTPMux mounts the MCP handler (always reading the server's latest
// rebuilt *mcp.Server via Current, rather than the snapshot bound at
// startup) under CORS and, for requests presenting a bearer token, auth
// validation threaded into the handler's context, plus the health-check
// endpoint when enabled.
func buildHTTPMux(cfg *config.Config, getServer func() *mcpserver.Server, validator *auth.Validator, log logr.Logger) (http.Handler, error) {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return getServer().Current()
	}, nil)

	router := chi.NewRouter()

	corsMiddleware, err := corsmw.Middleware(cfg.CORS)
	if err != nil {
		return nil, err
	}
	router.Use(corsMiddleware)

	router.Handle("/mcp", authenticate(validator, mcpHandler))
	// SSE clients speak the same streamable-HTTP wire format against a
	// path named for backward compatibility with the original's separate
	// /sse endpoint; the go-sdk handler multiplexes both GET (SSE) and
	// POST on one path.
	router.Handle("/sse", authenticate(validator, mcpHandler))

	if cfg.HealthCheck.Enabled {
		checker := health.New(context.Background(), cfg.HealthCheck, log)
		router.Get(cfg.HealthCheck.Path, checker.ServeHTTP)
		router.Handle("/metrics", promhttp.Handler())
	}

	return router, nil
}

// authenticate wraps next so a validated bearer token is threaded into the
// request context before the MCP handler runs, matching mcpserver's
// WithValidToken/ValidTokenFromContext contract. A missing or invalid
// token is not an error here: it simply means the downstream tool calls
// see no token, exactly as §7 requires ("absent", never an error).
func authenticate(validator *auth.Validator, next http.Handler) http.Handler {
	if validator == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r.Header.Get("Authorization"))
		if token, ok := validator.Validate(r.Context(), raw); ok {
			r = r.WithContext(mcpserver.WithValidToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

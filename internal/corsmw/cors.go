// Package corsmw builds the CORS middleware for the HTTP-based transports
// (SSE and streamable-HTTP), grounded on
// original_source/crates/apollo-mcp-server/src/cors.rs: the same config
// shape and the same startup-time validation rules, ported from
// tower-http's CorsLayer to go-chi/cors (the pack's HTTP middleware
// library, already used by the teacher's transport layer).
package corsmw

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
)

// Config is the cors.{...} configuration block (§6).
type Config struct {
	Enabled          bool          `mapstructure:"enabled"`
	AllowAnyOrigin   bool          `mapstructure:"allow_any_origin"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	AllowHeaders     []string      `mapstructure:"allow_headers"`
	ExposeHeaders    []string      `mapstructure:"expose_headers"`
	Methods          []string      `mapstructure:"methods"`
	MaxAge           time.Duration `mapstructure:"max_age"`
	Origins          []string      `mapstructure:"origins"`
}

// DefaultConfig matches the Rust original's CorsConfig::default.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Methods: []string{"GET", "POST", "OPTIONS"},
		Origins: []string{"https://studio.apollographql.com"},
	}
}

// Validate applies the CORS spec checks the original enforces at startup:
// wildcard origins must go through AllowAnyOrigin, origins may not carry a
// trailing slash, and allow_credentials may never combine with a wildcard
// anywhere else in the config.
func (c Config) Validate() error {
	for _, o := range c.Origins {
		if o == "*" {
			return fmt.Errorf("invalid CORS configuration: use allow_any_origin: true to set Access-Control-Allow-Origin: *")
		}
		if o != "/" && strings.HasSuffix(o, "/") {
			return fmt.Errorf("invalid CORS configuration: origins cannot have trailing slashes")
		}
	}

	if c.AllowCredentials {
		if containsStar(c.AllowHeaders) {
			return fmt.Errorf("invalid CORS configuration: cannot combine allow_credentials: true with wildcard in allow_headers")
		}
		if containsStar(c.Methods) {
			return fmt.Errorf("invalid CORS configuration: cannot combine allow_credentials: true with wildcard in methods")
		}
		if c.AllowAnyOrigin {
			return fmt.Errorf("invalid CORS configuration: cannot combine allow_credentials: true with allow_any_origin: true")
		}
		if containsStar(c.ExposeHeaders) {
			return fmt.Errorf("invalid CORS configuration: cannot combine allow_credentials: true with wildcard in expose_headers")
		}
	}

	return nil
}

func containsStar(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}

// Middleware validates c and builds the http.Handler wrapper. A disabled
// config returns the identity middleware: no CORS headers are added.
func Middleware(c Config) (func(http.Handler) http.Handler, error) {
	if !c.Enabled {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	origins := c.Origins
	if c.AllowAnyOrigin {
		origins = []string{"*"}
	}

	allowHeaders := c.AllowHeaders
	if len(allowHeaders) == 0 {
		allowHeaders = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   c.Methods,
		AllowedHeaders:   allowHeaders,
		ExposedHeaders:   c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           int(c.MaxAge.Seconds()),
	}), nil
}

// Package logging builds the server's logr.Logger from the logging.{...}
// configuration block (§6), grounded on the teacher's
// pkg/graphqlmcp/logging.go ConfigureLogging (an slog handler wrapped as a
// logr.Logger via logr.FromSlogHandler). Extended with
// gopkg.in/natefinch/lumberjack.v2 for the rotation key, a library also
// seen in the retrieval pack (manifests/usestring-powhttp-mcp,
// manifests/Hola-to-network_logistics_problem).
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/apollographql/mcp-server-go/internal/config"
)

// rotationMaxAge maps the original's coarse rotation policies onto
// lumberjack's day-based MaxAge, the closest knob it exposes.
var rotationMaxAge = map[string]int{
	"hourly": 1,
	"daily":  1,
	"never":  0,
}

// Setup builds a logr.Logger per cfg. Stdio transports must never write
// logs to stdout (it carries the MCP protocol stream), so callers pass
// stderrOnly true for that case, matching main.rs's branch on transport.
func Setup(cfg config.LoggingConfig, stderrOnly bool) logr.Logger {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	if cfg.Path != "" {
		writer := &lumberjack.Logger{
			Filename: cfg.Path,
			MaxAge:   rotationMaxAge[strings.ToLower(cfg.Rotation)],
			Compress: false,
		}
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	} else if stderrOnly {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
	return logr.FromSlogHandler(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

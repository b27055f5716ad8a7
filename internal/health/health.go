// Package health implements the liveness/readiness endpoint (§6), grounded
// on original_source/crates/apollo-mcp-server/src/health.rs: a readiness
// gauge that trips unready once too many rejections land in one sampling
// window, then self-heals after a recovery interval.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apollo_mcp_health_ready",
		Help: "1 if the server currently reports ready, 0 otherwise.",
	})
	rejectedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apollo_mcp_health_rejections_total",
		Help: "Total requests shed for backpressure, counted toward the readiness threshold.",
	})
)

func init() {
	prometheus.MustRegister(readyGauge, rejectedCounter)
	readyGauge.Set(1)
}

// ReadinessIntervalConfig is the readiness.interval configuration block.
type ReadinessIntervalConfig struct {
	// Sampling is how often the rejection counter is checked. Default 5s.
	Sampling time.Duration
	// Unready is how long the server reports unready before recovering.
	// Defaults to 2*Sampling when zero.
	Unready time.Duration
}

// ReadinessConfig is the readiness configuration block.
type ReadinessConfig struct {
	Interval ReadinessIntervalConfig
	// Allowed is how many rejections are tolerated per sampling window
	// before the server reports unready. Default 100.
	Allowed int
}

// Config is the health_check configuration block.
type Config struct {
	Enabled   bool
	Path      string
	Readiness ReadinessConfig
}

// DefaultConfig matches the Rust original's HealthCheckConfig::default.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Path:    "/health",
		Readiness: ReadinessConfig{
			Interval: ReadinessIntervalConfig{Sampling: 5 * time.Second},
			Allowed:  100,
		},
	}
}

// Status is the health response body.
type Status struct {
	Status string `json:"status"`
}

// Checker tracks liveness and readiness and serves the health endpoint.
// Live only ever turns false on process-level failure; Ready trips when
// rejections exceed the configured threshold within a sampling window,
// then self-heals after the recovery interval.
type Checker struct {
	config   Config
	log      logr.Logger
	live     atomic.Bool
	ready    atomic.Bool
	rejected atomic.Int64
}

// New builds a Checker and starts its readiness-sampling goroutine. Cancel
// ctx to stop the goroutine.
func New(ctx context.Context, config Config, log logr.Logger) *Checker {
	c := &Checker{config: config, log: log}
	c.live.Store(true)
	c.ready.Store(true)

	sampling := config.Readiness.Interval.Sampling
	if sampling <= 0 {
		sampling = 5 * time.Second
	}
	recovery := config.Readiness.Interval.Unready
	if recovery <= 0 {
		recovery = 2 * sampling
	}

	go c.sample(ctx, sampling, recovery)
	return c
}

func (c *Checker) sample(ctx context.Context, sampling, recovery time.Duration) {
	ticker := time.NewTicker(sampling)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if int(c.rejected.Load()) <= c.config.Readiness.Allowed {
				continue
			}
			c.log.V(1).Info("health check readiness threshold exceeded, marking as unready")
			c.ready.Store(false)
			readyGauge.Set(0)

			select {
			case <-ctx.Done():
				return
			case <-time.After(recovery):
			}
			c.rejected.Store(0)
			c.ready.Store(true)
			readyGauge.Set(1)
			c.log.V(1).Info("health check readiness restored")
		}
	}
}

// RecordRejection increments the per-window rejection counter. Call this
// whenever the server sheds a request (backpressure, overload).
func (c *Checker) RecordRejection() {
	c.rejected.Add(1)
	rejectedCounter.Inc()
}

// ServeHTTP answers /health?query=ready|live with 200/503 and a JSON body,
// matching the Rust original's query-prefix matching ("READY...", "LIVE...").
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := strings.ToUpper(r.URL.Query().Get("query"))

	status := Status{Status: "UP"}
	code := http.StatusOK

	switch {
	case strings.HasPrefix(query, "READY"):
		if !c.ready.Load() {
			status.Status = "DOWN"
			code = http.StatusServiceUnavailable
		}
	case strings.HasPrefix(query, "LIVE"):
		if !c.live.Load() {
			status.Status = "DOWN"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_MatchesOriginal(t *testing.T) {
	c := DefaultConfig()
	assert.False(t, c.Enabled)
	assert.Equal(t, "/health", c.Path)
	assert.Equal(t, 100, c.Readiness.Allowed)
	assert.Equal(t, 5*time.Second, c.Readiness.Interval.Sampling)
}

func TestServeHTTP_DefaultsToUp(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	checker := New(ctx, DefaultConfig(), logr.Discard())

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UP", body.Status)
}

func TestServeHTTP_ReadyQueryReflectsReadiness(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	checker := New(ctx, DefaultConfig(), logr.Discard())
	checker.ready.Store(false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health?query=ready", nil)
	checker.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DOWN", body.Status)
}

func TestRecordRejection_TripsUnreadyPastThreshold(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	cfg := DefaultConfig()
	cfg.Readiness.Allowed = 2
	cfg.Readiness.Interval.Sampling = 10 * time.Millisecond
	cfg.Readiness.Interval.Unready = 50 * time.Millisecond

	checker := New(ctx, cfg, logr.Discard())
	for i := 0; i < 5; i++ {
		checker.RecordRejection()
	}

	require.Eventually(t, func() bool {
		return !checker.ready.Load()
	}, 200*time.Millisecond, 5*time.Millisecond)
}

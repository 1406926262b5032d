package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "custos/internal/errors"
	"custos/internal/services"
	"custos/internal/shared/testutil"
)

func newHealthRouter(t *testing.T, sessions *services.SessionStore, prom http.Handler) *chi.Mux {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	health := services.NewHealthService("v1.0.0-test", "2026-01-01T00:00:00Z", "abc123", sessions, 10, logger)
	handler := NewHealthHandler(health, logger)
	metrics := NewMetricsHandler(prom, health, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Get("/api/health", handler.HealthCheck)
	r.Get("/api/health/ready", handler.ReadinessCheck)
	r.Get("/api/health/live", handler.LivenessCheck)
	r.Get("/api/health/detailed", handler.Detailed)
	r.Get("/api/version", handler.Version)
	r.Mount("/metrics", metrics.Routes())
	return r
}

func TestHealthHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	store := services.NewSessionStore(time.Hour, 10, nil, logger)
	r := newHealthRouter(t, store, nil)

	tests := []struct {
		path       string
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{"/api/health", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, "v1.0.0-test", body["version"])
		}},
		{"/api/health/ready", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, "ready", body["status"])
			assert.Contains(t, body["services"], "sessions")
		}},
		{"/api/health/live", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, "alive", body["status"])
			assert.Contains(t, body["runtime"], "goroutines")
		}},
		{"/api/health/detailed", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Contains(t, body, "readiness")
			assert.Contains(t, body, "stats")
		}},
		{"/api/version", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, "abc123", body["build_id"])
		}},
		{"/metrics/stats", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, float64(0), body["active_sessions"])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			tt.check(t, body)
		})
	}
}

func TestHealthHandler_NotReadyWithoutSessions(t *testing.T) {
	r := newHealthRouter(t, nil, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestMetricsHandler(t *testing.T) {
	t.Run("prometheus registry", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "custos_test_total", Help: "test"})
		registry.MustRegister(counter)
		counter.Inc()

		r := newHealthRouter(t, nil, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "custos_test_total 1")
	})

	t.Run("export disabled", func(t *testing.T) {
		r := newHealthRouter(t, nil, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

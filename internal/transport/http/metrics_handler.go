package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "custos/internal/errors"
	"custos/internal/services"
)

// MetricsHandler exposes the Prometheus registry and runtime statistics
type MetricsHandler struct {
	prometheus   http.Handler
	health       *services.HealthService
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler creates a new metrics handler. prometheus is nil when metric export is off.
func NewMetricsHandler(prometheus http.Handler, health *services.HealthService, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{
		prometheus:   prometheus,
		health:       health,
		errorHandler: errorHandler,
	}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	r.Get("/stats", h.GetStats)
	return r
}

// GetMetrics serves the Prometheus exposition format
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrServiceUnavailable)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// GetStats returns uptime, session and runtime statistics as JSON
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.health.SystemStats(r.Context()))
}

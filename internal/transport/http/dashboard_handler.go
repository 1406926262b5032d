package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "custos/internal/errors"
	"custos/internal/middleware"
	"custos/internal/services"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DashboardHandler serves the JSON API over workbook sessions
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.Validator
	maxBytes     int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates the handler. maxBytes is the largest accepted workbook.
func NewDashboardHandler(service DashboardServiceInterface, validator *middleware.Validator, maxBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		maxBytes:     maxBytes,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the workbook routes, to be mounted at /api/workbooks
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(
		middleware.MaxBodySize(h.maxBytes+multipartOverhead),
		middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"),
	).Post("/", h.Upload)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/sheets", h.GetSheets)
		r.Get("/summary", h.GetSummary)
		r.Get("/series", h.GetSeries)
		r.Get("/product-margins", h.GetProductMargins)
		r.Get("/export/summary.xlsx", h.ExportWorkbook)
		r.Get("/export/{kind}.csv", h.ExportCSV)
		r.Delete("/", h.DeleteSession)
	})

	return r
}

// SessionCtx rejects unknown session ids before any handler runs
func (h *DashboardHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := h.service.Session(r.Context(), id); err != nil {
			h.fail(w, r, id, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Upload handles POST /api/workbooks. A session_id form value replaces that
// session's workbook; otherwise a new session is created.
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r, h.maxBytes)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Upload(r.Context(), r.FormValue("session_id"), name, data)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replaced {
		status = http.StatusOK
	}
	render.Status(r, status)
	render.JSON(w, r, result)
}

// GetSheets handles GET /api/workbooks/{id}/sheets
func (h *DashboardHandler) GetSheets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sheets, err := h.service.Sheets(r.Context(), id)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"session_id": id,
		"sheets":     sheets,
	})
}

// GetSummary handles GET /api/workbooks/{id}/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, months, ok := h.selection(w, r)
	if !ok {
		return
	}
	summaries, err := h.service.Summaries(r.Context(), id, months)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"session_id": id,
		"summaries":  summaries,
	})
}

// GetSeries handles GET /api/workbooks/{id}/series
func (h *DashboardHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	id, months, ok := h.selection(w, r)
	if !ok {
		return
	}
	series, err := h.service.Series(r.Context(), id, months)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	render.JSON(w, r, series)
}

// GetProductMargins handles GET /api/workbooks/{id}/product-margins
func (h *DashboardHandler) GetProductMargins(w http.ResponseWriter, r *http.Request) {
	id, months, ok := h.selection(w, r)
	if !ok {
		return
	}
	margins, err := h.service.ProductMargins(r.Context(), id, months)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	render.JSON(w, r, margins)
}

// ExportCSV handles GET /api/workbooks/{id}/export/{kind}.csv
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	kind, err := h.validator.ParseExportKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	id, months, ok := h.selection(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	switch kind {
	case "series":
		err = h.service.ExportSeriesCSV(r.Context(), id, months, &buf)
	default:
		err = h.service.ExportMarginsCSV(r.Context(), id, months, &buf)
	}
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	h.attachment(w, contentTypeCSV, "custos-"+kind+".csv", buf.Bytes())
}

// ExportWorkbook handles GET /api/workbooks/{id}/export/summary.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	id, months, ok := h.selection(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.service.ExportWorkbook(r.Context(), id, months, &buf); err != nil {
		h.fail(w, r, id, err)
		return
	}
	h.attachment(w, contentTypeXLSX, "custos-summary.xlsx", buf.Bytes())
}

// DeleteSession handles DELETE /api/workbooks/{id}
func (h *DashboardHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Close(r.Context(), id); err != nil {
		h.fail(w, r, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// selection reads the session id and the validated months of the request
func (h *DashboardHandler) selection(w http.ResponseWriter, r *http.Request) (string, []string, bool) {
	months, err := h.validator.ParseMonths(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return "", nil, false
	}
	return chi.URLParam(r, "id"), months, true
}

func (h *DashboardHandler) attachment(w http.ResponseWriter, contentType, fileName string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// fail maps service errors onto API errors and responds
func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, id string, err error) {
	h.errorHandler.HandleError(w, r, sessionError(id, err))
}

func sessionError(id string, err error) error {
	if errors.Is(err, services.ErrSessionNotFound) {
		return apierrors.SessionNotFoundError(id)
	}
	return err
}

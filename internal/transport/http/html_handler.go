package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"custos/internal/charts"
	"custos/internal/config"
	apierrors "custos/internal/errors"
	"custos/internal/exporter"
	"custos/internal/middleware"
	"custos/internal/services"
	"custos/pkg/contracts/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageConfig holds what the pages need from the configuration
type PageConfig struct {
	MaxBytes      int64
	SessionTTL    time.Duration
	SecureCookies bool
	ChartTheme    string
}

// PageHandler serves the upload page, the dashboard and its chart page.
// The session id travels in the custos_session cookie.
type PageHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.Validator
	cfg          PageConfig
	formatter    *exporter.Formatter
	templates    *template.Template
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPageHandler parses the embedded templates and creates the handler
func NewPageHandler(service DashboardServiceInterface, validator *middleware.Validator, cfg PageConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) (*PageHandler, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if cfg.ChartTheme == "" {
		cfg.ChartTheme = charts.DefaultTheme
	}
	return &PageHandler{
		service:      service,
		validator:    validator,
		cfg:          cfg,
		formatter:    exporter.DefaultFormatter(),
		templates:    tmpl,
		logger:       logger.With(slog.String("component", "page_handler")),
		errorHandler: errorHandler,
	}, nil
}

// RegisterRoutes adds the page routes to r
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.With(middleware.MaxBodySize(h.cfg.MaxBytes+multipartOverhead)).Post("/upload", h.Upload)
	r.Get("/dashboard", h.Dashboard)
	r.Get("/dashboard/charts", h.Charts)
	r.Post("/session/close", h.CloseSession)
}

type indexPage struct {
	Error    string
	FileName string
	MaxMB    int64
}

type monthOption struct {
	Name     string
	Selected bool
}

type summaryView struct {
	domain.MonthSummary
	Sale           string
	Cost           string
	WeightedMargin string
}

type dashboardPage struct {
	FileName    string
	Options     []monthOption
	Error       string
	Summaries   []summaryView
	Skipped     []domain.SkippedMonth
	SeriesError string
	HasCharts   bool
	ChartsURL   template.URL
	SeriesCSV   template.URL
	MarginsCSV  template.URL
	SummaryXLSX template.URL
}

// Index handles GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	page := indexPage{MaxMB: h.cfg.MaxBytes >> 20}
	if sess, err := h.service.Session(r.Context(), h.sessionID(r)); err == nil {
		page.FileName = sess.FileName
	}
	h.render(w, r, http.StatusOK, "index", page)
}

// Upload handles POST /upload and redirects to the dashboard on success
func (h *PageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r, h.cfg.MaxBytes)
	if err == nil {
		var result services.UploadResult
		result, err = h.service.Upload(r.Context(), h.sessionID(r), name, data)
		if err == nil {
			h.setSessionCookie(w, result.SessionID)
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
	}

	status, message := h.describe(r, err)
	h.render(w, r, status, "index", indexPage{Error: message, MaxMB: h.cfg.MaxBytes >> 20})
}

// Dashboard handles GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Session(r.Context(), h.sessionID(r))
	if err != nil {
		h.clearSessionCookie(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	page := dashboardPage{FileName: sess.FileName}
	months, err := h.validator.ParseMonths(r)
	if err != nil {
		status, message := h.describe(r, err)
		page.Options = options(sess.Workbook.Names(), nil)
		page.Error = message
		h.render(w, r, status, "dashboard", page)
		return
	}

	view, err := h.service.Dashboard(r.Context(), sess.ID, months)
	if err != nil {
		status, message := h.describe(r, err)
		page.Options = options(sess.Workbook.Names(), months)
		page.Error = message
		h.render(w, r, status, "dashboard", page)
		return
	}

	page.Options = options(view.Sheets, view.Months)
	page.Summaries = h.summaryViews(view.Summaries)
	page.Skipped = view.Margins.Skipped
	page.SeriesError = view.SeriesError
	page.HasCharts = view.Series != nil || !view.Margins.Empty()

	query := monthsQuery(view.Months)
	base := "/api/workbooks/" + url.PathEscape(sess.ID) + "/export/"
	page.ChartsURL = template.URL("/dashboard/charts?" + query)
	page.SeriesCSV = template.URL(base + "series.csv?" + query)
	page.MarginsCSV = template.URL(base + "margins.csv?" + query)
	page.SummaryXLSX = template.URL(base + "summary.xlsx?" + query)

	h.render(w, r, http.StatusOK, "dashboard", page)
}

// Charts handles GET /dashboard/charts, the page embedded by the dashboard
func (h *PageHandler) Charts(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(r)
	months, err := h.validator.ParseMonths(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	theme, err := h.validator.ParseTheme(r, h.cfg.ChartTheme)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.Dashboard(r.Context(), id, months)
	if err != nil {
		h.errorHandler.HandleError(w, r, sessionError(id, err))
		return
	}

	var buf bytes.Buffer
	if err := charts.RenderDashboard(&buf, view.Series, view.Margins, theme); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// CloseSession handles POST /session/close
func (h *PageHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if id := h.sessionID(r); id != "" {
		if err := h.service.Close(r.Context(), id); err != nil && !errors.Is(err, services.ErrSessionNotFound) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) summaryViews(summaries []domain.MonthSummary) []summaryView {
	out := make([]summaryView, len(summaries))
	for i, s := range summaries {
		out[i] = summaryView{MonthSummary: s}
		if s.Aggregate != nil {
			out[i].Sale = h.formatter.Currency(s.Aggregate.TotalSale)
			out[i].Cost = h.formatter.Currency(s.Aggregate.TotalCost)
			out[i].WeightedMargin = h.formatter.Percent(s.Aggregate.TotalWeightedMargin)
		}
	}
	return out
}

// describe turns an error into the status and message shown on a page
func (h *PageHandler) describe(r *http.Request, err error) (int, string) {
	problem := h.errorHandler.ErrorToProblem(err, r)
	h.logger.WarnContext(r.Context(), "page request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", problem.Status),
		slog.String("error", err.Error()))
	return problem.Status, problem.Detail
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *PageHandler) sessionID(r *http.Request) string {
	c, err := r.Cookie(config.SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *PageHandler) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *PageHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func options(sheets, selected []string) []monthOption {
	chosen := make(map[string]bool, len(selected))
	for _, m := range selected {
		chosen[m] = true
	}
	out := make([]monthOption, len(sheets))
	for i, s := range sheets {
		out[i] = monthOption{Name: s, Selected: chosen[s]}
	}
	return out
}

// monthsQuery encodes the selection so that an empty one stays explicit
func monthsQuery(months []string) string {
	v := url.Values{}
	if len(months) == 0 {
		v.Set("months", "")
	}
	for _, m := range months {
		v.Add("months", m)
	}
	return v.Encode()
}

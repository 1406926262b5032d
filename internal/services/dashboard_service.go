package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custos/internal/config"
	"custos/internal/dataprocessing"
	"custos/internal/exporter"
	"custos/internal/infrastructure"
	"custos/pkg/contracts/domain"
)

// UploadValidator vets raw upload bytes before they are decoded
type UploadValidator interface {
	Validate(name string, data []byte) error
}

// UploadResult describes a freshly loaded workbook
type UploadResult struct {
	SessionID        string   `json:"session_id"`
	FileName         string   `json:"file_name"`
	Sheets           []string `json:"sheets"`
	DefaultSelection []string `json:"default_selection"`
	Replaced         bool     `json:"replaced"`
}

// DashboardView is everything the dashboard page shows for one selection.
// A failed series build does not hide the summaries or the margin chart.
type DashboardView struct {
	SessionID   string                    `json:"session_id"`
	FileName    string                    `json:"file_name"`
	Sheets      []string                  `json:"sheets"`
	Months      []string                  `json:"months"`
	Summaries   []domain.MonthSummary     `json:"summaries"`
	Series      *domain.ComparativeSeries `json:"series,omitempty"`
	SeriesError string                    `json:"series_error,omitempty"`
	Margins     domain.ProductMargins     `json:"product_margins"`

	// SeriesErr keeps the typed error behind SeriesError
	SeriesErr error `json:"-"`
}

// DashboardService runs the dashboard operations against the workbook of a session
type DashboardService struct {
	store     *SessionStore
	validator UploadValidator
	cfg       config.DashboardConfig
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewDashboardService creates the service. metrics may be nil.
func NewDashboardService(store *SessionStore, validator UploadValidator, cfg config.DashboardConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DashboardService {
	if cfg.DefaultMonthCount <= 0 {
		cfg.DefaultMonthCount = config.DefaultMonthCount
	}
	return &DashboardService{
		store:     store,
		validator: validator,
		cfg:       cfg,
		metrics:   metrics,
		tracer:    otel.Tracer(infrastructure.MeterName),
		logger:    infrastructure.WithComponent(logger, "dashboard_service"),
	}
}

// Upload validates and loads a workbook. A known sessionID has its workbook
// replaced; an empty or unknown one gets a new session.
func (s *DashboardService) Upload(ctx context.Context, sessionID, fileName string, data []byte) (res UploadResult, err error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.upload", trace.WithAttributes(
		attribute.String("file.name", fileName),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()
	defer s.observe(ctx, "upload", time.Now(), &err)

	wb, err := s.load(fileName, data)
	s.metrics.RecordUpload(ctx, int64(len(data)), sheetCount(wb), err)
	if err != nil {
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("file", fileName),
			slog.Int("size", len(data)),
			slog.String("error", err.Error()))
		return UploadResult{}, err
	}

	var sess Session
	replaced := false
	if sessionID != "" {
		var replaceErr error
		sess, replaceErr = s.store.Replace(ctx, sessionID, wb, fileName, int64(len(data)))
		replaced = replaceErr == nil
	}
	if !replaced {
		sess = s.store.Put(ctx, wb, fileName, int64(len(data)))
	}

	s.logger.InfoContext(ctx, "workbook loaded",
		slog.String("session_id", sess.ID),
		slog.String("file", fileName),
		slog.Int("size", len(data)),
		slog.Int("sheets", wb.Len()),
		slog.Bool("replaced", replaced))

	return UploadResult{
		SessionID:        sess.ID,
		FileName:         fileName,
		Sheets:           wb.Names(),
		DefaultSelection: s.DefaultSelection(wb),
		Replaced:         replaced,
	}, nil
}

// Session returns the stored session
func (s *DashboardService) Session(ctx context.Context, id string) (Session, error) {
	return s.store.Get(ctx, id)
}

// Sheets lists the month labels of the session workbook in file order
func (s *DashboardService) Sheets(ctx context.Context, id string) ([]string, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Workbook.Names(), nil
}

// DefaultSelection returns the first months of the workbook, as many as configured
func (s *DashboardService) DefaultSelection(wb *dataprocessing.Workbook) []string {
	names := wb.Names()
	if len(names) > s.cfg.DefaultMonthCount {
		names = names[:s.cfg.DefaultMonthCount]
	}
	return names
}

// Summaries returns the per-month textual view. nil months selects the default.
func (s *DashboardService) Summaries(ctx context.Context, id string, months []string) (out []domain.MonthSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.summaries")
	defer span.End()
	defer s.observe(ctx, "summaries", time.Now(), &err)

	wb, months, err := s.selection(ctx, id, months)
	if err != nil {
		return nil, err
	}
	return dataprocessing.Summarize(wb, months)
}

// Series builds the comparative series. Any month that cannot be aggregated fails the build.
func (s *DashboardService) Series(ctx context.Context, id string, months []string) (series domain.ComparativeSeries, err error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.series")
	defer span.End()
	defer s.observe(ctx, "series", time.Now(), &err)

	wb, months, err := s.selection(ctx, id, months)
	if err != nil {
		return domain.ComparativeSeries{}, err
	}
	return s.buildSeries(ctx, wb, months)
}

// ProductMargins merges the per-product margins; months without the product columns are reported, not fatal
func (s *DashboardService) ProductMargins(ctx context.Context, id string, months []string) (margins domain.ProductMargins, err error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.product_margins")
	defer span.End()
	defer s.observe(ctx, "product_margins", time.Now(), &err)

	wb, months, err := s.selection(ctx, id, months)
	if err != nil {
		return domain.ProductMargins{}, err
	}
	return s.buildMargins(ctx, wb, months)
}

// Dashboard computes every view of one selection. Only session and month
// name problems are returned as errors; a failed series build is carried in the view.
func (s *DashboardService) Dashboard(ctx context.Context, id string, months []string) (view DashboardView, err error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.view")
	defer span.End()
	defer s.observe(ctx, "dashboard", time.Now(), &err)

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return DashboardView{}, err
	}
	wb := sess.Workbook
	if months == nil {
		months = s.DefaultSelection(wb)
	}

	summaries, err := dataprocessing.Summarize(wb, months)
	if err != nil {
		return DashboardView{}, err
	}

	view = DashboardView{
		SessionID: sess.ID,
		FileName:  sess.FileName,
		Sheets:    wb.Names(),
		Months:    months,
		Summaries: summaries,
	}

	series, seriesErr := s.buildSeries(ctx, wb, months)
	if seriesErr != nil {
		view.SeriesErr = seriesErr
		view.SeriesError = seriesErr.Error()
	} else {
		view.Series = &series
	}

	view.Margins, err = s.buildMargins(ctx, wb, months)
	if err != nil {
		return DashboardView{}, err
	}
	return view, nil
}

// ExportSeriesCSV writes the comparative series as CSV
func (s *DashboardService) ExportSeriesCSV(ctx context.Context, id string, months []string, w io.Writer) error {
	series, err := s.Series(ctx, id, months)
	if err != nil {
		return err
	}
	if err := exporter.WriteSeriesCSV(w, series); err != nil {
		return fmt.Errorf("export series: %w", err)
	}
	return nil
}

// ExportMarginsCSV writes the merged margin table as CSV
func (s *DashboardService) ExportMarginsCSV(ctx context.Context, id string, months []string, w io.Writer) error {
	margins, err := s.ProductMargins(ctx, id, months)
	if err != nil {
		return err
	}
	if err := exporter.WriteMarginsCSV(w, margins); err != nil {
		return fmt.Errorf("export margins: %w", err)
	}
	return nil
}

// ExportWorkbook writes the summaries and margins of the selection as an xlsx file
func (s *DashboardService) ExportWorkbook(ctx context.Context, id string, months []string, w io.Writer) (err error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.export_workbook")
	defer span.End()
	defer s.observe(ctx, "export_workbook", time.Now(), &err)

	wb, months, err := s.selection(ctx, id, months)
	if err != nil {
		return err
	}
	summaries, err := dataprocessing.Summarize(wb, months)
	if err != nil {
		return err
	}
	margins, err := s.buildMargins(ctx, wb, months)
	if err != nil {
		return err
	}
	if err := exporter.WriteSummaryWorkbook(w, summaries, margins); err != nil {
		return fmt.Errorf("export workbook: %w", err)
	}
	return nil
}

// Close forgets the session
func (s *DashboardService) Close(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session closed", slog.String("session_id", id))
	return nil
}

func (s *DashboardService) load(fileName string, data []byte) (*dataprocessing.Workbook, error) {
	if s.validator != nil {
		if err := s.validator.Validate(fileName, data); err != nil {
			return nil, err
		}
	}
	return dataprocessing.Load(data)
}

// selection resolves the session and substitutes the default months for nil
func (s *DashboardService) selection(ctx context.Context, id string, months []string) (*dataprocessing.Workbook, []string, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if months == nil {
		months = s.DefaultSelection(sess.Workbook)
	}
	infrastructure.SetSpanAttributes(ctx,
		attribute.String("session.id", id),
		attribute.StringSlice("months", months),
	)
	return sess.Workbook, months, nil
}

func (s *DashboardService) buildSeries(ctx context.Context, wb *dataprocessing.Workbook, months []string) (domain.ComparativeSeries, error) {
	series, err := dataprocessing.BuildSeries(wb, months)
	s.metrics.RecordSeriesBuild(ctx, err)
	if err != nil {
		s.logger.WarnContext(ctx, "series build failed",
			slog.Any("months", months),
			slog.String("error", err.Error()))
	}
	return series, err
}

func (s *DashboardService) buildMargins(ctx context.Context, wb *dataprocessing.Workbook, months []string) (domain.ProductMargins, error) {
	margins, err := dataprocessing.BuildProductMargins(wb, months)
	if err != nil {
		return domain.ProductMargins{}, err
	}
	s.metrics.RecordSkippedMonths(ctx, len(margins.Skipped))
	for _, skipped := range margins.Skipped {
		s.logger.InfoContext(ctx, "month skipped in product margins",
			slog.String("month", skipped.Month),
			slog.String("reason", skipped.Reason))
	}
	return margins, nil
}

// observe records the duration of an operation and marks the span on failure
func (s *DashboardService) observe(ctx context.Context, operation string, start time.Time, errp *error) {
	err := *errp
	s.metrics.RecordOperation(ctx, operation, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
}

func sheetCount(wb *dataprocessing.Workbook) int {
	if wb == nil {
		return 0
	}
	return wb.Len()
}

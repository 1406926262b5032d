package http

import (
	"context"
	"io"

	"custos/internal/services"
	"custos/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handlers call
type DashboardServiceInterface interface {
	Upload(ctx context.Context, sessionID, fileName string, data []byte) (services.UploadResult, error)
	Session(ctx context.Context, id string) (services.Session, error)
	Sheets(ctx context.Context, id string) ([]string, error)
	Summaries(ctx context.Context, id string, months []string) ([]domain.MonthSummary, error)
	Series(ctx context.Context, id string, months []string) (domain.ComparativeSeries, error)
	ProductMargins(ctx context.Context, id string, months []string) (domain.ProductMargins, error)
	Dashboard(ctx context.Context, id string, months []string) (services.DashboardView, error)
	ExportSeriesCSV(ctx context.Context, id string, months []string, w io.Writer) error
	ExportMarginsCSV(ctx context.Context, id string, months []string, w io.Writer) error
	ExportWorkbook(ctx context.Context, id string, months []string, w io.Writer) error
	Close(ctx context.Context, id string) error
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)

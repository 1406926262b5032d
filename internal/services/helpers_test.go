package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"custos/internal/config"
	"custos/internal/dataprocessing"
	"custos/internal/infrastructure"
	"custos/internal/shared/testutil"
)

// MockUploadValidator is a mock for UploadValidator
type MockUploadValidator struct {
	mock.Mock
}

func (m *MockUploadValidator) Validate(name string, data []byte) error {
	args := m.Called(name, data)
	return args.Error(0)
}

// aprSheet can take part in the margin chart but not in the series
func aprSheet() testutil.SheetFixture {
	return testutil.SheetFixture{Name: "Abr", Rows: [][]any{
		{"PRODUTOS", "MARGEM", "MARGEM PONDERADA"},
		{"Arroz", 40, 25},
	}}
}

func loadWorkbook(t *testing.T, sheets ...testutil.SheetFixture) *dataprocessing.Workbook {
	t.Helper()
	wb, err := dataprocessing.Load(testutil.BuildWorkbook(t, sheets...))
	require.NoError(t, err)
	return wb
}

type testMetrics struct {
	reader  *sdkmetric.ManualReader
	metrics *infrastructure.BusinessMetrics
}

func newTestMetrics(t *testing.T) *testMetrics {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return &testMetrics{reader: reader, metrics: m}
}

// sum adds up every data point of an int64 counter or up-down counter
func (tm *testMetrics) sum(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tm.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func newTestService(t *testing.T, metrics *infrastructure.BusinessMetrics) (*DashboardService, *SessionStore) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	store := NewSessionStore(config.DefaultSessionTTL, 10, metrics, logger)
	svc := NewDashboardService(store, nil, config.DashboardConfig{DefaultMonthCount: 2}, metrics, logger)
	return svc, store
}

package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"custos/internal/config"
	"custos/internal/dataprocessing"
	"custos/internal/shared/testutil"
	"custos/pkg/contracts/domain"
)

func upload(t *testing.T, svc *DashboardService, sheets ...testutil.SheetFixture) UploadResult {
	t.Helper()
	res, err := svc.Upload(context.Background(), "", "vendas.xlsx", testutil.BuildWorkbook(t, sheets...))
	require.NoError(t, err)
	return res
}

func TestDashboardService_Upload(t *testing.T) {
	tm := newTestMetrics(t)
	svc, store := newTestService(t, tm.metrics)
	ctx := context.Background()

	res, err := svc.Upload(ctx, "", "vendas.xlsx", testutil.SalesWorkbook(t))
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "vendas.xlsx", res.FileName)
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, res.Sheets)
	assert.Equal(t, []string{"Jan", "Feb"}, res.DefaultSelection)
	assert.False(t, res.Replaced)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(1), tm.sum(t, "workbook_uploads_total"))

	again, err := svc.Upload(ctx, res.SessionID, "abril.xlsx", testutil.BuildWorkbook(t, aprSheet()))
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, again.SessionID)
	assert.True(t, again.Replaced)
	assert.Equal(t, []string{"Abr"}, again.DefaultSelection)
	assert.Equal(t, 1, store.Len())

	stale, err := svc.Upload(ctx, "expired-id", "vendas.xlsx", testutil.SalesWorkbook(t))
	require.NoError(t, err)
	assert.NotEqual(t, "expired-id", stale.SessionID)
	assert.False(t, stale.Replaced)
}

func TestDashboardService_UploadRejected(t *testing.T) {
	tm := newTestMetrics(t)
	svc, store := newTestService(t, tm.metrics)

	_, err := svc.Upload(context.Background(), "", "vendas.xlsx", []byte("not a workbook"))

	var malformed *dataprocessing.MalformedFileError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int64(1), tm.sum(t, "workbook_uploads_total"))
}

func TestDashboardService_UploadUsesValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	validator := new(MockUploadValidator)
	data := testutil.SalesWorkbook(t)
	validator.On("Validate", "vendas.csv", data).Return(&dataprocessing.MalformedFileError{Reason: "unsupported file extension"})

	svc := NewDashboardService(NewSessionStore(0, 0, nil, logger), validator, config.DashboardConfig{}, nil, logger)
	_, err := svc.Upload(context.Background(), "", "vendas.csv", data)

	var malformed *dataprocessing.MalformedFileError
	assert.ErrorAs(t, err, &malformed)
	validator.AssertExpectations(t)
}

func TestDashboardService_DefaultSelection(t *testing.T) {
	svc, _ := newTestService(t, nil)

	assert.Equal(t, []string{"Jan"}, svc.DefaultSelection(loadWorkbook(t, testutil.JanSheet())))
	assert.Equal(t, []string{"Jan", "Feb"}, svc.DefaultSelection(loadWorkbook(t, testutil.JanSheet(), testutil.FebSheet(), testutil.MarSheet())))
}

func TestDashboardService_Series(t *testing.T) {
	tm := newTestMetrics(t)
	svc, _ := newTestService(t, tm.metrics)
	res := upload(t, svc, testutil.JanSheet(), testutil.FebSheet(), testutil.MarSheet(), aprSheet())
	ctx := context.Background()

	series, err := svc.Series(ctx, res.SessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ComparativeSeries{
		Months:          []string{"Jan", "Feb"},
		Sales:           []float64{300, 150},
		Costs:           []float64{110, 70},
		WeightedMargins: []float64{70, 35},
	}, series)

	series, err = svc.Series(ctx, res.SessionID, []string{"Mar", "Jan"})
	require.NoError(t, err)
	assert.Equal(t, []float64{120, 300}, series.Sales)

	series, err = svc.Series(ctx, res.SessionID, []string{})
	require.NoError(t, err)
	assert.Equal(t, 0, series.Len())

	_, err = svc.Series(ctx, res.SessionID, []string{"Jan", "Abr"})
	var missing *dataprocessing.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Abr", missing.Sheet)
	assert.Equal(t, domain.ColumnSale, missing.Column)
	assert.Equal(t, int64(1), tm.sum(t, "series_build_errors_total"))

	_, err = svc.Series(ctx, res.SessionID, []string{"Dez"})
	var unknown *dataprocessing.UnknownSheetError
	assert.ErrorAs(t, err, &unknown)

	_, err = svc.Series(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDashboardService_ProductMargins(t *testing.T) {
	tm := newTestMetrics(t)
	svc, _ := newTestService(t, tm.metrics)
	res := upload(t, svc, testutil.JanSheet(), testutil.FebSheet(), testutil.MarSheet())

	margins, err := svc.ProductMargins(context.Background(), res.SessionID, []string{"Jan", "Mar", "Feb"})
	require.NoError(t, err)

	assert.Len(t, margins.Rows, 6)
	require.Len(t, margins.Skipped, 1)
	assert.Equal(t, "Mar", margins.Skipped[0].Month)
	assert.Equal(t, []string{domain.ColumnProduct, domain.ColumnMargin}, margins.Skipped[0].MissingColumns)
	assert.Equal(t, int64(1), tm.sum(t, "product_margin_months_skipped_total"))
}

func TestDashboardService_Summaries(t *testing.T) {
	svc, _ := newTestService(t, nil)
	res := upload(t, svc, testutil.JanSheet(), aprSheet())

	summaries, err := svc.Summaries(context.Background(), res.SessionID, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].OK())
	assert.False(t, summaries[1].OK())
	assert.Contains(t, summaries[1].Error, "VENDA")
}

func TestDashboardService_Dashboard(t *testing.T) {
	svc, _ := newTestService(t, nil)
	res := upload(t, svc, testutil.JanSheet(), aprSheet(), testutil.MarSheet())
	ctx := context.Background()

	view, err := svc.Dashboard(ctx, res.SessionID, []string{"Jan", "Abr", "Mar"})
	require.NoError(t, err)

	assert.Equal(t, res.SessionID, view.SessionID)
	assert.Equal(t, []string{"Jan", "Abr", "Mar"}, view.Months)
	assert.Len(t, view.Summaries, 3)
	assert.Nil(t, view.Series)
	assert.Contains(t, view.SeriesError, `"Abr"`)
	var missing *dataprocessing.MissingColumnError
	assert.ErrorAs(t, view.SeriesErr, &missing)
	assert.Len(t, view.Margins.Rows, 6)
	require.Len(t, view.Margins.Skipped, 1)
	assert.Equal(t, "Mar", view.Margins.Skipped[0].Month)

	view, err = svc.Dashboard(ctx, res.SessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jan", "Abr"}, view.Months)

	_, err = svc.Dashboard(ctx, res.SessionID, []string{"Jan", "Dez"})
	var unknown *dataprocessing.UnknownSheetError
	assert.ErrorAs(t, err, &unknown)
}

func TestDashboardService_Exports(t *testing.T) {
	svc, _ := newTestService(t, nil)
	res := upload(t, svc, testutil.JanSheet(), testutil.FebSheet(), testutil.MarSheet())
	ctx := context.Background()

	var seriesCSV bytes.Buffer
	require.NoError(t, svc.ExportSeriesCSV(ctx, res.SessionID, nil, &seriesCSV))
	assert.Contains(t, seriesCSV.String(), "Jan,300.00,110.00,70.00")

	var marginsCSV bytes.Buffer
	require.NoError(t, svc.ExportMarginsCSV(ctx, res.SessionID, []string{"Feb"}, &marginsCSV))
	assert.Contains(t, marginsCSV.String(), "Arroz,Feb,MARGEM,53.50")

	var xlsx bytes.Buffer
	require.NoError(t, svc.ExportWorkbook(ctx, res.SessionID, []string{"Jan", "Mar"}, &xlsx))
	f, err := excelize.OpenReader(&xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Avisos")

	assert.ErrorIs(t, svc.ExportSeriesCSV(ctx, "nope", nil, &seriesCSV), ErrSessionNotFound)
}

func TestDashboardService_Close(t *testing.T) {
	svc, store := newTestService(t, nil)
	res := upload(t, svc, testutil.JanSheet())
	ctx := context.Background()

	require.NoError(t, svc.Close(ctx, res.SessionID))
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, svc.Close(ctx, res.SessionID), ErrSessionNotFound)

	_, err := svc.Sheets(ctx, res.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

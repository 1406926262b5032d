package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"custos/internal/services"
	"custos/internal/shared/testutil"
	"custos/pkg/contracts/domain"
)

func TestDashboardHandler_Upload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(uploadRequest(t, "/api/workbooks", "vendas.xlsx", testutil.SalesWorkbook(t), nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res services.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "vendas.xlsx", res.FileName)
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, res.Sheets)
	assert.Equal(t, []string{"Jan", "Feb"}, res.DefaultSelection)
	assert.False(t, res.Replaced)
}

func TestDashboardHandler_UploadReplacesSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, testutil.SalesWorkbook(t))

	data := testutil.BuildWorkbook(t, testutil.FebSheet())
	rec := env.do(uploadRequest(t, "/api/workbooks", "fev.xlsx", data, map[string]string{"session_id": id}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, id, res.SessionID)
	assert.True(t, res.Replaced)
	assert.Equal(t, []string{"Feb"}, res.Sheets)
}

func TestDashboardHandler_UploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name: "wrong extension",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/workbooks", "vendas.csv", testutil.SalesWorkbook(t), nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "MALFORMED_FILE",
		},
		{
			name: "not a workbook",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/workbooks", "vendas.xlsx", []byte("PRODUTOS;VENDA\nArroz;10\n"), nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "MALFORMED_FILE",
		},
		{
			name: "missing file field",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/workbooks", "", nil, map[string]string{"other": "x"})
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name: "too large",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/workbooks", "vendas.xlsx", make([]byte, testMaxBytes+10), nil)
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
		},
		{
			name: "json body",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/workbooks", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(tt.request(t))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, problem(t, rec)["error_code"])
		})
	}
}

func TestDashboardHandler_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/workbooks/nope/sheets",
		"/api/workbooks/nope/series",
		"/api/workbooks/nope/export/series.csv",
	} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		body := problem(t, rec)
		assert.Equal(t, "SESSION_NOT_FOUND", body["error_code"])
		assert.Equal(t, map[string]interface{}{"session_id": "nope"}, body["details"])
	}
}

func TestDashboardHandler_Sheets(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, testutil.SalesWorkbook(t))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/sheets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID string   `json:"session_id"`
		Sheets    []string `json:"sheets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.SessionID)
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, body.Sheets)
}

func TestDashboardHandler_Series(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, testutil.SalesWorkbook(t))

	t.Run("default selection", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/series", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var series domain.ComparativeSeries
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
		assert.Equal(t, []string{"Jan", "Feb"}, series.Months)
		assert.Equal(t, []float64{300, 150}, series.Sales)
		assert.Equal(t, []float64{110, 70}, series.Costs)
		assert.Equal(t, []float64{70, 35}, series.WeightedMargins)
	})

	t.Run("selection order is kept", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/series?months=Mar&months=Jan", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var series domain.ComparativeSeries
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
		assert.Equal(t, []string{"Mar", "Jan"}, series.Months)
		assert.Equal(t, []float64{120, 300}, series.Sales)
	})

	t.Run("unknown month", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/series?months=Dez", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "UNKNOWN_SHEET", problem(t, rec)["error_code"])
	})

	t.Run("invalid selection", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet,
			"/api/workbooks/"+id+"/series?months="+strings.Repeat("x", 101), nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", problem(t, rec)["error_code"])
	})
}

func TestDashboardHandler_SeriesSheetNameWithComma(t *testing.T) {
	env := newTestEnv(t)
	jan, fev := testutil.JanSheet(), testutil.FebSheet()
	jan.Name, fev.Name = "Janeiro, 2024", "Fevereiro, 2024"
	id := env.upload(t, testutil.BuildWorkbook(t, jan, fev))

	rec := env.do(httptest.NewRequest(http.MethodGet,
		"/api/workbooks/"+id+"/series?months=Fevereiro%2C+2024&months=Janeiro%2C+2024", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var series domain.ComparativeSeries
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	assert.Equal(t, []string{"Fevereiro, 2024", "Janeiro, 2024"}, series.Months)
	assert.Equal(t, []float64{150, 300}, series.Sales)
}

func TestDashboardHandler_SeriesMissingColumn(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, testutil.BuildWorkbook(t, testutil.JanSheet(), abrSheet()))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/series", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := problem(t, rec)
	assert.Equal(t, "MISSING_COLUMN", body["error_code"])
	assert.Equal(t, map[string]interface{}{"sheet": "Abr", "column": "VENDA"}, body["details"])
}

func TestDashboardHandler_SummaryAndMargins(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, testutil.BuildWorkbook(t, testutil.JanSheet(), abrSheet(), testutil.MarSheet()))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/summary?months=Jan&months=Abr", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary struct {
		Summaries []domain.MonthSummary `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Len(t, summary.Summaries, 2)
	assert.True(t, summary.Summaries[0].OK())
	assert.Equal(t, 300.0, summary.Summaries[0].Aggregate.TotalSale)
	assert.False(t, summary.Summaries[1].OK())
	assert.Contains(t, summary.Summaries[1].Error, "VENDA")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/product-margins?months=Jan&months=Mar&months=Abr", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var margins domain.ProductMargins
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &margins))
	assert.Len(t, margins.Rows, 6)
	require.Len(t, margins.Skipped, 1)
	assert.Equal(t, "Mar", margins.Skipped[0].Month)
	assert.Equal(t, []string{"PRODUTOS", "MARGEM"}, margins.Skipped[0].MissingColumns)
}

func TestDashboardHandler_Exports(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, testutil.SalesWorkbook(t))

	t.Run("series csv", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/export/series.csv", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "custos-series.csv")
		assert.Contains(t, rec.Body.String(), "Jan,300.00,110.00,70.00")
		assert.Contains(t, rec.Body.String(), "Feb,150.00,70.00,35.00")
	})

	t.Run("margins csv", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/export/margins.csv?months=Feb", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "Arroz,Feb,MARGEM,53.50")
		assert.Contains(t, rec.Body.String(), "Arroz,Feb,MARGEM PONDERADA,35.00")
	})

	t.Run("unknown csv kind", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/export/products.csv", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", problem(t, rec)["error_code"])
	})

	t.Run("summary xlsx", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/export/summary.xlsx", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))

		f, err := excelize.OpenReader(rec.Body)
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "Resumo")
	})
}

func TestDashboardHandler_DeleteSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, testutil.SalesWorkbook(t))

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/api/workbooks/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/workbooks/"+id+"/sheets", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/workbooks/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

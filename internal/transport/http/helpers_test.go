package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"custos/internal/config"
	apierrors "custos/internal/errors"
	"custos/internal/middleware"
	"custos/internal/services"
	"custos/internal/shared/testutil"
	"custos/internal/validation"
)

const testMaxBytes = 1 << 20

type testEnv struct {
	router  *chi.Mux
	service *services.DashboardService
	logs    *testutil.BufferedSlogHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)

	store := services.NewSessionStore(time.Hour, 10, nil, logger)
	uploads := validation.NewUploadValidator(testMaxBytes, config.AllowedUploadExtensions, logger)
	service := services.NewDashboardService(store, uploads, config.DashboardConfig{
		DefaultMonthCount: 2,
		ChartTheme:        "chalk",
	}, nil, logger)

	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidator(logger)

	pages, err := NewPageHandler(service, validator, PageConfig{
		MaxBytes:   testMaxBytes,
		SessionTTL: time.Hour,
	}, logger, errorHandler)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api/workbooks", NewDashboardHandler(service, validator, testMaxBytes, logger, errorHandler).Routes())
	pages.RegisterRoutes(r)

	return &testEnv{router: r, service: service, logs: logs}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// upload posts a workbook through the API and returns the new session id
func (e *testEnv) upload(t *testing.T, data []byte) string {
	t.Helper()
	rec := e.do(uploadRequest(t, "/api/workbooks", "vendas.xlsx", data, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res services.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.SessionID
}

func uploadRequest(t *testing.T, target, name string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		part, err := mw.CreateFormFile(uploadField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// problem decodes an RFC 7807 body
func problem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// abrSheet feeds the margin chart but lacks the series columns
func abrSheet() testutil.SheetFixture {
	return testutil.SheetFixture{Name: "Abr", Rows: [][]any{
		{"PRODUTOS", "MARGEM", "MARGEM PONDERADA"},
		{"Arroz", 40, 25},
	}}
}

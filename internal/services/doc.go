// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP handlers and the dataprocessing core so that
// session handling, metrics and tracing stay out of both.
//
// # Services
//
//   - SessionStore: in-memory, TTL-bounded slots holding one loaded Workbook each
//   - DashboardService: upload, month selection, summaries, series, product
//     margins and the CSV/XLSX exports of one session
//   - HealthService: liveness, readiness and version information
//
// # Common Service Pattern
//
// Dependencies are injected through the constructor and every operation
// takes a context for cancellation and tracing:
//
//	svc := NewDashboardService(store, uploads, cfg.Dashboard, metrics, logger)
//	res, err := svc.Upload(ctx, "", "vendas.xlsx", data)
//	series, err := svc.Series(ctx, res.SessionID, []string{"Jan", "Fev"})
//
// # Error Handling
//
// Domain errors from dataprocessing (MalformedFileError, MissingColumnError,
// ColumnTypeError, UnknownSheetError) pass through wrapped with %w.
// ErrSessionNotFound reports an unknown or expired session.
//
// # Testing
//
// Services run against real in-memory workbooks built with
// internal/shared/testutil; the clock of SessionStore is injectable.
package services

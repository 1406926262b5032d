// Package shared holds helpers used across the custos packages.
//
// The testutil subpackage builds xlsx workbooks in memory for tests
// (testutil.SalesWorkbook, testutil.BuildWorkbook) and captures slog output
// with a buffered handler so tests can assert on log records.
package shared

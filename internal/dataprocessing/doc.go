// Package dataprocessing turns an uploaded sales workbook into the figures the dashboard shows.
//
// A workbook holds one sheet per month. Each sheet is loaded into a typed table whose
// schema is fixed at load time: a column is numeric when every non-empty cell parses as
// a number, text otherwise. Accessors on the table fail with a MissingColumnError or a
// ColumnTypeError instead of failing deep inside a computation.
//
// # Operations
//
//   - Load / LoadReader decode xlsx bytes into a Workbook (MalformedFileError on bad input)
//   - Aggregate totals VENDA, CUSTO MERCADORIA and MARGEM PONDERADA of one sheet
//   - BuildSeries aggregates the selected months into index-aligned series (fail-fast)
//   - BuildProductMargins merges PRODUTOS/MARGEM/MARGEM PONDERADA of the selected months
//     into a long-form table, skipping months without those columns (fail-soft)
//   - Summarize produces the per-month textual view, isolating per-month failures
//
// Empty cells are excluded from sums; a column with no values sums to zero.
// Sums are accumulated as decimals so currency totals do not drift.
//
// All functions are pure: the same workbook and selection always yield the same result,
// and nothing is cached between calls.
package dataprocessing

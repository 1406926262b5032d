// Package exporter writes dashboard results out of the process.
//
// CSV exports carry a UTF-8 BOM so Excel opens accented product names
// correctly. The XLSX summary holds one sheet per view (monthly totals,
// product margins and, when months were skipped, the warnings). Formatter
// renders values for people: currency as "R$ 1,234.56" and percentages with
// two decimals, in the locale it was built with.
//
// Example usage:
//
//	err := exporter.WriteSeriesCSV(w, series)
//
//	err = exporter.WriteSummaryWorkbook(w, summaries, margins)
//
//	f := exporter.DefaultFormatter()
//	f.Currency(1234.5) // "R$ 1,234.50"
package exporter

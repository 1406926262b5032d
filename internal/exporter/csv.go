package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"custos/pkg/contracts/domain"
)

// utf8BOM lets Excel detect the encoding of a CSV file
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// WriteCSV writes headers and records to w
func WriteCSV(w io.Writer, options WriteOptions) error {
	sw, err := NewStreamWriter(w, options.Headers, options.BOMPrefix)
	if err != nil {
		return err
	}
	for i, record := range options.Records {
		if err := sw.WriteRecord(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return sw.Flush()
}

// StreamWriter writes CSV records one at a time
type StreamWriter struct {
	writer *csv.Writer
}

// NewStreamWriter writes the optional BOM and the header line
func NewStreamWriter(w io.Writer, headers []string, bom bool) (*StreamWriter, error) {
	if bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Flush pushes buffered records to the underlying writer
func (s *StreamWriter) Flush() error {
	s.writer.Flush()
	return s.writer.Error()
}

// SeriesHeaders names the columns of the comparative series export
var SeriesHeaders = []string{"MES", domain.ColumnSale, domain.ColumnMerchandise, domain.ColumnWeightedMargin}

// MarginHeaders names the columns of the product margin export
var MarginHeaders = []string{domain.ColumnProduct, "MES", "TIPO MARGEM", "VALOR"}

// SummaryRecords lays the summaries out one month per line. A month that could
// not be aggregated has empty totals and its error in the last column.
func SummaryRecords(summaries []domain.MonthSummary) [][]string {
	records := make([][]string, len(summaries))
	for i, s := range summaries {
		if !s.OK() {
			records[i] = []string{s.Month, "", "", "", s.Error}
			continue
		}
		records[i] = []string{
			s.Month,
			formatFloat(s.Aggregate.TotalSale),
			formatFloat(s.Aggregate.TotalCost),
			formatFloat(s.Aggregate.TotalWeightedMargin),
			"",
		}
	}
	return records
}

// SeriesRecords lays the series out one month per line
func SeriesRecords(series domain.ComparativeSeries) [][]string {
	records := make([][]string, series.Len())
	for i := range records {
		records[i] = []string{
			series.Months[i],
			formatFloat(series.Sales[i]),
			formatFloat(series.Costs[i]),
			formatFloat(series.WeightedMargins[i]),
		}
	}
	return records
}

// MarginRecords lays the margin table out in its long form. Empty cells stay empty.
func MarginRecords(margins domain.ProductMargins) [][]string {
	records := make([][]string, len(margins.Rows))
	for i, row := range margins.Rows {
		value := ""
		if row.Value != nil {
			value = formatFloat(*row.Value)
		}
		records[i] = []string{row.Product, row.Month, string(row.Kind), value}
	}
	return records
}

// WriteSeriesCSV exports the comparative series
func WriteSeriesCSV(w io.Writer, series domain.ComparativeSeries) error {
	return WriteCSV(w, WriteOptions{
		Headers:   SeriesHeaders,
		Records:   SeriesRecords(series),
		BOMPrefix: true,
	})
}

// WriteSummaryCSV exports the per-month summaries
func WriteSummaryCSV(w io.Writer, summaries []domain.MonthSummary) error {
	return WriteCSV(w, WriteOptions{
		Headers:   SummaryHeaders,
		Records:   SummaryRecords(summaries),
		BOMPrefix: true,
	})
}

// WriteMarginsCSV exports the merged product margin table
func WriteMarginsCSV(w io.Writer, margins domain.ProductMargins) error {
	return WriteCSV(w, WriteOptions{
		Headers:   MarginHeaders,
		Records:   MarginRecords(margins),
		BOMPrefix: true,
	})
}

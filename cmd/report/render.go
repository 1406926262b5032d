package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"custos/internal/exporter"
	"custos/internal/files"
	"custos/pkg/contracts/domain"
)

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printWorkbooks(w io.Writer, format string, found []files.FileInfo) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, found)
	case formatCSV:
		records := make([][]string, len(found))
		for i, f := range found {
			records[i] = []string{f.Path, strconv.FormatInt(f.Size, 10), f.ModTime.Format(time.RFC3339)}
		}
		return exporter.WriteCSV(w, exporter.WriteOptions{Headers: []string{"ARQUIVO", "BYTES", "MODIFICADO"}, Records: records})
	}

	tw := newTable(w)
	for _, f := range found {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Path, humanize.Bytes(uint64(f.Size)), f.ModTime.Format(time.DateTime))
	}
	return tw.Flush()
}

func printSheets(w io.Writer, format string, r *report) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, struct {
			FileName string   `json:"file_name"`
			Sheets   []string `json:"sheets"`
		}{r.fileName, r.sheets})
	case formatCSV:
		records := make([][]string, len(r.sheets))
		for i, name := range r.sheets {
			records[i] = []string{name}
		}
		return exporter.WriteCSV(w, exporter.WriteOptions{Headers: []string{"MES"}, Records: records})
	default:
		for _, name := range r.sheets {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
		}
		return nil
	}
}

func printSummaries(w io.Writer, format string, summaries []domain.MonthSummary, showRows bool) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, summaries)
	case formatCSV:
		return exporter.WriteSummaryCSV(w, summaries)
	}

	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "Nenhum mês selecionado.")
		return err
	}

	f := exporter.DefaultFormatter()
	for i, s := range summaries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Dados para o mês: %s\n", s.Month)
		if s.OK() {
			fmt.Fprintf(w, "  Total de Vendas: %s\n", f.Currency(s.Aggregate.TotalSale))
			fmt.Fprintf(w, "  Custo Total da Mercadoria Vendida: %s\n", f.Currency(s.Aggregate.TotalCost))
			fmt.Fprintf(w, "  Margem Ponderada Total: %s\n", f.Percent(s.Aggregate.TotalWeightedMargin))
		} else {
			fmt.Fprintf(w, "  Erro: %s\n", s.Error)
		}
		if showRows && len(s.Columns) > 0 {
			fmt.Fprintln(w)
			tw := newTable(w)
			fmt.Fprintln(tw, strings.Join(s.Columns, "\t"))
			for _, row := range s.Rows {
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func printSeries(w io.Writer, format string, series domain.ComparativeSeries) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, series)
	case formatCSV:
		return exporter.WriteSeriesCSV(w, series)
	}

	f := exporter.DefaultFormatter()
	tw := newTable(w)
	fmt.Fprintln(tw, strings.Join(exporter.SeriesHeaders, "\t"))
	for i, month := range series.Months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			month,
			f.Currency(series.Sales[i]),
			f.Currency(series.Costs[i]),
			f.Percent(series.WeightedMargins[i]))
	}
	return tw.Flush()
}

func printMargins(w io.Writer, format string, margins domain.ProductMargins) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, margins)
	case formatCSV:
		return exporter.WriteMarginsCSV(w, margins)
	}

	if margins.Empty() {
		_, err := fmt.Fprintln(w, "Nenhum dado para exibir nos gráficos.")
		return err
	}

	f := exporter.DefaultFormatter()
	tw := newTable(w)
	fmt.Fprintln(tw, strings.Join(exporter.MarginHeaders, "\t"))
	for _, row := range margins.Rows {
		value := ""
		if row.Value != nil {
			value = f.Number(*row.Value)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Product, row.Month, row.Kind, value)
	}
	return tw.Flush()
}

// printSkipped warns about every month left out of the product margins
func printSkipped(w io.Writer, skipped []domain.SkippedMonth) {
	for _, s := range skipped {
		fmt.Fprintf(w, "As colunas necessárias não foram encontradas na planilha '%s'. As colunas disponíveis são: %s\n",
			s.Month, strings.Join(s.AvailableColumns, ", "))
	}
}

package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"custos/pkg/contracts/domain"
)

// Sheet names of the summary workbook
const (
	SummarySheet  = "Resumo"
	MarginsSheet  = "Margens"
	WarningsSheet = "Avisos"
)

// SummaryHeaders names the columns of the Resumo sheet and of the summary CSV
var SummaryHeaders = []string{"MES", domain.ColumnSale, domain.ColumnMerchandise, domain.ColumnWeightedMargin, "ERRO"}

// WarningHeaders names the columns of the Avisos sheet
var WarningHeaders = []string{"MES", "MOTIVO", "COLUNAS DISPONIVEIS"}

// excelize built-in number format "#,##0.00"
const moneyNumFmt = 4

// WriteSummaryWorkbook writes the monthly summaries and the margin table as an xlsx file.
// Months whose totals could not be computed keep their row with the error text.
func WriteSummaryWorkbook(w io.Writer, summaries []domain.MonthSummary, margins domain.ProductMargins) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	summaryRows := make([][]interface{}, len(summaries))
	for i, s := range summaries {
		if s.Aggregate != nil {
			summaryRows[i] = []interface{}{s.Month, s.Aggregate.TotalSale, s.Aggregate.TotalCost, s.Aggregate.TotalWeightedMargin, ""}
		} else {
			summaryRows[i] = []interface{}{s.Month, nil, nil, nil, s.Error}
		}
	}
	if err := writeTable(f, SummarySheet, SummaryHeaders, summaryRows, header); err != nil {
		return err
	}
	if len(summaries) > 0 {
		if err := f.SetCellStyle(SummarySheet, "B2", fmt.Sprintf("D%d", len(summaries)+1), money); err != nil {
			return fmt.Errorf("style %s: %w", SummarySheet, err)
		}
	}

	if _, err := f.NewSheet(MarginsSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", MarginsSheet, err)
	}
	marginRows := make([][]interface{}, len(margins.Rows))
	for i, row := range margins.Rows {
		var value interface{}
		if row.Value != nil {
			value = *row.Value
		}
		marginRows[i] = []interface{}{row.Product, row.Month, string(row.Kind), value}
	}
	if err := writeTable(f, MarginsSheet, MarginHeaders, marginRows, header); err != nil {
		return err
	}

	if len(margins.Skipped) > 0 {
		if _, err := f.NewSheet(WarningsSheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", WarningsSheet, err)
		}
		warningRows := make([][]interface{}, len(margins.Skipped))
		for i, s := range margins.Skipped {
			warningRows[i] = []interface{}{s.Month, s.Reason, strings.Join(s.AvailableColumns, ", ")}
		}
		if err := writeTable(f, WarningsSheet, WarningHeaders, warningRows, header); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writeTable writes a bold header line and the rows below it. Nil values leave the cell blank.
func writeTable(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	head := make([]interface{}, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
			}
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 20)
}

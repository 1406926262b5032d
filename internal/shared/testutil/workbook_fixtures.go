package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SheetFixture is one sheet of a generated workbook. Rows[0] is the header row.
// A nil cell is left unset.
type SheetFixture struct {
	Name string
	Rows [][]any
}

// ErrorCell is a cell holding a cached formula error such as "#DIV/0!".
// It is written with the error cell type, the way Excel saves it.
type ErrorCell string

// BuildWorkbook renders the sheets, in order, into xlsx bytes
func BuildWorkbook(t testing.TB, sheets ...SheetFixture) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	hasErrors := false
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				t.Fatalf("rename sheet %q: %v", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("create sheet %q: %v", sheet.Name, err)
		}

		for r, row := range sheet.Rows {
			for c, value := range row {
				if value == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				if e, ok := value.(ErrorCell); ok {
					hasErrors = true
					if err := f.SetCellDefault(sheet.Name, cell, string(e)); err != nil {
						t.Fatalf("set %s!%s: %v", sheet.Name, cell, err)
					}
					continue
				}
				if err := f.SetCellValue(sheet.Name, cell, value); err != nil {
					t.Fatalf("set %s!%s: %v", sheet.Name, cell, err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	if !hasErrors {
		return buf.Bytes()
	}
	return markErrorCells(t, buf.Bytes())
}

var inlineErrorCell = regexp.MustCompile(`<c r="([A-Z]+[0-9]+)"([^>]*?) t="inlineStr"[^>]*><is><t[^>]*>(#[^<]*)</t></is></c>`)

// markErrorCells retypes the inline "#..." strings written for ErrorCell
// values as t="e" cells.
func markErrorCells(t testing.TB, data []byte) []byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			t.Fatalf("open %s: %v", entry.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name, err)
		}
		if strings.HasPrefix(entry.Name, "xl/worksheets/") {
			body = inlineErrorCell.ReplaceAll(body, []byte(`<c r="$1"$2 t="e"><v>$3</v></c>`))
		}
		w, err := zw.Create(entry.Name)
		if err != nil {
			t.Fatalf("create %s: %v", entry.Name, err)
		}
		if _, err := w.Write(body); err != nil {
			t.Fatalf("write %s: %v", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close workbook: %v", err)
	}
	return out.Bytes()
}

// SalesHeader is the full monthly sheet header
var SalesHeader = []any{"PRODUTOS", "VENDA", "CUSTO MERCADORIA", "MARGEM", "MARGEM PONDERADA"}

// JanSheet has two products: VENDA 100+200, CUSTO MERCADORIA 50+60, MARGEM PONDERADA 30+40
func JanSheet() SheetFixture {
	return SheetFixture{Name: "Jan", Rows: [][]any{
		SalesHeader,
		{"Arroz", 100, 50, 50, 30},
		{"Feijao", 200, 60, 70, 40},
	}}
}

// FebSheet has a single product: VENDA 150, CUSTO MERCADORIA 70, MARGEM PONDERADA 35
func FebSheet() SheetFixture {
	return SheetFixture{Name: "Feb", Rows: [][]any{
		SalesHeader,
		{"Arroz", 150, 70, 53.5, 35},
	}}
}

// MarSheet can be aggregated but has neither PRODUTOS nor MARGEM
func MarSheet() SheetFixture {
	return SheetFixture{Name: "Mar", Rows: [][]any{
		{"VENDA", "CUSTO MERCADORIA", "MARGEM PONDERADA"},
		{120, 80, 20},
	}}
}

// SalesWorkbook returns Jan, Feb and Mar as xlsx bytes
func SalesWorkbook(t testing.TB) []byte {
	t.Helper()
	return BuildWorkbook(t, JanSheet(), FebSheet(), MarSheet())
}

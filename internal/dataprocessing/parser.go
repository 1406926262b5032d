package dataprocessing

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load decodes an uploaded spreadsheet into a Workbook, keeping sheet and column order.
func Load(data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, &MalformedFileError{Reason: "empty file"}
	}
	return LoadReader(bytes.NewReader(data))
}

// LoadReader is Load for a stream.
func LoadReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &MalformedFileError{Reason: "cannot open workbook", Err: err}
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, &MalformedFileError{Reason: "workbook has no sheets"}
	}

	wb := &Workbook{
		sheets: make([]*Sheet, 0, len(names)),
		byName: make(map[string]*Sheet, len(names)),
	}
	for _, name := range names {
		sheet, err := readSheet(f, name)
		if err != nil {
			return nil, &MalformedFileError{Reason: fmt.Sprintf("cannot read sheet %q", name), Err: err}
		}
		wb.sheets = append(wb.sheets, sheet)
		wb.byName[name] = sheet
	}
	return wb, nil
}

// readSheet takes the first row as header and every following non-blank row as data
func readSheet(f *excelize.File, name string) (*Sheet, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	headerIdx := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return newSheet(name, nil, nil, nil), nil
	}

	header := trimTrailingBlanks(rows[headerIdx])
	records := make([][]string, 0, len(rows)-headerIdx-1)
	rowNumbers := make([]int, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) > len(header) {
			// Values beyond the header get positional column names.
			for len(header) < len(row) {
				header = append(header, "")
			}
		}
		if blankRow(row) {
			continue
		}
		records = append(records, row)
		rowNumbers = append(rowNumbers, i+1)
	}
	return newSheet(name, header, records, rowNumbers), nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlanks(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	out := make([]string, end)
	copy(out, row[:end])
	return out
}

package dataprocessing

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ColumnKind is the type a column settled on at load time
type ColumnKind int

const (
	ColumnNumber ColumnKind = iota
	ColumnText
)

func (k ColumnKind) String() string {
	if k == ColumnText {
		return "text"
	}
	return "number"
}

// Column is one entry of a sheet schema
type Column struct {
	Name string
	Kind ColumnKind
}

// CellKind distinguishes empty, numeric and text cells
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is a single typed value of a row
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// String renders the cell for display. Empty cells render as "".
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Sheet is a typed table: a schema fixed at load time and the rows under it
type Sheet struct {
	name    string
	columns []Column
	index   map[string]int
	rows    [][]Cell
	// rowNumbers maps a data row to its 1-based spreadsheet row
	rowNumbers []int
}

// Name returns the sheet (month) label
func (s *Sheet) Name() string {
	return s.name
}

// Columns returns the schema in sheet order
func (s *Sheet) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// ColumnNames returns the header names in sheet order
func (s *Sheet) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the schema contains name
func (s *Sheet) HasColumn(name string) bool {
	_, ok := s.index[name]
	return ok
}

// MissingColumns returns the names not present in the schema, preserving argument order
func (s *Sheet) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !s.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Len returns the number of data rows
func (s *Sheet) Len() int {
	return len(s.rows)
}

// Row returns the cells of data row i, one per column
func (s *Sheet) Row(i int) []Cell {
	return s.rows[i]
}

// Records renders all rows as text, one string per column
func (s *Sheet) Records() [][]string {
	out := make([][]string, len(s.rows))
	for i, row := range s.rows {
		rec := make([]string, len(row))
		for j, c := range row {
			rec[j] = c.String()
		}
		out[i] = rec
	}
	return out
}

// NumericColumn is a typed view of a numeric column. Valid[i] is false for empty cells.
type NumericColumn struct {
	Name   string
	Values []float64
	Valid  []bool
}

// Sum adds every present value. Empty cells are excluded, so an all-empty column sums to zero.
func (c NumericColumn) Sum() decimal.Decimal {
	total := decimal.Zero
	for i, v := range c.Values {
		if !c.Valid[i] {
			continue
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}

// Numbers returns the named column as numbers
func (s *Sheet) Numbers(name string) (NumericColumn, error) {
	idx, ok := s.index[name]
	if !ok {
		return NumericColumn{}, &MissingColumnError{Sheet: s.name, Column: name}
	}
	if s.columns[idx].Kind != ColumnNumber {
		row, value := s.firstText(idx)
		return NumericColumn{}, &ColumnTypeError{Sheet: s.name, Column: name, Row: row, Value: value}
	}

	col := NumericColumn{
		Name:   name,
		Values: make([]float64, len(s.rows)),
		Valid:  make([]bool, len(s.rows)),
	}
	for i, row := range s.rows {
		if row[idx].Kind == CellNumber {
			col.Values[i] = row[idx].Number
			col.Valid[i] = true
		}
	}
	return col, nil
}

// Texts returns the named column rendered as text, whatever its kind
func (s *Sheet) Texts(name string) ([]string, error) {
	idx, ok := s.index[name]
	if !ok {
		return nil, &MissingColumnError{Sheet: s.name, Column: name}
	}
	out := make([]string, len(s.rows))
	for i, row := range s.rows {
		out[i] = row[idx].String()
	}
	return out, nil
}

func (s *Sheet) firstText(idx int) (int, string) {
	for i, row := range s.rows {
		if row[idx].Kind == CellText {
			return s.rowNumbers[i], row[idx].Text
		}
	}
	return 0, ""
}

// Workbook is the ordered set of sheets of one upload
type Workbook struct {
	sheets []*Sheet
	byName map[string]*Sheet
}

// Names returns the sheet names in file order
func (w *Workbook) Names() []string {
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.name
	}
	return names
}

// Len returns the number of sheets
func (w *Workbook) Len() int {
	return len(w.sheets)
}

// Sheets returns the sheets in file order
func (w *Workbook) Sheets() []*Sheet {
	out := make([]*Sheet, len(w.sheets))
	copy(out, w.sheets)
	return out
}

// Sheet looks a sheet up by name
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	s, ok := w.byName[name]
	if !ok {
		return nil, &UnknownSheetError{Name: name}
	}
	return s, nil
}

// resolve maps every month to its sheet, failing on the first unknown name
func (w *Workbook) resolve(months []string) ([]*Sheet, error) {
	sheets := make([]*Sheet, len(months))
	for i, m := range months {
		s, err := w.Sheet(m)
		if err != nil {
			return nil, err
		}
		sheets[i] = s
	}
	return sheets, nil
}

// newSheet builds a typed sheet from a header and raw string records.
// rowNumbers gives the spreadsheet row of every record.
func newSheet(name string, header []string, records [][]string, rowNumbers []int) *Sheet {
	s := &Sheet{
		name:       name,
		columns:    make([]Column, len(header)),
		index:      make(map[string]int, len(header)),
		rows:       make([][]Cell, len(records)),
		rowNumbers: rowNumbers,
	}

	for i, h := range normalizeHeader(header) {
		s.columns[i] = Column{Name: h, Kind: ColumnNumber}
		s.index[h] = i
	}

	for r, rec := range records {
		row := make([]Cell, len(header))
		for c := range header {
			if c < len(rec) {
				row[c] = parseCell(rec[c])
			}
			if row[c].Kind == CellText {
				s.columns[c].Kind = ColumnText
			}
		}
		s.rows[r] = row
	}
	return s
}

// normalizeHeader trims names, fills blanks and suffixes duplicates with .1, .2, ...
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			candidate := name + "." + strconv.Itoa(n)
			for taken[candidate] {
				n++
				candidate = name + "." + strconv.Itoa(n)
			}
			seen[name] = n + 1
			name = candidate
		} else {
			seen[name] = 1
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// excelErrors are the values Excel caches for formulas that failed to evaluate.
// They read as missing, like blank cells.
var excelErrors = map[string]bool{
	"#NULL!":        true,
	"#DIV/0!":       true,
	"#VALUE!":       true,
	"#REF!":         true,
	"#NAME?":        true,
	"#NUM!":         true,
	"#N/A":          true,
	"#GETTING_DATA": true,
	"#SPILL!":       true,
	"#CALC!":        true,
}

func parseCell(raw string) Cell {
	v := strings.TrimSpace(raw)
	if v == "" || excelErrors[v] {
		return Cell{Kind: CellEmpty}
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(f) {
			return Cell{Kind: CellEmpty}
		}
		if !math.IsInf(f, 0) {
			return Cell{Kind: CellNumber, Number: f}
		}
	}
	return Cell{Kind: CellText, Text: raw}
}

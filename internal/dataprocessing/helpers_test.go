package dataprocessing

// sheetOf builds a sheet as if row i of records sat on spreadsheet row i+2
func sheetOf(name string, header []string, records ...[]string) *Sheet {
	rowNumbers := make([]int, len(records))
	for i := range records {
		rowNumbers[i] = i + 2
	}
	return newSheet(name, header, records, rowNumbers)
}

func workbookOf(sheets ...*Sheet) *Workbook {
	wb := &Workbook{byName: make(map[string]*Sheet, len(sheets))}
	for _, s := range sheets {
		wb.sheets = append(wb.sheets, s)
		wb.byName[s.Name()] = s
	}
	return wb
}

package dataprocessing

import (
	"strings"

	"custos/pkg/contracts/domain"
)

// BuildProductMargins merges the per-product margins of the selected months into one
// long-form table. A month without the product columns is skipped with a diagnostic
// and the remaining months are still merged. Only an unknown month name is an error.
func BuildProductMargins(wb *Workbook, months []string) (domain.ProductMargins, error) {
	sheets, err := wb.resolve(months)
	if err != nil {
		return domain.ProductMargins{}, err
	}

	size := 0
	for _, sheet := range sheets {
		size += sheet.Len() * len(domain.MarginKinds)
	}

	result := domain.ProductMargins{
		Rows:    make([]domain.ProductMarginRow, 0, size),
		Skipped: make([]domain.SkippedMonth, 0),
	}
	for _, sheet := range sheets {
		if skipped, ok := appendMonthMargins(&result.Rows, sheet); !ok {
			result.Skipped = append(result.Skipped, skipped)
		}
	}
	return result, nil
}

// appendMonthMargins emits two rows per source row, plain margin first.
// rows is left untouched when the month cannot contribute.
func appendMonthMargins(rows *[]domain.ProductMarginRow, sheet *Sheet) (domain.SkippedMonth, bool) {
	if missing := sheet.MissingColumns(domain.ProductColumns...); len(missing) > 0 {
		return domain.SkippedMonth{
			Month:            sheet.Name(),
			AvailableColumns: sheet.ColumnNames(),
			MissingColumns:   missing,
			Reason:           "missing columns: " + strings.Join(missing, ", "),
		}, false
	}

	products, err := sheet.Texts(domain.ColumnProduct)
	if err != nil {
		return skippedFor(sheet, err), false
	}
	plain, err := sheet.Numbers(domain.ColumnMargin)
	if err != nil {
		return skippedFor(sheet, err), false
	}
	weighted, err := sheet.Numbers(domain.ColumnWeightedMargin)
	if err != nil {
		return skippedFor(sheet, err), false
	}

	for i, product := range products {
		*rows = append(*rows,
			domain.ProductMarginRow{
				Product: product,
				Month:   sheet.Name(),
				Kind:    domain.MarginKindPlain,
				Value:   valueAt(plain, i),
			},
			domain.ProductMarginRow{
				Product: product,
				Month:   sheet.Name(),
				Kind:    domain.MarginKindWeighted,
				Value:   valueAt(weighted, i),
			},
		)
	}
	return domain.SkippedMonth{}, true
}

func skippedFor(sheet *Sheet, err error) domain.SkippedMonth {
	return domain.SkippedMonth{
		Month:            sheet.Name(),
		AvailableColumns: sheet.ColumnNames(),
		Reason:           err.Error(),
	}
}

func valueAt(col NumericColumn, i int) *float64 {
	if !col.Valid[i] {
		return nil
	}
	v := col.Values[i]
	return &v
}

package dataprocessing

import (
	"custos/pkg/contracts/domain"
)

// Aggregate totals the sale, merchandise cost and weighted margin columns of one sheet.
// The first absent required column is reported as a MissingColumnError.
func Aggregate(sheet *Sheet) (domain.MonthAggregate, error) {
	for _, name := range domain.AggregateColumns {
		if !sheet.HasColumn(name) {
			return domain.MonthAggregate{}, &MissingColumnError{Sheet: sheet.Name(), Column: name}
		}
	}

	totals := make([]float64, len(domain.AggregateColumns))
	for i, name := range domain.AggregateColumns {
		col, err := sheet.Numbers(name)
		if err != nil {
			return domain.MonthAggregate{}, err
		}
		totals[i] = col.Sum().InexactFloat64()
	}

	return domain.MonthAggregate{
		Month:               sheet.Name(),
		TotalSale:           totals[0],
		TotalCost:           totals[1],
		TotalWeightedMargin: totals[2],
	}, nil
}

// Summarize builds the per-month textual view. An aggregation failure only
// affects its own month; an unknown month fails the whole request.
func Summarize(wb *Workbook, months []string) ([]domain.MonthSummary, error) {
	sheets, err := wb.resolve(months)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.MonthSummary, 0, len(sheets))
	for _, sheet := range sheets {
		summary := domain.MonthSummary{
			Month:   sheet.Name(),
			Columns: sheet.ColumnNames(),
			Rows:    sheet.Records(),
		}
		agg, err := Aggregate(sheet)
		if err != nil {
			summary.Error = err.Error()
		} else {
			summary.Aggregate = &agg
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

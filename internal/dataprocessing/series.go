package dataprocessing

import (
	"custos/pkg/contracts/domain"
)

// BuildSeries aggregates every selected month, in the order given, into index-aligned series.
// Any aggregation error aborts the whole build and is returned as is.
func BuildSeries(wb *Workbook, months []string) (domain.ComparativeSeries, error) {
	sheets, err := wb.resolve(months)
	if err != nil {
		return domain.ComparativeSeries{}, err
	}

	series := domain.ComparativeSeries{
		Months:          make([]string, 0, len(sheets)),
		Sales:           make([]float64, 0, len(sheets)),
		Costs:           make([]float64, 0, len(sheets)),
		WeightedMargins: make([]float64, 0, len(sheets)),
	}
	for _, sheet := range sheets {
		agg, err := Aggregate(sheet)
		if err != nil {
			return domain.ComparativeSeries{}, err
		}
		series.Months = append(series.Months, sheet.Name())
		series.Sales = append(series.Sales, agg.TotalSale)
		series.Costs = append(series.Costs, agg.TotalCost)
		series.WeightedMargins = append(series.WeightedMargins, agg.TotalWeightedMargin)
	}
	return series, nil
}

package domain

// Column names of the monthly sales sheet layout
const (
	ColumnSale           = "VENDA"
	ColumnMerchandise    = "CUSTO MERCADORIA"
	ColumnWeightedMargin = "MARGEM PONDERADA"
	ColumnProduct        = "PRODUTOS"
	ColumnMargin         = "MARGEM"
)

// AggregateColumns lists the columns every sheet needs for aggregation, in check order
var AggregateColumns = []string{ColumnSale, ColumnMerchandise, ColumnWeightedMargin}

// ProductColumns lists the columns a sheet needs to take part in per-product analysis
var ProductColumns = []string{ColumnProduct, ColumnMargin, ColumnWeightedMargin}

// MonthAggregate holds the column totals of one monthly sheet
type MonthAggregate struct {
	Month               string  `json:"month"`
	TotalSale           float64 `json:"total_sale"`
	TotalCost           float64 `json:"total_cost"`
	TotalWeightedMargin float64 `json:"total_weighted_margin"`
}

// ComparativeSeries holds per-month totals aligned to Months
type ComparativeSeries struct {
	Months          []string  `json:"months"`
	Sales           []float64 `json:"sales"`
	Costs           []float64 `json:"costs"`
	WeightedMargins []float64 `json:"weighted_margins"`
}

// Len returns the number of months in the series
func (s ComparativeSeries) Len() int {
	return len(s.Months)
}

// MarginKind identifies which margin column a long-form row came from
type MarginKind string

const (
	MarginKindPlain    MarginKind = ColumnMargin
	MarginKindWeighted MarginKind = ColumnWeightedMargin
)

// MarginKinds lists the kinds in the order rows are emitted
var MarginKinds = []MarginKind{MarginKindPlain, MarginKindWeighted}

// ProductMarginRow is one (product, month, kind) observation of the long-form margin table.
// Value is nil when the source cell was empty.
type ProductMarginRow struct {
	Product string     `json:"product"`
	Month   string     `json:"month"`
	Kind    MarginKind `json:"kind"`
	Value   *float64   `json:"value"`
}

// SkippedMonth reports a month left out of the per-product analysis
type SkippedMonth struct {
	Month            string   `json:"month"`
	AvailableColumns []string `json:"available_columns"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	Reason           string   `json:"reason"`
}

// ProductMargins is the merged long-form table plus the months that could not contribute
type ProductMargins struct {
	Rows    []ProductMarginRow `json:"rows"`
	Skipped []SkippedMonth     `json:"skipped"`
}

// Empty reports whether there is nothing to chart
func (m ProductMargins) Empty() bool {
	return len(m.Rows) == 0
}

// MonthSummary is the textual per-month view: either an aggregate or the error that prevented it
type MonthSummary struct {
	Month     string          `json:"month"`
	Aggregate *MonthAggregate `json:"aggregate,omitempty"`
	Error     string          `json:"error,omitempty"`
	Columns   []string        `json:"columns"`
	Rows      [][]string      `json:"rows"`
}

// OK reports whether the month could be aggregated
func (s MonthSummary) OK() bool {
	return s.Aggregate != nil
}

package charts

import (
	"custos/pkg/contracts/domain"
)

// MarginLine is one line of the product margin chart: a (month, kind) pair
// with one value per product of the axis. A nil value is a gap.
type MarginLine struct {
	Name   string
	Month  string
	Kind   domain.MarginKind
	Color  string
	Dashed bool
	Values []*float64
}

// ProductAxis lists the products in the order they first appear
func ProductAxis(margins domain.ProductMargins) []string {
	seen := make(map[string]bool)
	axis := make([]string, 0)
	for _, row := range margins.Rows {
		if seen[row.Product] {
			continue
		}
		seen[row.Product] = true
		axis = append(axis, row.Product)
	}
	return axis
}

// MarginSeries derives the product axis and one line per (month, kind), months
// in first-appearance order and plain margin before weighted. Every line of a
// month shares its colour; the weighted line is dashed. When a product repeats
// within a month the last value wins.
func MarginSeries(margins domain.ProductMargins) ([]string, []MarginLine) {
	axis := ProductAxis(margins)
	position := make(map[string]int, len(axis))
	for i, p := range axis {
		position[p] = i
	}

	type key struct {
		month string
		kind  domain.MarginKind
	}
	months := make([]string, 0)
	monthIndex := make(map[string]int)
	lines := make(map[key]*MarginLine)

	for _, row := range margins.Rows {
		mi, ok := monthIndex[row.Month]
		if !ok {
			mi = len(months)
			monthIndex[row.Month] = mi
			months = append(months, row.Month)
		}

		k := key{row.Month, row.Kind}
		line, ok := lines[k]
		if !ok {
			line = &MarginLine{
				Name:   row.Month + " - " + string(row.Kind),
				Month:  row.Month,
				Kind:   row.Kind,
				Color:  monthColor(mi),
				Dashed: row.Kind == domain.MarginKindWeighted,
				Values: make([]*float64, len(axis)),
			}
			lines[k] = line
		}
		line.Values[position[row.Product]] = row.Value
	}

	out := make([]MarginLine, 0, len(lines))
	for _, month := range months {
		for _, kind := range domain.MarginKinds {
			if line, ok := lines[key{month, kind}]; ok {
				out = append(out, *line)
			}
		}
	}
	return axis, out
}

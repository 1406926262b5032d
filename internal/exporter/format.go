package exporter

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// formatFloat renders a value for machine-readable output: two decimals, dot separator, no grouping
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Formatter renders values for people in one locale
type Formatter struct {
	printer *message.Printer
}

// NewFormatter creates a formatter for tag
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{printer: message.NewPrinter(tag)}
}

// DefaultFormatter groups thousands with commas and uses a decimal point, as the dashboard always has
func DefaultFormatter() *Formatter {
	return NewFormatter(language.English)
}

// Currency renders a Real amount with grouping and two decimals
func (f *Formatter) Currency(v float64) string {
	return f.printer.Sprintf("R$ %.2f", v)
}

// Percent renders a margin value that is already expressed in percent
func (f *Formatter) Percent(v float64) string {
	return f.printer.Sprintf("%.2f%%", v)
}

// Number renders a plain value with grouping and two decimals
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprintf("%.2f", v)
}

// Count renders an integer with grouping
func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

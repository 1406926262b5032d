package charts

import (
	"fmt"
	"io"

	echarts "github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"custos/pkg/contracts/domain"
)

// Chart titles and axis labels
const (
	PageTitle            = "Análise de Vendas por Mês"
	ComparisonBarsTitle  = "Comparação de Vendas e Custos por Mês"
	ComparisonLinesTitle = "Vendas vs Custos - Linha"
	WeightedMarginTitle  = "Margem Ponderada por Mês"
	ProductMarginTitle   = "Comparação de Margens por Produto"

	axisMonths         = "Meses"
	axisValues         = "Valores (R$)"
	axisWeightedMargin = "Margem Ponderada (%)"
	axisProducts       = "Produtos"
	axisMargin         = "Margem (%)"

	seriesSales = "Vendas"
	seriesCosts = "Custos"
)

// DefaultTheme is a dark echarts theme
const DefaultTheme = types.ThemeChalk

// gap is how echarts spells a missing point
const gap = "-"

func baseOptions(title, theme, xName, yName string) []echarts.GlobalOpts {
	if theme == "" {
		theme = DefaultTheme
	}
	return []echarts.GlobalOpts{
		echarts.WithInitializationOpts(opts.Initialization{
			Theme:  theme,
			Width:  "100%",
			Height: "420px",
		}),
		echarts.WithTitleOpts(opts.Title{Title: title}),
		echarts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		echarts.WithLegendOpts(opts.Legend{Show: true, Bottom: "0"}),
		echarts.WithXAxisOpts(opts.XAxis{Name: xName}),
		echarts.WithYAxisOpts(opts.YAxis{Name: yName}),
	}
}

func barData(values []float64) []opts.BarData {
	out := make([]opts.BarData, len(values))
	for i, v := range values {
		out[i] = opts.BarData{Value: v}
	}
	return out
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: v}
	}
	return out
}

// ComparisonBars groups sales and cost bars per month
func ComparisonBars(series domain.ComparativeSeries, theme string) *echarts.Bar {
	bar := echarts.NewBar()
	bar.SetGlobalOptions(baseOptions(ComparisonBarsTitle, theme, axisMonths, axisValues)...)
	bar.SetXAxis(series.Months).
		AddSeries(seriesSales, barData(series.Sales), echarts.WithItemStyleOpts(opts.ItemStyle{Color: SalesColor})).
		AddSeries(seriesCosts, barData(series.Costs), echarts.WithItemStyleOpts(opts.ItemStyle{Color: CostsColor}))
	return bar
}

// ComparisonLines draws sales and costs as lines over the months
func ComparisonLines(series domain.ComparativeSeries, theme string) *echarts.Line {
	line := echarts.NewLine()
	line.SetGlobalOptions(baseOptions(ComparisonLinesTitle, theme, axisMonths, axisValues)...)
	line.SetXAxis(series.Months).
		AddSeries(seriesSales, lineData(series.Sales),
			echarts.WithLineStyleOpts(opts.LineStyle{Color: SalesColor}),
			echarts.WithItemStyleOpts(opts.ItemStyle{Color: SalesColor})).
		AddSeries(seriesCosts, lineData(series.Costs),
			echarts.WithLineStyleOpts(opts.LineStyle{Color: CostsColor}),
			echarts.WithItemStyleOpts(opts.ItemStyle{Color: CostsColor}))
	return line
}

// WeightedMarginBars shows the weighted margin total per month, coloured by value
func WeightedMarginBars(series domain.ComparativeSeries, theme string) *echarts.Bar {
	lo, hi := bounds(series.WeightedMargins)

	bar := echarts.NewBar()
	bar.SetGlobalOptions(append(baseOptions(WeightedMarginTitle, theme, axisMonths, axisWeightedMargin),
		echarts.WithVisualMapOpts(opts.VisualMap{
			Min:     float32(lo),
			Max:     float32(hi),
			InRange: &opts.VisualMapInRange{Color: Viridis},
		}),
	)...)
	bar.SetXAxis(series.Months).AddSeries(WeightedMarginTitle, barData(series.WeightedMargins))
	return bar
}

// ProductMarginLines draws one line per month and margin kind across the products
func ProductMarginLines(margins domain.ProductMargins, theme string) *echarts.Line {
	axis, lines := MarginSeries(margins)

	chart := echarts.NewLine()
	chart.SetGlobalOptions(baseOptions(ProductMarginTitle, theme, axisProducts, axisMargin)...)
	chart.SetXAxis(axis)
	for _, l := range lines {
		data := make([]opts.LineData, len(l.Values))
		for i, v := range l.Values {
			if v == nil {
				data[i] = opts.LineData{Value: gap}
				continue
			}
			data[i] = opts.LineData{Value: *v}
		}
		style := opts.LineStyle{Color: l.Color}
		if l.Dashed {
			style.Type = "dashed"
		}
		chart.AddSeries(l.Name, data,
			echarts.WithLineStyleOpts(style),
			echarts.WithItemStyleOpts(opts.ItemStyle{Color: l.Color}))
	}
	return chart
}

// RenderDashboard writes one HTML page with every chart that has data. A nil
// series (its build failed) leaves out the three monthly charts; empty margins
// leave out the product chart.
func RenderDashboard(w io.Writer, series *domain.ComparativeSeries, margins domain.ProductMargins, theme string) error {
	page := components.NewPage()
	page.PageTitle = PageTitle

	if series != nil {
		page.AddCharts(
			ComparisonBars(*series, theme),
			ComparisonLines(*series, theme),
			WeightedMarginBars(*series, theme),
		)
	}
	if !margins.Empty() {
		page.AddCharts(ProductMarginLines(margins, theme))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

func bounds(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

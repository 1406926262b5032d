// Package charts turns dashboard results into interactive go-echarts charts.
//
// Data derivation (ProductAxis, MarginSeries) is kept apart from rendering so
// it can be checked without parsing HTML. RenderDashboard writes a single
// self-contained page holding every chart of one selection.
package charts

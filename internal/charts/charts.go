package charts

import (
	"fmt"
	"html"
	"io"
	"math"
	"time"
	"unicode/utf8"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"sales-dashboard/internal/models"
)

const (
	ContentType = "image/svg+xml"

	defaultWidth  = 720
	defaultHeight = 320
	barWidth      = 48
	barSpacing    = 16
	// approximate advance of one axis label rune at go-chart's default axis font
	labelRuneWidth = 8
)

var (
	lineColor = drawing.ColorFromHex("2563eb")
	barColor  = drawing.ColorFromHex("0f766e")
)

// MonthlySVG draws the monthly revenue series as a line chart.
func MonthlySVG(w io.Writer, series []models.MonthlyData) error {
	if len(series) == 0 {
		return placeholder(w, "Monthly Sales Trend", "No sales in the current selection")
	}

	xs := make([]time.Time, 0, len(series)+1)
	ys := make([]float64, 0, len(series)+1)
	for _, m := range series {
		xs = append(xs, m.Start)
		ys = append(ys, m.Sales.InexactFloat64())
	}
	// go-chart needs two distinct x values
	if len(xs) == 1 {
		xs = append(xs, xs[0].AddDate(0, 1, 0))
		ys = append(ys, ys[0])
	}

	graph := chart.Chart{
		Title:      "Monthly Sales Trend",
		Width:      defaultWidth,
		Height:     defaultHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis: chart.YAxis{
			Name:  "Sales ($)",
			Range: &chart.ContinuousRange{Min: 0, Max: niceMax(ys)},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Sales",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: lineColor, StrokeWidth: 2, DotColor: lineColor, DotWidth: 3},
			},
		},
	}
	return graph.Render(chart.SVG, w)
}

// RankingSVG draws a ranking as a bar chart, bars in ranking order.
func RankingSVG(w io.Writer, title string, ranking []models.CategoryRevenue) error {
	if len(ranking) == 0 {
		return placeholder(w, title, "No sales in the current selection")
	}

	bars := make([]chart.Value, 0, len(ranking))
	values := make([]float64, 0, len(ranking))
	for _, r := range ranking {
		v := r.Revenue.InexactFloat64()
		bars = append(bars, chart.Value{
			Label: r.Category,
			Value: v,
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		})
		values = append(values, v)
	}

	spacing := labelSpacing(ranking)
	width := len(bars)*(barWidth+spacing) + 120
	if width < defaultWidth {
		width = defaultWidth
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     defaultHeight,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Bottom: 56}},
		// Labels stay on one line; wrapped lines are drawn below the canvas.
		XAxis: chart.Style{TextWrap: chart.TextWrapNone},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: niceMax(values)},
		},
		Bars: bars,
	}
	return graph.Render(chart.SVG, w)
}

// labelSpacing widens the gap between bars until the longest label fits its slot.
func labelSpacing(ranking []models.CategoryRevenue) int {
	longest := 0
	for _, r := range ranking {
		longest = max(longest, utf8.RuneCountInString(r.Category))
	}
	return max(barSpacing, longest*labelRuneWidth+8-barWidth)
}

// niceMax rounds the largest value up to one significant step so the axis ends on a
// round number. An all-zero series still gets a non-empty range.
func niceMax(values []float64) float64 {
	maxV := 0.0
	for _, v := range values {
		maxV = math.Max(maxV, v)
	}
	if maxV <= 0 {
		return 1
	}
	step := math.Pow(10, math.Floor(math.Log10(maxV)))
	return math.Ceil(maxV/step) * step
}

func placeholder(w io.Writer, title, message string) error {
	_, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<text x="16" y="28" font-family="sans-serif" font-size="16" font-weight="bold">%s</text>`+
		`<text x="50%%" y="50%%" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#64748b">%s</text>`+
		`</svg>`,
		defaultWidth, defaultHeight, defaultWidth, defaultHeight, html.EscapeString(title), html.EscapeString(message))
	return err
}

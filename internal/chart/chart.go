// Package chart renders the category pie chart and the income/expense bar
// chart as PNG or SVG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"cashbook/internal/core"
)

const (
	Size = 400

	IncomeColor  = "10b981"
	ExpenseColor = "ef4444"

	// defaultBarScale is the bar chart ceiling when both totals are zero.
	defaultBarScale = 1000
)

// Palette colours pie slices in order, wrapping around.
var Palette = []string{
	"a855f7", "3b82f6", "06b6d4", "ec4899", "10b981",
	"f59e0b", "ef4444", "8b5cf6", "14b8a6", "f97316",
}

var (
	// ErrNoData is returned by Pie when there are no expenses to draw.
	ErrNoData = errors.New("no expense data available")
	// ErrUnknownFormat is returned for extensions other than png and svg.
	ErrUnknownFormat = errors.New("unknown image format")
)

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() gochart.RendererProvider {
	if f == SVG {
		return gochart.SVG
	}
	return gochart.PNG
}

// Renderer draws charts with amounts labelled in one currency.
type Renderer struct {
	Symbol string
	Width  int
	Height int
}

func New(symbol string) *Renderer {
	return &Renderer{Symbol: symbol, Width: Size, Height: Size}
}

func color(hex string) gochart.Style {
	c := drawing.ColorFromHex(hex)
	return gochart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

// Pie draws one slice per category in breakdown order.
func (r *Renderer) Pie(w io.Writer, breakdown []core.CategoryAmount, f Format) error {
	values := make([]gochart.Value, 0, len(breakdown))
	for i, c := range breakdown {
		if !c.Amount.IsPositive() {
			continue
		}
		values = append(values, gochart.Value{
			Value: c.Amount.InexactFloat64(),
			Label: fmt.Sprintf("%s: %s%s", c.Name, r.Symbol, c.Amount.StringFixed(0)),
			Style: color(Palette[i%len(Palette)]),
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}
	pie := gochart.PieChart{
		Width:  r.Width,
		Height: r.Height,
		Values: values,
	}
	// A lone value is drawn as a circle styled by SliceStyle, not Value.Style.
	if len(values) == 1 {
		pie.SliceStyle = values[0].Style
	}
	if err := pie.Render(f.provider(), w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// BarScale is the y-axis ceiling: the larger total, or 1000 when both are
// zero.
func BarScale(t core.Totals) float64 {
	m := t.Income
	if t.Expense.GreaterThan(m) {
		m = t.Expense
	}
	if m.IsZero() {
		return defaultBarScale
	}
	return m.InexactFloat64()
}

// Bar draws the income and expense totals side by side.
func (r *Renderer) Bar(w io.Writer, totals core.Totals, f Format) error {
	bar := gochart.BarChart{
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   80,
		BarSpacing: 60,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		YAxis: gochart.YAxis{
			Range:          &gochart.ContinuousRange{Min: 0, Max: BarScale(totals)},
			ValueFormatter: r.axisLabel,
		},
		Bars: []gochart.Value{
			{Value: totals.Income.InexactFloat64(), Label: "Income", Style: color(IncomeColor)},
			{Value: totals.Expense.InexactFloat64(), Label: "Expense", Style: color(ExpenseColor)},
		},
	}
	if err := bar.Render(f.provider(), w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

func (r *Renderer) axisLabel(v interface{}) string {
	if f, ok := v.(float64); ok {
		return r.Symbol + strconv.FormatFloat(f, 'f', 0, 64)
	}
	return ""
}

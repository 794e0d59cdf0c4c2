package report

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/jgoulah/gridmeter/pkg/models"
)

const (
	chartWidth  = 800
	chartHeight = 500
	chartMargin = 50
)

type bar struct {
	label string
	value float64
}

// dailyChart draws daily totals as bars with the mean line and, when the
// standard deviation is defined, the mean ± 3σ band behind them.
func dailyChart(series []models.DailyUsage, stats models.DailyStats, unit string) string {
	bars := make([]bar, 0, len(series))
	for _, d := range series {
		bars = append(bars, bar{label: d.Day.Format("01-02"), value: d.Energy})
	}

	lo, hi := valueBounds(bars)
	if stats.HasStdDev {
		lo = math.Min(lo, stats.Lower)
		hi = math.Max(hi, stats.Upper)
	}

	c := newCanvas(lo, hi)
	c.title("Daily usage, " + unit)
	if stats.HasStdDev {
		c.band(stats.Lower, stats.Upper)
	}
	c.bars(bars, "#1f4fd1")
	if stats.HasMean {
		c.hline(stats.Mean, "#d11f1f", "")
	}
	if stats.HasStdDev {
		c.hline(stats.Lower, "#b01fd1", "6,4")
		c.hline(stats.Upper, "#b01fd1", "6,4")
	}
	return c.String()
}

// hourlyChart draws one bar per hourly delta.
func hourlyChart(deltas []models.HourlyDelta, unit string) string {
	bars := make([]bar, 0, len(deltas))
	for _, d := range deltas {
		bars = append(bars, bar{label: d.HourStart.Format("01-02 15:04"), value: d.Delta})
	}
	lo, hi := valueBounds(bars)

	c := newCanvas(lo, hi)
	c.title("Hourly usage, " + unit)
	c.bars(bars, "#1f4fd1")
	return c.String()
}

func valueBounds(bars []bar) (float64, float64) {
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo = math.Min(lo, b.value)
		hi = math.Max(hi, b.value)
	}
	return lo, hi
}

// canvas maps values in [lo, hi] onto the plot area of an SVG document.
type canvas struct {
	sb     strings.Builder
	lo, hi float64
}

func newCanvas(lo, hi float64) *canvas {
	if hi == lo {
		hi = lo + 1
	}
	c := &canvas{lo: lo, hi: hi}
	fmt.Fprintf(&c.sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	c.sb.WriteString(`<rect width="100%" height="100%" fill="white"/>`)
	return c
}

func (c *canvas) y(v float64) float64 {
	plot := float64(chartHeight - 2*chartMargin)
	return float64(chartHeight-chartMargin) - (v-c.lo)/(c.hi-c.lo)*plot
}

func (c *canvas) title(text string) {
	fmt.Fprintf(&c.sb, `<text x="%d" y="%d" font-family="sans-serif" font-size="16">%s</text>`,
		chartMargin, chartMargin/2, html.EscapeString(text))
}

func (c *canvas) band(lo, hi float64) {
	top := c.y(hi)
	fmt.Fprintf(&c.sb, `<rect x="%d" y="%.1f" width="%d" height="%.1f" fill="pink" opacity="0.5"/>`,
		chartMargin, top, chartWidth-2*chartMargin, c.y(lo)-top)
}

func (c *canvas) hline(v float64, color, dash string) {
	y := c.y(v)
	fmt.Fprintf(&c.sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s"`,
		chartMargin, y, chartWidth-chartMargin, y, color)
	if dash != "" {
		fmt.Fprintf(&c.sb, ` stroke-dasharray="%s"`, dash)
	}
	c.sb.WriteString(`/>`)
}

func (c *canvas) bars(bars []bar, color string) {
	if len(bars) == 0 {
		return
	}
	slot := float64(chartWidth-2*chartMargin) / float64(len(bars))
	zero := c.y(0)
	for i, b := range bars {
		x := float64(chartMargin) + float64(i)*slot
		top := math.Min(zero, c.y(b.value))
		height := math.Abs(c.y(b.value) - zero)
		fmt.Fprintf(&c.sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s: %s</title></rect>`,
			x+slot*0.1, top, slot*0.8, height, color, html.EscapeString(b.label), FormatAmount(b.value))
		fmt.Fprintf(&c.sb, `<text x="%.1f" y="%d" font-family="sans-serif" font-size="10" transform="rotate(90 %.1f %d)">%s</text>`,
			x+slot/2, chartHeight-chartMargin+4, x+slot/2, chartHeight-chartMargin+4, html.EscapeString(b.label))
	}
}

func (c *canvas) String() string {
	return c.sb.String() + `</svg>`
}

package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

var blocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a one-line unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	for _, v := range values {
		idx := 1 + int(v/peak*7)
		idx = min(max(idx, 1), len(blocks)-1)
		buf.WriteRune(blocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Render(buf.String())
}

// BarChart renders a vertical bar chart with a y-axis. When there are more
// values than fit, the most recent ones are kept.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	tickStep := chartTickStep(maxVal)
	for math.Ceil(maxVal/tickStep) > float64(max(height/2, 2)) {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	intervals := max(int(math.Round(ceiling/tickStep)), 1)
	rowsPerTick := max(height/intervals, 1)
	chartH := rowsPerTick * intervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string, intervals)
	for i := 1; i <= intervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	const gap = 1
	if fit := (chartW + gap) / (2 + gap); len(values) > fit {
		values = values[len(values)-fit:]
		if len(labels) > fit {
			labels = labels[len(labels)-fit:]
		}
	}
	n := len(values)
	barW := min(max((chartW-(n-1)*gap)/n, 2), 6)
	axisLen := n*barW + (n-1)*gap

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		top := ceiling * float64(row) / float64(chartH)
		bottom := ceiling * float64(row-1) / float64(chartH)

		barColor := color
		if float64(row)/float64(chartH) > 0.8 {
			barColor = t.AccentBright
		}
		barStyle := lipgloss.NewStyle().Foreground(barColor)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", yLabelW, tickLabels[row])))
		for i, v := range values {
			if i > 0 {
				b.WriteString(strings.Repeat(" ", gap))
			}
			switch {
			case v >= top:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > bottom:
				idx := int((v - bottom) / (top - bottom) * 8)
				idx = min(max(idx, 1), 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				b.WriteString(strings.Repeat(" ", barW))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s└%s", yLabelW, "0", strings.Repeat("─", axisLen))))

	if len(labels) == n {
		line := []rune(strings.Repeat(" ", axisLen))
		lastEnd := -1
		for i, lbl := range labels {
			pos := i * (barW + gap)
			if pos <= lastEnd {
				continue
			}
			r := []rune(lbl)
			if pos+len(r) > axisLen {
				r = r[:axisLen-pos]
			}
			copy(line[pos:], r)
			lastEnd = pos + len(r)
		}
		b.WriteString("\n")
		b.WriteString(strings.Repeat(" ", yLabelW+1))
		b.WriteString(axisStyle.Render(strings.TrimRight(string(line), " ")))
	}
	return b.String()
}

// HBar renders a horizontal bar of value relative to maxValue, at most
// width cells wide.
func HBar(value, maxValue float64, width int, color lipgloss.Color) string {
	if maxValue <= 0 || width <= 0 || value <= 0 {
		return ""
	}
	cells := int(math.Round(value / maxValue * float64(width)))
	cells = min(max(cells, 1), width)
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", cells))
}

// chartTickStep computes a round tick interval targeting about five ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	switch {
	case v >= 1e6:
		return trimZero(fmt.Sprintf("%.1f", v/1e6)) + "M"
	case v >= 1e3:
		return trimZero(fmt.Sprintf("%.1f", v/1e3)) + "k"
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

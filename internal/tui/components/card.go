// Package components provides reusable widgets for the spendcast dashboard.
package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// Metric is one headline number on a metric card.
type Metric struct {
	Label, Value, Delta string
}

// LayoutRow distributes totalWidth into n widths that sum to exactly totalWidth.
// First items absorb the remainder.
func LayoutRow(totalWidth, n int) []int {
	if n <= 0 {
		return nil
	}
	base := totalWidth / n
	remainder := totalWidth % n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = base
		if i < remainder {
			widths[i]++
		}
	}
	return widths
}

// MetricCard renders a small card with label, value and an optional delta
// line. outerWidth includes the border.
func MetricCard(m Metric, outerWidth int) string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Width(max(outerWidth-2, 10)).
		Padding(0, 1)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true)
	deltaStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	content := labelStyle.Render(m.Label) + "\n" + valueStyle.Render(m.Value)
	if m.Delta != "" {
		content += "\n" + deltaStyle.Render(m.Delta)
	}
	return cardStyle.Render(content)
}

// MetricCardRow renders metric cards side by side across totalWidth.
func MetricCardRow(cards []Metric, totalWidth int) string {
	if len(cards) == 0 {
		return ""
	}
	widths := LayoutRow(totalWidth, len(cards))
	rendered := make([]string, len(cards))
	for i, c := range cards {
		rendered[i] = MetricCard(c, widths[i])
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// ContentCard renders a bordered card with an optional title.
func ContentCard(title, body string, outerWidth int) string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Width(max(outerWidth-2, 10)).
		Padding(0, 1)
	titleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Bold(true)

	content := ""
	if title != "" {
		content = titleStyle.Render(title) + "\n"
	}
	return cardStyle.Render(content + body)
}

// CardRow joins pre-rendered cards horizontally.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// CardInnerWidth returns the usable text width inside a ContentCard.
func CardInnerWidth(outerWidth int) int {
	return max(outerWidth-4, 10) // 2 border + 2 padding
}

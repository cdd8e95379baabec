package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

func (a App) renderMonthlyTab(cw int) string {
	t := theme.Active
	months := a.res.Months
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	if len(months) == 0 {
		return components.ContentCard("Monthly Spend", mutedStyle.Render("No transactions in range."), cw)
	}

	var b strings.Builder
	vals := make([]float64, len(months))
	labels := make([]string, len(months))
	for i, m := range months {
		vals[i] = m.Total
		labels[i] = m.Month
	}
	b.WriteString(components.ContentCard("Monthly Spend",
		components.BarChart(vals, labels, t.Blue, components.CardInnerWidth(cw), 8), cw))
	b.WriteString("\n")

	// One row per category with its month-by-month trend.
	cats := monthlyCategories(months)
	nameW := 16
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %14s %14s  %s", nameW, "Category", "Latest", "Change", "Trend")))
	for _, cat := range cats {
		series := make([]float64, len(months))
		for i, m := range months {
			series[i] = m.ByCategory[cat]
		}
		latest := series[len(series)-1]
		change := "-"
		if len(series) > 1 {
			change = cli.FormatDelta(latest, series[len(series)-2])
		}
		body.WriteString("\n")
		body.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(cat, nameW))))
		body.WriteString(mutedStyle.Render(fmt.Sprintf(" %14s %14s  ", cli.FormatAmount(latest), change)))
		body.WriteString(components.Sparkline(series, t.Accent))
	}
	b.WriteString(components.ContentCard("By Category", body.String(), cw))
	return b.String()
}

// monthlyCategories returns every category seen in months, sorted.
func monthlyCategories(months []model.MonthlyStats) []string {
	seen := make(map[string]struct{})
	for _, m := range months {
		for c := range m.ByCategory {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

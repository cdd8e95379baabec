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

func (a App) renderForecastTab(cw int) string {
	t := theme.Active
	table := a.forecasts()
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	if len(table) == 0 {
		return components.ContentCard("Forecast", mutedStyle.Render("No categories to forecast."), cw)
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Border).Bold(true)
	alerted := alertedCategories(a.res.Budget)

	const rowFmt = "%-16s %-10s %14s %20s  %-10s"
	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf(rowFmt, "Category", "Target", "Predicted", "80% range", "Method")))
	var total float64
	for i, f := range table {
		rng := "-"
		if f.HasInterval() {
			rng = cli.FormatCompact(f.Lower) + " - " + cli.FormatCompact(f.Upper)
		}
		method := f.Method
		if f.LowConfidence {
			method += " *"
		}
		line := fmt.Sprintf(rowFmt, truncStr(f.Category, 16), cli.FormatDate(f.TargetDate),
			cli.FormatAmount(f.Predicted), rng, method)
		if alerted[f.Category] {
			line += " " + lipgloss.NewStyle().Foreground(t.Red).Render("over budget")
		}
		body.WriteString("\n")
		if i == a.cursor {
			body.WriteString(selStyle.Render(line))
		} else {
			body.WriteString(rowStyle.Render(line))
		}
		total += f.Predicted
	}
	body.WriteString("\n")
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-27s %14s", "Total", cli.FormatAmount(total))))

	var b strings.Builder
	b.WriteString(components.ContentCard(fmt.Sprintf("Forecast (%d categories)", len(table)), body.String(), cw))
	b.WriteString("\n")

	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		a.renderSelectedHistory(table, halves[0]),
		a.renderBudgetCard(halves[1]),
	}))
	return b.String()
}

// renderSelectedHistory shows the monthly trend of the selected category.
func (a App) renderSelectedHistory(table []model.Forecast, w int) string {
	t := theme.Active
	if a.cursor >= len(table) {
		return ""
	}
	sel := table[a.cursor]
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	var vals []float64
	var labels []string
	for _, m := range a.res.Months {
		vals = append(vals, m.ByCategory[sel.Category])
		labels = append(labels, m.Month)
	}
	var body string
	if len(vals) == 0 {
		body = mutedStyle.Render("No monthly history in range.")
	} else {
		body = components.BarChart(vals, labels, t.Accent, components.CardInnerWidth(w), 6)
	}
	body += "\n" + mutedStyle.Render(fmt.Sprintf("%d days of history, next %s on %s",
		sel.HistoryPoints, cli.FormatAmount(sel.Predicted), cli.FormatDate(sel.TargetDate)))
	return components.ContentCard(sel.Category, body, w)
}

func (a App) renderBudgetCard(w int) string {
	t := theme.Active
	report := a.res.Budget
	okStyle := lipgloss.NewStyle().Foreground(t.Green).Bold(true)
	alertStyle := lipgloss.NewStyle().Foreground(t.Red).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	var body strings.Builder
	if report.OK() {
		body.WriteString(okStyle.Render(fmt.Sprintf("✓ All %d forecasts within budget", report.Checked)))
	} else {
		body.WriteString(alertStyle.Render(fmt.Sprintf("✗ %d budget alerts", len(report.Alerts))))
		for _, al := range report.Alerts {
			scope := "Category"
			if al.Scope == model.ScopeMonthly {
				scope = "Month"
			}
			body.WriteString("\n")
			body.WriteString(fmt.Sprintf("%-8s %-14s %s over %s limit", scope, truncStr(al.Key, 14),
				alertStyle.Render(cli.FormatAmount(al.Overage())), cli.FormatAmount(al.Limit)))
		}
	}

	months := make([]string, 0, len(report.MonthlyTotals))
	for m := range report.MonthlyTotals {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		body.WriteString("\n")
		body.WriteString(mutedStyle.Render(fmt.Sprintf("Forecast %s total %s", m, cli.FormatAmount(report.MonthlyTotals[m]))))
	}
	return components.ContentCard("Budget", body.String(), w)
}

func alertedCategories(report model.BudgetReport) map[string]bool {
	out := make(map[string]bool)
	for _, al := range report.Alerts {
		if al.Scope == model.ScopeCategory {
			out[al.Key] = true
		}
	}
	return out
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	stats := a.res.Summary
	var b strings.Builder

	period := "-"
	if !stats.FirstDate.IsZero() {
		period = fmt.Sprintf("%s to %s", cli.FormatDate(stats.FirstDate), cli.FormatDate(stats.LastDate))
	}
	cards := []components.Metric{
		{Label: "Spend", Value: cli.FormatAmount(stats.TotalSpend), Delta: cli.FormatAmount(stats.SpendPerDay) + "/day"},
		{Label: "Credits", Value: cli.FormatAmount(stats.TotalCredits)},
		{Label: "Transactions", Value: cli.FormatNumber(int64(stats.Transactions)),
			Delta: fmt.Sprintf("%d categories", len(a.res.Categories))},
		{Label: "Active days", Value: cli.FormatNumber(int64(stats.ActiveDays)), Delta: period},
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	// Spend by category, largest first.
	innerW := components.CardInnerWidth(cw)
	nameW := 16
	amountW := 14
	barW := max(innerW-nameW-amountW-10, 5)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	var body strings.Builder
	maxTotal := 0.0
	for _, c := range a.res.Categories {
		maxTotal = max(maxTotal, c.Total)
	}
	for i, c := range a.res.Categories {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(c.Category, nameW))))
		body.WriteString(mutedStyle.Render(fmt.Sprintf("%*s ", amountW, cli.FormatAmount(c.Total))))
		body.WriteString(components.HBar(c.Total, maxTotal, barW, t.Blue))
		body.WriteString(mutedStyle.Render(fmt.Sprintf(" %5.1f%%", c.SharePercent)))
	}
	if len(a.res.Categories) == 0 {
		body.WriteString(mutedStyle.Render("No transactions in range."))
	}
	b.WriteString(components.ContentCard("Spend by Category", body.String(), cw))

	if load := a.res.Load; load != nil && (len(load.Rejected) > 0 || load.FileErrors > 0) {
		b.WriteString("\n")
		warn := lipgloss.NewStyle().Foreground(t.Orange)
		b.WriteString(warn.Render(fmt.Sprintf(" %d rows dropped, %d files unreadable",
			len(load.Rejected), load.FileErrors)))
	}
	return b.String()
}

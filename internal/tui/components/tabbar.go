package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// Tab is one entry in the tab bar. Key is the first letter of Name.
type Tab struct {
	Name string
	Key  rune
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o'},
	{Name: "Monthly", Key: 'm'},
	{Name: "Forecast", Key: 'f'},
}

func renderTab(tab Tab, active bool) string {
	t := theme.Active
	pad := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return pad.Foreground(t.Accent).Bold(true).Render(tab.Name)
	}
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	rest := lipgloss.NewStyle().Foreground(t.TextMuted).Render(tab.Name[1:])
	return pad.Render(dimStyle.Render("[") + keyStyle.Render(tab.Name[:1]) + dimStyle.Render("]") + rest)
}

// TabVisualWidth is the rendered width of a tab in the bar.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(renderTab(tab, active))
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx, width int) string {
	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		parts[i] = renderTab(tab, i == activeIdx)
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(parts, " "))
}

// TabIdxByKey returns the tab index for a key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}

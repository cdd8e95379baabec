package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar. dataAge is shown on the
// right when set.
func RenderStatusBar(width int, dataAge string, refreshing bool) string {
	t := theme.Active

	left := " [?]help  [r]efresh  [q]uit"
	right := ""
	switch {
	case refreshing:
		right = "refreshing... "
	case dataAge != "":
		right = fmt.Sprintf("Data: %s ", dataAge)
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width).
		Render(left + strings.Repeat(" ", padding) + right)
}

// Package tui provides the interactive Bubble Tea dashboard for spendcast.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// LoadFunc runs one forecasting pass, reporting file progress.
type LoadFunc func(ctx context.Context, progress pipeline.ProgressFunc) (*pipeline.RunResult, error)

// DataLoadedMsg is sent when the first run finishes.
type DataLoadedMsg struct {
	Result   *pipeline.RunResult
	LoadTime time.Duration
	Err      error
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background rerun completes.
type RefreshDataMsg struct {
	Result   *pipeline.RunResult
	LoadTime time.Duration
	Err      error
}

// Options configures the dashboard.
type Options struct {
	Load     LoadFunc
	Refresh  time.Duration // zero disables auto-refresh
	Category string        // narrows the forecast tab
}

// App is the root Bubble Tea model.
type App struct {
	// Data
	res      *pipeline.RunResult
	err      error
	loaded   bool
	loadTime time.Duration

	// Refresh state
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool
	refreshErr      error

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	cursor    int // selected forecast row
	category  string

	// Loading
	load        LoadFunc
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 160
	minContentHeight = 5

	tabOverview = 0
	tabMonthly  = 1
	tabForecast = 2
)

// NewApp creates the dashboard model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	return App{
		load:            opts.Load,
		refreshInterval: opts.Refresh,
		category:        opts.Category,
		spinner:         sp,
		loadSub:         make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		loadDataCmd(a.load, a.loadSub),
		a.spinner.Tick,
	}
	if a.refreshInterval > 0 {
		cmds = append(cmds, tickCmd())
	}
	return tea.Batch(cmds...)
}

// forecasts returns the forecast rows shown on the forecast tab.
func (a App) forecasts() []model.Forecast {
	if a.res == nil {
		return nil
	}
	return pipeline.FilterForecasts(a.res.Forecasts, a.category)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabForecast && a.cursor > 0 {
				a.cursor--
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabForecast && a.cursor < len(a.forecasts())-1 {
				a.cursor++
			}
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.loaded {
			return a, nil
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		if a.activeTab == tabForecast {
			switch key {
			case "j", "down":
				if a.cursor < len(a.forecasts())-1 {
					a.cursor++
				}
				return a, nil
			case "k", "up":
				if a.cursor > 0 {
					a.cursor--
				}
				return a, nil
			case "g":
				a.cursor = 0
				return a, nil
			case "G":
				a.cursor = max(len(a.forecasts())-1, 0)
				return a, nil
			}
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			if !a.refreshing {
				a.refreshing = true
				return a, refreshDataCmd(a.load)
			}
			return a, nil
		case "left", "shift+tab":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		case "right", "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		default:
			if r := []rune(key); len(r) == 1 {
				if tab := components.TabIdxByKey(r[0]); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case DataLoadedMsg:
		a.loaded = true
		a.res = msg.Result
		a.err = msg.Err
		a.loadTime = msg.LoadTime
		a.lastRefresh = time.Now()
		a.clampCursor()
		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		if a.loaded && !a.refreshing && time.Since(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			return a, tea.Batch(tickCmd(), refreshDataCmd(a.load))
		}
		return a, tickCmd()

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		a.refreshErr = msg.Err
		if msg.Err == nil && msg.Result != nil {
			a.res = msg.Result
			a.err = nil
			a.loadTime = msg.LoadTime
			a.clampCursor()
		}
		return a, nil
	}

	return a, nil
}

func (a *App) clampCursor() {
	if n := len(a.forecasts()); a.cursor >= n {
		a.cursor = max(n-1, 0)
	}
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.res == nil {
		return a.viewError()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	msg := fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  spendcast needs at least %d columns.\n",
		a.width, minTerminalWidth)
	h := max(a.height, 5)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ spendcast"))
	b.WriteString(subtitleStyle.Render(" · spending forecast"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	if a.progressMax > 0 {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf(" Reading files %s / %s",
			cli.FormatNumber(int64(a.progress)), cli.FormatNumber(int64(a.progressMax)))))
	} else {
		b.WriteString(subtitleStyle.Render(" Categorizing and forecasting..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()))
}

func (a App) viewError() string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Red).
		Padding(1, 3)
	errText := "no data"
	if a.err != nil {
		errText = a.err.Error()
	}
	body := lipgloss.NewStyle().Foreground(t.Red).Bold(true).Render("Forecast failed") + "\n\n" +
		lipgloss.NewStyle().Foreground(t.TextPrimary).Width(min(a.width-10, 70)).Render(errText) + "\n\n" +
		lipgloss.NewStyle().Foreground(t.TextDim).Render("[q]uit")
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body))
}

func (a App) viewHelp() string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	bindings := []struct{ key, desc string }{
		{"o m f", "Jump to tab"},
		{"← →", "Previous / next tab"},
		{"j k", "Select forecast row"},
		{"r", "Rerun the forecast"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for _, kb := range bindings {
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-8s", kb.key)))
		b.WriteString(descStyle.Render(kb.desc))
		b.WriteString("\n")
	}
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()))
}

func (a App) viewMain() string {
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)

	dataAge := fmt.Sprintf("%.1fs", a.loadTime.Seconds())
	if a.refreshErr != nil {
		dataAge = "refresh failed"
	}
	statusBar := components.RenderStatusBar(w, dataAge, a.refreshing)

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabMonthly:
		content = a.renderMonthlyTab(cw)
	case tabForecast:
		content = a.renderForecastTab(cw)
	}
	content = padHeight(truncateHeight(content, contentH), contentH)
	content = lipgloss.PlaceHorizontal(w, lipgloss.Center, content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd runs load in a background goroutine. It streams ProgressMsg
// updates and a final DataLoadedMsg through sub.
func loadDataCmd(load LoadFunc, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking send so loader workers aren't stalled; the next
			// update catches up.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			res, err := load(context.Background(), progressFn)
			sub <- DataLoadedMsg{Result: res, LoadTime: time.Since(start), Err: err}
		}()

		// Block until the first message (either ProgressMsg or DataLoadedMsg)
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reruns the forecast in the background without progress UI.
func refreshDataCmd(load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res, err := load(context.Background(), nil)
		return RefreshDataMsg{Result: res, LoadTime: time.Since(start), Err: err}
	}
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

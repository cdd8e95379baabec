package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/tui/components"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func fixtureResult() *pipeline.RunResult {
	return &pipeline.RunResult{
		Load: &pipeline.LoadResult{},
		Summary: model.SummaryStats{
			Transactions: 4, Categories: 2, ActiveDays: 4,
			FirstDate: day(1, 1), LastDate: day(2, 1),
			TotalSpend: 430, SpendPerDay: 13.44,
		},
		Categories: []model.CategoryStats{
			{Category: "Food", Transactions: 3, Total: 400, SharePercent: 93},
			{Category: "Transport", Transactions: 1, Total: 30, SharePercent: 7},
		},
		Months: []model.MonthlyStats{
			{Month: "2024-01", Total: 230, ByCategory: map[string]float64{"Food": 200, "Transport": 30}},
			{Month: "2024-02", Total: 200, ByCategory: map[string]float64{"Food": 200}},
		},
		Forecasts: []model.Forecast{
			{Category: "Food", TargetDate: day(3, 2), Predicted: 250, Method: model.MethodSeasonal, HistoryPoints: 3, LowConfidence: true, Lower: 250, Upper: 250},
			{Category: "Transport", TargetDate: day(2, 4), Predicted: 30, Lower: 30, Upper: 30, Method: model.MethodNaive, HistoryPoints: 1, LowConfidence: true},
		},
		Budget: model.BudgetReport{
			Alerts:        []model.BudgetAlert{{Scope: model.ScopeCategory, Key: "Food", Predicted: 250, Limit: 100}},
			Checked:       2,
			MonthlyTotals: map[string]float64{"2024-03": 250},
		},
	}
}

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	out, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return out
}

func press(t *testing.T, a App, key string) App {
	t.Helper()
	switch key {
	case "down":
		return update(t, a, tea.KeyMsg{Type: tea.KeyDown})
	case "right":
		return update(t, a, tea.KeyMsg{Type: tea.KeyRight})
	}
	return update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
}

func loadedApp(t *testing.T, opts Options) App {
	t.Helper()
	a := NewApp(opts)
	a = update(t, a, tea.WindowSizeMsg{Width: 140, Height: 50})
	return update(t, a, DataLoadedMsg{Result: fixtureResult(), LoadTime: time.Second})
}

func TestView_Tabs(t *testing.T) {
	a := loadedApp(t, Options{})

	tests := []struct {
		key  string
		tab  int
		want []string
	}{
		{"m", tabMonthly, []string{"Monthly Spend", "2024-01", "Transport"}},
		{"f", tabForecast, []string{"Forecast (2 categories)", "2024-03-02", "over budget", "1 budget alerts"}},
		{"o", tabOverview, []string{"Spend by Category", "430.00", "Food"}},
	}
	for _, tt := range tests {
		a = press(t, a, tt.key)
		if a.activeTab != tt.tab {
			t.Fatalf("key %q -> tab %d, want %d", tt.key, a.activeTab, tt.tab)
		}
		view := a.View()
		for _, w := range tt.want {
			if !strings.Contains(view, w) {
				t.Errorf("tab %d view missing %q", tt.tab, w)
			}
		}
	}
}

func TestUpdate_TabCycling(t *testing.T) {
	a := loadedApp(t, Options{})
	for i := 1; i <= len(components.Tabs); i++ {
		a = press(t, a, "right")
		if want := i % len(components.Tabs); a.activeTab != want {
			t.Fatalf("after %d rights tab = %d, want %d", i, a.activeTab, want)
		}
	}
}

func TestUpdate_ForecastCursor(t *testing.T) {
	a := press(t, loadedApp(t, Options{}), "f")
	for i := 0; i < 5; i++ {
		a = press(t, a, "down")
	}
	if a.cursor != 1 {
		t.Errorf("cursor = %d, want clamped to 1", a.cursor)
	}
	if !strings.Contains(a.View(), "1 days of history") {
		t.Error("selected category detail not shown")
	}
	a = press(t, a, "g")
	if a.cursor != 0 {
		t.Errorf("cursor after g = %d", a.cursor)
	}
}

func TestUpdate_CategoryFilterNarrowsForecastTab(t *testing.T) {
	a := loadedApp(t, Options{Category: "trans"})
	if got := a.forecasts(); len(got) != 1 || got[0].Category != "Transport" {
		t.Errorf("forecasts = %+v", got)
	}
	// The budget card still reflects the whole run.
	if !strings.Contains(press(t, a, "f").View(), "1 budget alerts") {
		t.Error("budget alerts hidden by category filter")
	}
}

func TestUpdate_KeysIgnoredWhileLoading(t *testing.T) {
	a := NewApp(Options{})
	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	a = press(t, a, "m")
	if a.activeTab != tabOverview {
		t.Errorf("tab changed before data loaded: %d", a.activeTab)
	}
	if !strings.Contains(a.View(), "spendcast") {
		t.Error("loading view missing title")
	}
}

func TestView_LoadError(t *testing.T) {
	a := NewApp(Options{})
	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	a = update(t, a, DataLoadedMsg{Err: errors.New("pipeline: no trained model loaded")})
	if !strings.Contains(a.View(), "no trained model loaded") {
		t.Errorf("error view = %q", a.View())
	}
}

func TestView_TooNarrow(t *testing.T) {
	a := update(t, NewApp(Options{}), tea.WindowSizeMsg{Width: 60, Height: 20})
	if !strings.Contains(a.View(), "too narrow") {
		t.Error("narrow terminal not reported")
	}
}

func TestRefresh(t *testing.T) {
	calls := 0
	next := fixtureResult()
	next.Forecasts = next.Forecasts[:1]
	load := func(context.Context, pipeline.ProgressFunc) (*pipeline.RunResult, error) {
		calls++
		return next, nil
	}
	a := loadedApp(t, Options{Load: load})
	a = press(t, a, "f")
	a = press(t, a, "down")

	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	a = m.(App)
	if !a.refreshing || cmd == nil {
		t.Fatalf("r did not start a refresh")
	}
	a = update(t, a, cmd())
	if calls != 1 || a.refreshing {
		t.Errorf("calls = %d, refreshing = %v", calls, a.refreshing)
	}
	if len(a.res.Forecasts) != 1 || a.cursor != 0 {
		t.Errorf("refreshed forecasts = %d, cursor = %d", len(a.res.Forecasts), a.cursor)
	}

	// A failed refresh keeps the last good result.
	a = update(t, a, RefreshDataMsg{Err: errors.New("boom")})
	if a.res != next || !strings.Contains(a.View(), "refresh failed") {
		t.Error("failed refresh replaced data or was not reported")
	}
}

func TestLoadDataCmd(t *testing.T) {
	want := fixtureResult()
	load := func(_ context.Context, progress pipeline.ProgressFunc) (*pipeline.RunResult, error) {
		progress(1, 2)
		progress(2, 2)
		return want, nil
	}
	sub := make(chan tea.Msg, 1)
	msg := loadDataCmd(load, sub)()
	for {
		if _, ok := msg.(ProgressMsg); !ok {
			break
		}
		msg = waitForLoadMsg(sub)()
	}
	done, ok := msg.(DataLoadedMsg)
	if !ok || done.Result != want || done.Err != nil {
		t.Fatalf("final msg = %#v", msg)
	}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 50); got != -1 {
			t.Errorf("x past the bar -> %d, want -1", got)
		}
	}
}

func TestMouseClickSelectsTab(t *testing.T) {
	a := loadedApp(t, Options{})
	x := components.TabVisualWidth(components.Tabs[0], true) + 1 + 2
	a = update(t, a, tea.MouseMsg{X: x, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if a.activeTab != tabMonthly {
		t.Errorf("click at x=%d -> tab %d, want monthly", x, a.activeTab)
	}
}

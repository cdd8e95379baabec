package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/tui"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [csv|dir]...",
	Short: "Launch the interactive spending dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, args []string) error {
	env, err := setupEnv()
	if err != nil {
		return err
	}
	since, until, err := timeWindow()
	if err != nil {
		return err
	}
	m, err := env.loadModel()
	if err != nil {
		return err
	}
	theme.SetActive(env.cfg.TUI.Theme)

	// Force TrueColor so background styling produces ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	opts := pipeline.Options{
		Inputs:       env.inputs(args),
		Model:        m,
		Engine:       forecast.New(env.cfg.ForecastConfig()),
		SnapshotPath: env.paths.Snapshot,
		Limits:       env.cfg.Limits(),
		Since:        since,
		Until:        until,
		Category:     flagCategory,
		Log:          zerolog.Nop(), // log lines would tear the alternate screen
	}
	if st := env.openStore(); st != nil {
		defer st.Close()
		opts.Recorder = st
	}

	load := func(ctx context.Context, progress pipeline.ProgressFunc) (*pipeline.RunResult, error) {
		o := opts
		o.Progress = progress
		return pipeline.Run(ctx, o)
	}
	app := tui.NewApp(tui.Options{
		Load:     load,
		Refresh:  time.Duration(env.cfg.TUI.RefreshSeconds) * time.Second,
		Category: flagCategory,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	paths := config.ResolvePaths(cfg, flagDataDir)

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println(cli.RenderWarning(err.Error()))
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory: %s\n", paths.DataDir)
	fmt.Printf("    Log level:      %s\n", cfg.General.LogLevel)
	fmt.Printf("    Run history:    %v\n", cfg.General.UseStore)
	fmt.Println()

	fmt.Println("  [Classifier]")
	fmt.Printf("    Backend:      %s\n", cfg.Classifier.Backend)
	fmt.Printf("    Label column: %s\n", cfg.Classifier.LabelColumn)
	fmt.Printf("    Max features: %d\n", cfg.Classifier.MaxFeatures)
	fmt.Printf("    Test ratio:   %.2f\n", cfg.Classifier.TestRatio)
	fmt.Printf("    Max age:      %d days\n", cfg.Classifier.MaxAgeDays)
	fmt.Println()

	fmt.Println("  [Forecast]")
	fmt.Printf("    Horizon:    %d days\n", cfg.Forecast.HorizonDays)
	fmt.Printf("    Min points: %d\n", cfg.Forecast.MinPoints)
	fmt.Printf("    Seasonality: period %.1f, order %d\n", cfg.Forecast.Period, cfg.Forecast.FourierOrder)
	fmt.Println()

	fmt.Println("  [Budget]")
	if cfg.Budget.Monthly > 0 {
		fmt.Printf("    Monthly: %s\n", cli.FormatAmount(cfg.Budget.Monthly))
	} else {
		fmt.Println("    Monthly: not set")
	}
	names := make([]string, 0, len(cfg.Budget.Categories))
	for c := range cfg.Budget.Categories {
		names = append(names, c)
	}
	sort.Strings(names)
	for _, c := range names {
		fmt.Printf("    %-14s %s\n", c+":", cli.FormatAmount(cfg.Budget.Categories[c]))
	}
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Theme:   %s\n", cfg.TUI.Theme)
	if cfg.TUI.RefreshSeconds > 0 {
		fmt.Printf("    Refresh: every %ds\n", cfg.TUI.RefreshSeconds)
	} else {
		fmt.Println("    Refresh: manual")
	}
	fmt.Println()

	fmt.Println("  [Files]")
	fmt.Printf("    Model:    %s\n", paths.Model)
	fmt.Printf("    Snapshot: %s\n", paths.Snapshot)
	fmt.Printf("    History:  %s\n", paths.Store)
	fmt.Printf("    Inbox:    %s\n", paths.Inbox)
	fmt.Println()

	fmt.Println("  Run `spendcast setup` to reconfigure.")
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func validAmount(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return errors.New("enter a non-negative number")
	}
	return nil
}

func formatLimit(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := config.Load()

	dataDir := cfg.General.DataDir
	backend := cfg.Classifier.Backend
	monthly := formatLimit(cfg.Budget.Monthly)

	names := make([]string, 0, len(cfg.Budget.Categories))
	for c := range cfg.Budget.Categories {
		names = append(names, c)
	}
	sort.Strings(names)
	limits := make([]string, len(names))
	for i, c := range names {
		limits[i] = formatLimit(cfg.Budget.Categories[c])
	}

	general := huh.NewGroup(
		huh.NewNote().
			Title("Welcome to spendcast!").
			Description("A few settings for categorizing and forecasting your spending."),
		huh.NewInput().
			Title("Data directory").
			Description("Models, forecasts and run history live here. Leave blank for the default.").
			Placeholder(config.DefaultDataDir()).
			Value(&dataDir),
		huh.NewSelect[string]().
			Title("Classifier backend").
			Options(
				huh.NewOption("Logistic regression (recommended)", classifier.BackendLogReg),
				huh.NewOption("Naive Bayes", classifier.BackendBayes),
			).
			Value(&backend),
		huh.NewInput().
			Title("Monthly budget").
			Description("Alert when a month's forecast total exceeds this. 0 disables.").
			Validate(validAmount).
			Value(&monthly),
	)

	fields := make([]huh.Field, len(names))
	for i, c := range names {
		fields[i] = huh.NewInput().
			Title(c + " budget").
			Validate(validAmount).
			Value(&limits[i])
	}
	groups := []*huh.Group{general}
	if len(fields) > 0 {
		groups = append(groups, huh.NewGroup(fields...).Title("Category budgets"))
	}

	if err := huh.NewForm(groups...).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup canceled; nothing saved.")
			return nil
		}
		return err
	}

	cfg.General.DataDir = strings.TrimSpace(dataDir)
	cfg.Classifier.Backend = backend
	if v, err := strconv.ParseFloat(strings.TrimSpace(monthly), 64); err == nil {
		cfg.Budget.Monthly = v
	}
	for i, c := range names {
		if v, err := strconv.ParseFloat(strings.TrimSpace(limits[i]), 64); err == nil {
			cfg.Budget.Categories[c] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `spendcast setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

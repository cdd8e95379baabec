package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/budget"
	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Check the latest forecast snapshot against budgets",
	RunE:  runBudget,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
}

func runBudget(_ *cobra.Command, _ []string) error {
	env, err := setupEnv()
	if err != nil {
		return err
	}

	table, err := forecast.ReadSnapshot(env.paths.Snapshot)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println("\n  No forecast snapshot yet. Run `spendcast forecast` first.")
		return nil
	}
	if err != nil {
		return err
	}

	limits := env.cfg.Limits()
	report := budget.Evaluate(table, limits)

	fmt.Println()
	fmt.Println(cli.RenderTitle("BUDGET CHECK"))
	fmt.Println()

	rows := make([][]string, 0, len(table))
	for _, f := range table {
		limit, ok := limits.Categories[f.Category]
		limitStr, status := "-", "-"
		if ok {
			limitStr = cli.FormatAmount(limit)
			status = cli.RenderStatus(f.Predicted <= limit, "ok", "over")
		}
		rows = append(rows, []string{f.Category, cli.FormatDate(f.TargetDate), cli.FormatAmount(f.Predicted), limitStr, status})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Category", "Target", "Predicted", "Limit", "Status"},
		Rows:    rows,
	}))
	fmt.Println()

	if limits.Monthly > 0 {
		months := make([]string, 0, len(report.MonthlyTotals))
		for m := range report.MonthlyTotals {
			months = append(months, m)
		}
		sort.Strings(months)
		for _, m := range months {
			total := report.MonthlyTotals[m]
			fmt.Printf("  %s  %s / %s  %s\n", m, cli.FormatAmount(total), cli.FormatAmount(limits.Monthly),
				cli.RenderStatus(total <= limits.Monthly, "ok", "over"))
		}
		fmt.Println()
	}

	renderBudget(report)
	return nil
}

// renderBudget prints one line per alert, or a single ok line.
func renderBudget(report model.BudgetReport) {
	if report.OK() {
		fmt.Printf("  %s\n", cli.RenderStatus(true, "All forecasts within budget", ""))
		return
	}
	for _, a := range report.Alerts {
		label := a.Key
		if a.Scope == model.ScopeMonthly {
			label = "Monthly total " + a.Key
		}
		fmt.Printf("  %s %s: predicted %s exceeds %s by %s\n",
			cli.RenderStatus(false, "", "ALERT"),
			label,
			cli.FormatAmount(a.Predicted),
			cli.FormatAmount(a.Limit),
			cli.FormatAmount(a.Overage()),
		)
	}
}

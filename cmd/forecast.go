package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast [csv|dir]...",
	Short: "Categorize, forecast the next horizon per category and check budgets",
	RunE:  runForecast,
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(_ *cobra.Command, args []string) error {
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

	opts := pipeline.Options{
		Inputs:       env.inputs(args),
		Model:        m,
		Engine:       forecast.New(env.cfg.ForecastConfig()),
		SnapshotPath: env.paths.Snapshot,
		Limits:       env.cfg.Limits(),
		Since:        since,
		Until:        until,
		Category:     flagCategory,
		Progress:     progressFn(),
		Log:          env.log,
	}
	if st := env.openStore(); st != nil {
		defer st.Close()
		opts.Recorder = st
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}
	shown := pipeline.FilterForecasts(res.Forecasts, flagCategory)
	if len(shown) == 0 {
		fmt.Println("\n  No transactions to forecast.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FORECAST  %d days ahead", env.cfg.Forecast.HorizonDays)))
	fmt.Println()
	fmt.Print(cli.RenderTable(forecastTable(shown)))
	fmt.Println()
	renderBudget(res.Budget)

	fmt.Printf("\n  Snapshot: %s\n", env.paths.Snapshot)
	if res.RunID != "" {
		fmt.Printf("  Run: %s\n", res.RunID)
	}
	return nil
}

func forecastTable(table []model.Forecast) cli.Table {
	rows := make([][]string, 0, len(table)+2)
	var total float64
	for _, f := range table {
		method := f.Method
		if f.LowConfidence {
			method += " *"
		}
		rng := "-"
		if f.HasInterval() {
			rng = fmt.Sprintf("%s - %s", cli.FormatCompact(f.Lower), cli.FormatCompact(f.Upper))
		}
		rows = append(rows, []string{
			f.Category,
			cli.FormatDate(f.TargetDate),
			cli.FormatAmount(f.Predicted),
			rng,
			method,
			cli.FormatNumber(int64(f.HistoryPoints)),
		})
		total += f.Predicted
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", cli.FormatAmount(total), "", "", ""})
	return cli.Table{
		Headers: []string{"Category", "Target", "Predicted", "80% range", "Method", "Days"},
		Rows:    rows,
	}
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/model"
)

var (
	flagHistoryLimit int
	flagHistoryRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past forecast runs from the run history",
	Long: "Lists recorded forecast runs. With --run, shows that run's forecast " +
		"table; with --category, shows how one category's forecast moved across runs.",
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Max runs to show")
	historyCmd.Flags().StringVar(&flagHistoryRun, "run", "", "Show the forecast table of one run")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	env, err := setupEnv()
	if err != nil {
		return err
	}
	st := env.openStore()
	if st == nil {
		return errors.New("run history is disabled (--no-store or general.use_store = false)")
	}
	defer st.Close()

	fmt.Println()
	switch {
	case flagHistoryRun != "":
		points, err := st.ForecastPoints(flagHistoryRun)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			fmt.Printf("  No forecast points for run %s.\n", flagHistoryRun)
			return nil
		}
		fmt.Println(cli.RenderTitle("RUN " + flagHistoryRun))
		fmt.Println()
		fmt.Print(cli.RenderTable(forecastTable(points)))

	case flagCategory != "":
		points, err := st.CategoryHistory(flagCategory, flagHistoryLimit)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			fmt.Printf("  No history for category %q.\n", flagCategory)
			return nil
		}
		fmt.Println(cli.RenderTitle("HISTORY  " + flagCategory))
		fmt.Println()
		fmt.Print(cli.RenderTable(forecastTable(points)))
		fmt.Printf("\n  Trend   %s\n", cli.RenderSparkline(predictedValues(points)))

	default:
		runs, err := st.ListForecastRuns(flagHistoryLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("  No forecast runs recorded yet.")
			return nil
		}
		fmt.Println(cli.RenderTitle("FORECAST RUNS"))
		fmt.Println()
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				r.ID,
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				cli.FormatNumber(int64(r.RowsAccepted)),
				cli.FormatNumber(int64(r.RowsRejected)),
				cli.FormatNumber(int64(r.Categories)),
				cli.FormatAmount(r.TotalPredicted),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Run", "Created", "Rows", "Rejected", "Categories", "Predicted"},
			Rows:    rows,
		}))
	}
	return nil
}

func predictedValues(points []model.Forecast) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Predicted
	}
	return out
}

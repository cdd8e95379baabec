package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [csv|dir]...",
	Short: "Spending summary with per-category totals",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

// categorize classifies rows with the trained model when one exists,
// falling back to the export's own category column.
func (e *appEnv) categorize(rows []model.Transaction) []model.Prediction {
	m, err := e.loadModel()
	if err == nil {
		return pipeline.Classify(m, rows)
	}
	e.log.Debug().Err(err).Msg("no model; using source categories")

	out := make([]model.Prediction, len(rows))
	for i, tx := range rows {
		label := tx.Category
		if label == "" {
			label = model.CategoryOther
		}
		out[i] = model.Prediction{Transaction: tx, Predicted: label}
	}
	return out
}

func runSummary(_ *cobra.Command, args []string) error {
	env, err := setupEnv()
	if err != nil {
		return err
	}
	since, until, err := timeWindow()
	if err != nil {
		return err
	}
	result, err := env.loadData(args)
	if err != nil {
		return err
	}

	rows := pipeline.FilterByTime(result.Rows, since, until)
	if len(rows) == 0 {
		fmt.Println("\n  No transactions found in the selected range.")
		return nil
	}
	preds := pipeline.FilterByCategory(env.categorize(rows), flagCategory)
	stats := pipeline.Aggregate(rows)
	cats := pipeline.AggregateCategories(preds)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SPENDING  %s to %s",
		cli.FormatDate(stats.FirstDate), cli.FormatDate(stats.LastDate))))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Transactions", cli.FormatNumber(int64(stats.Transactions))},
			{"Active days", cli.FormatNumber(int64(stats.ActiveDays))},
			{"---"},
			{"Spend", cli.FormatAmount(stats.TotalSpend)},
			{"Credits", cli.FormatAmount(stats.TotalCredits)},
			{"Spend/day", cli.FormatAmount(stats.SpendPerDay)},
			{"Rejected rows", cli.FormatNumber(int64(len(result.Rejected)))},
		},
	}))
	fmt.Println()

	catRows := make([][]string, 0, len(cats))
	for _, c := range cats {
		catRows = append(catRows, []string{
			c.Category,
			cli.FormatNumber(int64(c.Transactions)),
			cli.FormatAmount(c.Total),
			cli.FormatAmount(c.Average),
			fmt.Sprintf("%.1f%%", c.SharePercent),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By category",
		Headers: []string{"Category", "Count", "Total", "Average", "Share"},
		Rows:    catRows,
	}))

	if len(cats) > 0 {
		fmt.Println()
		width := 0
		for _, c := range cats {
			if len(c.Category) > width {
				width = len(c.Category)
			}
		}
		for _, c := range cats {
			fmt.Println(cli.RenderHorizontalBar(c.Category, width, c.Total, cats[0].Total, 30))
		}
	}

	if result.FileErrors > 0 {
		fmt.Println()
		fmt.Println(cli.RenderWarning(fmt.Sprintf("%d files could not be read", result.FileErrors)))
	}
	return nil
}

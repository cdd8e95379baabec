package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/pipeline"
)

var monthlyCmd = &cobra.Command{
	Use:   "monthly [csv|dir]...",
	Short: "Month by category spending table",
	RunE:  runMonthly,
}

func init() {
	rootCmd.AddCommand(monthlyCmd)
}

func runMonthly(_ *cobra.Command, args []string) error {
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
	preds := pipeline.FilterByCategory(env.categorize(rows), flagCategory)
	months := pipeline.AggregateMonths(preds)
	if len(months) == 0 {
		fmt.Println("\n  No data for the selected period.")
		return nil
	}

	catSet := make(map[string]bool)
	for _, m := range months {
		for c := range m.ByCategory {
			catSet[c] = true
		}
	}
	cats := make([]string, 0, len(catSet))
	for c := range catSet {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("MONTHLY SPEND  %s to %s", months[0].Month, months[len(months)-1].Month)))
	fmt.Println()

	headers := append([]string{"Month"}, cats...)
	headers = append(headers, "Total")
	tableRows := make([][]string, 0, len(months))
	totals := make([]float64, 0, len(months))
	for _, m := range months {
		row := []string{m.Month}
		for _, c := range cats {
			row = append(row, cli.FormatCompact(m.ByCategory[c]))
		}
		row = append(row, cli.FormatAmount(m.Total))
		tableRows = append(tableRows, row)
		totals = append(totals, m.Total)
	}
	fmt.Print(cli.RenderTable(cli.Table{Headers: headers, Rows: tableRows}))

	fmt.Println()
	fmt.Printf("  Trend   %s\n", cli.RenderSparkline(totals))
	for _, c := range cats {
		series := make([]float64, len(months))
		for i, m := range months {
			series[i] = m.ByCategory[c]
		}
		fmt.Printf("  %-14s %s\n", c, cli.RenderSparkline(series))
	}
	return nil
}

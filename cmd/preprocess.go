package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/source"
)

var flagOut string

var preprocessCmd = &cobra.Command{
	Use:   "preprocess [csv|dir]...",
	Short: "Clean transaction exports and report rejected rows",
	RunE:  runPreprocess,
}

func init() {
	preprocessCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Write cleaned rows to this CSV (default stdout)")
	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocess(_ *cobra.Command, args []string) error {
	env, err := setupEnv()
	if err != nil {
		return err
	}
	result, err := env.loadData(args)
	if err != nil {
		return err
	}

	if err := writeRows(source.ToTable(result.Rows), flagOut); err != nil {
		return err
	}

	if len(result.Rejected) > 0 {
		rows := make([][]string, 0, len(result.Rejected))
		for _, r := range result.Rejected {
			rows = append(rows, []string{r.Source, fmt.Sprintf("%d", r.Line), r.Field, r.Value, r.Reason})
		}
		fmt.Fprint(os.Stderr, cli.RenderTable(cli.Table{
			Title:   "Rejected rows",
			Headers: []string{"File", "Line", "Field", "Value", "Reason"},
			Rows:    rows,
		}))
	}
	return nil
}

// writeRows writes t to path, or to stdout when path is empty.
func writeRows(t source.Table, path string) error {
	if path == "" {
		return source.WriteCSV(os.Stdout, t)
	}
	if err := source.WriteCSVFile(path, t); err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Wrote %s rows to %s\n", cli.FormatNumber(int64(len(t.Rows))), path)
	}
	return nil
}

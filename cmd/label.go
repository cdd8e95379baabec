package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/labeler"
	"github.com/theirongolddev/spendcast/internal/source"
)

var flagRules string

var labelCmd = &cobra.Command{
	Use:   "label [csv|dir]...",
	Short: "Bootstrap category labels from keyword rules",
	Long: "Assigns a category_rule column using keyword rules. The labeled " +
		"file can be reviewed and then passed to `spendcast train`.",
	RunE: runLabel,
}

func init() {
	labelCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Write labeled rows to this CSV (default stdout)")
	labelCmd.Flags().StringVar(&flagRules, "rules", "", "YAML rules file (default [labeler] rules_file or built-in rules)")
	rootCmd.AddCommand(labelCmd)
}

// loadLabeler resolves the keyword rules: flag, then config, then the
// built-in set.
func (e *appEnv) loadLabeler() (*labeler.Labeler, error) {
	path := flagRules
	if path == "" {
		path = e.cfg.Labeler.RulesFile
	}
	if path == "" {
		return labeler.New(labeler.DefaultRules()), nil
	}
	rs, err := labeler.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return labeler.New(rs), nil
}

func runLabel(_ *cobra.Command, args []string) error {
	env, err := setupEnv()
	if err != nil {
		return err
	}
	lb, err := env.loadLabeler()
	if err != nil {
		return err
	}
	result, err := env.loadData(args)
	if err != nil {
		return err
	}

	labeled := lb.Apply(result.Rows)
	if err := writeRows(source.ToTable(labeled), flagOut); err != nil {
		return err
	}

	counts := labeler.Counts(labeled)
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	rows := make([][]string, 0, len(names))
	for _, c := range names {
		rows = append(rows, []string{c, cli.FormatNumber(int64(counts[c]))})
	}
	fmt.Fprint(os.Stderr, cli.RenderTable(cli.Table{
		Title:   "Rule labels",
		Headers: []string{"Category", "Rows"},
		Rows:    rows,
	}))
	return nil
}

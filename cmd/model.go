package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/cli"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the trained model artifact and its freshness",
	RunE:  runModel,
}

func init() {
	rootCmd.AddCommand(modelCmd)
}

func runModel(_ *cobra.Command, _ []string) error {
	env, err := setupEnv()
	if err != nil {
		return err
	}

	m, err := classifier.Load(env.paths.Model)
	if errors.Is(err, classifier.ErrArtifactMissing) {
		fmt.Println()
		fmt.Printf("  No model at %s\n", env.paths.Model)
		fmt.Println("  Train one with: spendcast train --bootstrap <file.csv>")
		fmt.Println()
		return nil
	}
	if err != nil {
		return err
	}

	now := time.Now()
	meta := m.Meta
	maxAge := env.cfg.MaxModelAge()
	fresh := cli.RenderStatus(!m.Stale(maxAge, now), "fresh", "stale")

	fmt.Println()
	fmt.Println(cli.RenderTitle("CATEGORY MODEL"))
	fmt.Println()
	rows := [][]string{
		{"Artifact", env.paths.Model},
		{"Schema", fmt.Sprintf("v%d", meta.SchemaVersion)},
		{"Backend", meta.Backend},
		{"Trained", fmt.Sprintf("%s (%s)", meta.TrainedAt.Local().Format("2006-01-02 15:04"), cli.FormatAge(meta.TrainedAt, now))},
		{"Freshness", fresh},
		{"Samples", fmt.Sprintf("%d (%d train / %d test)", meta.Samples, meta.TrainSize, meta.TestSize)},
		{"Vocabulary", cli.FormatNumber(int64(m.Vectorizer.Size()))},
		{"Checksum", meta.Checksum},
		{"Classes", strings.Join(meta.Classes, ", ")},
	}

	if st := env.openStore(); st != nil {
		defer st.Close()
		run, err := st.LatestTrainingRun()
		if err != nil {
			env.log.Warn().Err(err).Msg("reading training history")
		} else if run != nil && run.Checksum == meta.Checksum {
			rows = append(rows,
				[]string{"---"},
				[]string{"Accuracy", cli.FormatPercent(run.Accuracy)},
				[]string{"Macro F1", fmt.Sprintf("%.3f", run.MacroF1)},
			)
		}
	}

	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Field", "Value"}, Rows: rows}))
	fmt.Println()
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/pipeline"
)

var (
	flagBootstrap   bool
	flagLabelColumn string
	flagBackend     string
)

var trainCmd = &cobra.Command{
	Use:   "train [csv|dir]...",
	Short: "Train the category model from labeled transactions",
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().BoolVar(&flagBootstrap, "bootstrap", false, "Label rows with keyword rules before training")
	trainCmd.Flags().StringVar(&flagLabelColumn, "label-column", "", "Column holding training labels (default [classifier] label_column)")
	trainCmd.Flags().StringVar(&flagBackend, "backend", "", "Classifier backend: logreg or bayes")
	trainCmd.Flags().StringVar(&flagRules, "rules", "", "YAML rules file used with --bootstrap")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(_ *cobra.Command, args []string) error {
	env, err := setupEnv()
	if err != nil {
		return err
	}

	opts := pipeline.TrainOptions{
		Inputs:       env.inputs(args),
		LabelColumn:  env.cfg.Classifier.LabelColumn,
		Classifier:   env.cfg.ClassifierOptions(),
		ArtifactPath: env.paths.Model,
		Log:          env.log,
	}
	if flagLabelColumn != "" {
		opts.LabelColumn = flagLabelColumn
	}
	if flagBackend != "" {
		opts.Classifier.Backend = flagBackend
	}
	if flagBootstrap {
		if opts.Bootstrap, err = env.loadLabeler(); err != nil {
			return err
		}
	}
	if st := env.openStore(); st != nil {
		defer st.Close()
		opts.Recorder = st
	}

	res, err := pipeline.Train(opts)
	if err != nil {
		return err
	}

	meta := res.Model.Meta
	fmt.Println()
	fmt.Println(cli.RenderTitle("MODEL TRAINED"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Setting", "Value"},
		Rows: [][]string{
			{"Backend", meta.Backend},
			{"Samples", cli.FormatNumber(int64(meta.Samples))},
			{"Excluded (Other)", cli.FormatNumber(int64(meta.Excluded))},
			{"Train / test", fmt.Sprintf("%d / %d", meta.TrainSize, meta.TestSize)},
			{"Vocabulary", cli.FormatNumber(int64(res.Model.Vectorizer.Size()))},
			{"Classes", cli.FormatNumber(int64(len(meta.Classes)))},
			{"---"},
			{"Accuracy", cli.FormatPercent(res.Report.Accuracy)},
			{"Macro F1", fmt.Sprintf("%.3f", res.Report.MacroF1)},
			{"Weighted F1", fmt.Sprintf("%.3f", res.Report.WeightedF1)},
		},
	}))

	if len(res.Report.Classes) > 0 {
		fmt.Println()
		rows := make([][]string, 0, len(res.Report.Classes))
		for _, c := range res.Report.Classes {
			rows = append(rows, []string{
				c.Label,
				fmt.Sprintf("%.2f", c.Precision),
				fmt.Sprintf("%.2f", c.Recall),
				fmt.Sprintf("%.2f", c.F1),
				cli.FormatNumber(int64(c.Support)),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Held-out evaluation",
			Headers: []string{"Class", "Precision", "Recall", "F1", "Support"},
			Rows:    rows,
		}))
	}

	fmt.Printf("\n  Saved to %s\n", env.paths.Model)
	return nil
}

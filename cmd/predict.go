package cmd

import (
	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/source"
)

// predictedColumn is the output column added by `spendcast predict`.
const predictedColumn = "predicted_category"

var predictCmd = &cobra.Command{
	Use:   "predict [csv|dir]...",
	Short: "Categorize transactions with the trained model",
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Write categorized rows to this CSV (default stdout)")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(_ *cobra.Command, args []string) error {
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
	result, err := env.loadData(args)
	if err != nil {
		return err
	}

	rows := pipeline.FilterByTime(result.Rows, since, until)
	preds := pipeline.FilterByCategory(pipeline.Classify(m, rows), flagCategory)
	return writeRows(source.ToTable(withPredictions(preds)), flagOut)
}

// withPredictions copies each prediction into its row's extra columns.
func withPredictions(preds []model.Prediction) []model.Transaction {
	out := make([]model.Transaction, len(preds))
	for i, p := range preds {
		tx := p.Transaction
		extra := make(map[string]string, len(tx.Extra)+1)
		for k, v := range tx.Extra {
			extra[k] = v
		}
		extra[predictedColumn] = p.Predicted
		tx.Extra = extra
		out[i] = tx
	}
	return out
}

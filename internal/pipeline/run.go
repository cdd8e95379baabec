package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/spendcast/internal/budget"
	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
)

// ErrNoModel is returned when a run is started without a trained model.
var ErrNoModel = errors.New("pipeline: no trained model loaded")

// Predictor assigns categories to cleaned descriptions.
type Predictor interface {
	Predict(descClean []string) []string
}

// ForecastRecorder persists forecast runs.
type ForecastRecorder interface {
	SaveForecastRun(run model.ForecastRun, points []model.Forecast) (string, error)
}

// Options configures a forecasting run.
type Options struct {
	Inputs       []string
	Model        Predictor
	Engine       *forecast.Engine
	SnapshotPath string // empty skips the snapshot
	Recorder     ForecastRecorder
	Limits       budget.Limits
	Since, Until time.Time // report window; forecasts ignore it
	Category     string    // report filter; forecasts ignore it
	Progress     ProgressFunc
	Log          zerolog.Logger
}

// RunResult is everything a forecasting run produced.
type RunResult struct {
	Load        *LoadResult
	Summary     model.SummaryStats
	Predictions []model.Prediction
	Categories  []model.CategoryStats
	Months      []model.MonthlyStats
	Forecasts   []model.Forecast // every category, unfiltered
	Budget      model.BudgetReport
	RunID       string
}

// Run loads inputs, classifies every row, forecasts each category and
// checks the forecast against budgets. The snapshot file is rewritten on
// every successful run.
func Run(ctx context.Context, opts Options) (*RunResult, error) {
	if opts.Model == nil {
		return nil, ErrNoModel
	}
	engine := opts.Engine
	if engine == nil {
		engine = forecast.New(forecast.DefaultConfig())
	}
	log := opts.Log

	loaded, err := Load(opts.Inputs, opts.Progress)
	if err != nil {
		return nil, err
	}
	if loaded.FileErrors > 0 {
		log.Warn().Int("files", loaded.FileErrors).Msg("some files could not be read")
	}
	logRejections(log, loaded)

	// The forecast, snapshot, budget check and history always cover every
	// classified row; the time and category filters narrow the report only.
	all := Classify(opts.Model, loaded.Rows)
	res := &RunResult{Load: loaded}
	res.Forecasts, err = engine.Run(ctx, ForecastRows(all))
	if err != nil {
		return nil, fmt.Errorf("forecasting: %w", err)
	}
	log.Info().
		Int("rows", len(all)).
		Int("categories", len(res.Forecasts)).
		Msg("forecast complete")

	rows := FilterByTime(loaded.Rows, opts.Since, opts.Until)
	res.Summary = Aggregate(rows)
	res.Predictions = FilterByCategory(FilterPredictionsByTime(all, opts.Since, opts.Until), opts.Category)
	res.Categories = AggregateCategories(res.Predictions)
	res.Months = AggregateMonths(res.Predictions)

	if opts.SnapshotPath != "" {
		if err := forecast.WriteSnapshot(opts.SnapshotPath, res.Forecasts); err != nil {
			return nil, err
		}
		log.Debug().Str("path", opts.SnapshotPath).Msg("snapshot written")
	}

	res.Budget = budget.Evaluate(res.Forecasts, opts.Limits)
	for _, a := range res.Budget.Alerts {
		log.Warn().
			Str("scope", a.Scope).
			Str("key", a.Key).
			Float64("predicted", a.Predicted).
			Float64("limit", a.Limit).
			Msg("budget exceeded")
	}

	if opts.Recorder != nil {
		run := model.ForecastRun{
			CreatedAt:    time.Now().UTC(),
			RowsAccepted: len(loaded.Rows),
			RowsRejected: len(loaded.Rejected),
			Categories:   len(res.Forecasts),
		}
		if len(loaded.Files) == 1 {
			run.InputPath = loaded.Files[0]
		} else {
			run.InputPath = fmt.Sprintf("%d files", len(loaded.Files))
		}
		for _, f := range res.Forecasts {
			run.TotalPredicted += f.Predicted
		}
		// History is best effort; a failed write never fails the forecast.
		id, err := opts.Recorder.SaveForecastRun(run, res.Forecasts)
		if err != nil {
			log.Warn().Err(err).Msg("recording forecast run")
		} else {
			res.RunID = id
		}
	}

	return res, nil
}

// Classify predicts a category for every transaction.
func Classify(m Predictor, rows []model.Transaction) []model.Prediction {
	descs := make([]string, len(rows))
	for i, tx := range rows {
		descs[i] = tx.DescClean
	}
	labels := m.Predict(descs)

	out := make([]model.Prediction, len(rows))
	for i, tx := range rows {
		out[i] = model.Prediction{Transaction: tx, Predicted: labels[i]}
	}
	return out
}

// ForecastRows converts predictions to forecast engine input.
func ForecastRows(preds []model.Prediction) []forecast.Row {
	out := make([]forecast.Row, len(preds))
	for i, p := range preds {
		out[i] = forecast.Row{Category: p.Predicted, Date: p.Date, Amount: p.AmountAbs}
	}
	return out
}

func logRejections(log zerolog.Logger, loaded *LoadResult) {
	if len(loaded.Rejected) == 0 {
		return
	}
	for _, rej := range loaded.Rejected {
		log.Debug().
			Str("file", rej.Source).
			Int("line", rej.Line).
			Str("field", rej.Field).
			Str("value", rej.Value).
			Msg(rej.Reason)
	}
	log.Warn().
		Int("rejected", len(loaded.Rejected)).
		Int("accepted", len(loaded.Rows)).
		Msg("dropped rows with unparseable date or amount")
}

var _ Predictor = (*classifier.Model)(nil)

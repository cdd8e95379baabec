package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/labeler"
	"github.com/theirongolddev/spendcast/internal/model"
)

// TrainingRecorder persists training runs.
type TrainingRecorder interface {
	SaveTrainingRun(run model.TrainingRun) (string, error)
}

// TrainOptions configures a training run.
type TrainOptions struct {
	Inputs       []string
	LabelColumn  string
	Bootstrap    *labeler.Labeler // when set, labels are derived from keyword rules
	Classifier   classifier.Options
	ArtifactPath string
	Recorder     TrainingRecorder
	Log          zerolog.Logger
}

// TrainResult is the outcome of a training run.
type TrainResult struct {
	Load   *LoadResult
	Model  *classifier.Model
	Report classifier.Report
	RunID  string
}

// Train loads labeled inputs, fits the classifier and writes the artifact.
func Train(opts TrainOptions) (*TrainResult, error) {
	loaded, err := Load(opts.Inputs, nil)
	if err != nil {
		return nil, err
	}
	logRejections(opts.Log, loaded)

	labelColumn := opts.LabelColumn
	if opts.Bootstrap != nil {
		loaded.Rows = opts.Bootstrap.Apply(loaded.Rows)
		labelColumn = labeler.LabelColumn
		if !loaded.HasColumn(labelColumn) {
			loaded.Columns = append(loaded.Columns, labelColumn)
		}
	}

	samples, err := classifier.SamplesFrom(loaded.Result, labelColumn)
	if err != nil {
		return nil, err
	}

	m, report, err := classifier.Train(samples, opts.Classifier)
	if err != nil {
		return nil, err
	}
	opts.Log.Info().
		Str("backend", m.Meta.Backend).
		Int("samples", m.Meta.Samples).
		Int("excluded", m.Meta.Excluded).
		Int("vocab", m.Vectorizer.Size()).
		Float64("accuracy", report.Accuracy).
		Float64("macro_f1", report.MacroF1).
		Msg("classifier trained")

	if err := classifier.Save(opts.ArtifactPath, m); err != nil {
		return nil, fmt.Errorf("saving model: %w", err)
	}

	res := &TrainResult{Load: loaded, Model: m, Report: report}
	if opts.Recorder != nil {
		id, err := opts.Recorder.SaveTrainingRun(model.TrainingRun{
			TrainedAt:     m.Meta.TrainedAt,
			ArtifactPath:  opts.ArtifactPath,
			Backend:       m.Meta.Backend,
			SchemaVersion: m.Meta.SchemaVersion,
			Samples:       m.Meta.Samples,
			TrainSize:     m.Meta.TrainSize,
			TestSize:      m.Meta.TestSize,
			Accuracy:      report.Accuracy,
			MacroF1:       report.MacroF1,
			Checksum:      m.Meta.Checksum,
		})
		if err != nil {
			opts.Log.Warn().Err(err).Msg("recording training run")
		} else {
			res.RunID = id
		}
	}
	return res, nil
}

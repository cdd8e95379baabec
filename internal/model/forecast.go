package model

import "time"

// Forecast method names.
const (
	MethodSeasonal = "seasonal"
	MethodNaive    = "naive"
)

// Forecast is the projected spend for one category at its target date.
type Forecast struct {
	Category      string
	TargetDate    time.Time
	Predicted     float64
	Lower         float64
	Upper         float64
	Method        string
	HistoryPoints int
	LowConfidence bool
}

// HasInterval reports whether the forecast carries a usable range.
func (f Forecast) HasInterval() bool {
	return f.Upper > f.Lower
}

// ForecastRun summarizes one end-to-end forecasting run.
type ForecastRun struct {
	ID             string
	CreatedAt      time.Time
	InputPath      string
	RowsAccepted   int
	RowsRejected   int
	Categories     int
	TotalPredicted float64
}

// TrainingRun summarizes one classifier training run.
type TrainingRun struct {
	ID            string
	TrainedAt     time.Time
	ArtifactPath  string
	Backend       string
	SchemaVersion int
	Samples       int
	TrainSize     int
	TestSize      int
	Accuracy      float64
	MacroF1       float64
	Checksum      string
}

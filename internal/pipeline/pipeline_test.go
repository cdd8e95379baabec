package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/budget"
	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/labeler"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/source"
)

func writeCSV(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

type fakeRecorder struct {
	runs     []model.ForecastRun
	points   [][]model.Forecast
	training []model.TrainingRun
	err      error
}

func (f *fakeRecorder) SaveForecastRun(run model.ForecastRun, points []model.Forecast) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.runs = append(f.runs, run)
	f.points = append(f.points, points)
	return "run-1", nil
}

func (f *fakeRecorder) SaveTrainingRun(run model.TrainingRun) (string, error) {
	f.training = append(f.training, run)
	return "train-1", nil
}

type constPredictor string

func (c constPredictor) Predict(d []string) []string {
	out := make([]string, len(d))
	for i := range out {
		out[i] = string(c)
	}
	return out
}

// keywordPredictor labels rows containing "bus" as Transport and
// everything else as Food.
type keywordPredictor struct{}

func (keywordPredictor) Predict(d []string) []string {
	out := make([]string, len(d))
	for i, s := range d {
		out[i] = "Food"
		if strings.Contains(s, "bus") {
			out[i] = "Transport"
		}
	}
	return out
}

func TestEndToEnd_PreLabeledScenario(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "ledger.csv",
		"date,amount,description,category",
		"2024-01-05,-250,SWIGGY ORDER,Food",
		"2024-01-20,-300,SWIGGY ORDER,Food",
		"2024-02-01,-400,ZOMATO ORDER,Food",
	)
	artifact := filepath.Join(dir, "category.model")
	if _, err := Train(TrainOptions{
		Inputs:       []string{input},
		LabelColumn:  model.ColCategory,
		Classifier:   classifier.DefaultOptions(),
		ArtifactPath: artifact,
		Log:          zerolog.Nop(),
	}); err != nil {
		t.Fatalf("Train: %v", err)
	}
	m, err := classifier.Load(artifact)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	res, err := Run(context.Background(), Options{
		Inputs: []string{input},
		Model:  m,
		Log:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Predictions) != 3 {
		t.Fatalf("predictions = %d, want 3", len(res.Predictions))
	}
	for _, p := range res.Predictions {
		if p.Predicted != "Food" {
			t.Errorf("%q predicted %q, want Food", p.Description, p.Predicted)
		}
	}
	if len(res.Forecasts) != 1 {
		t.Fatalf("forecasts = %d, want 1", len(res.Forecasts))
	}
	fc := res.Forecasts[0]
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if fc.Category != "Food" || fc.Method != model.MethodSeasonal || fc.HistoryPoints != 3 {
		t.Errorf("forecast = %+v", fc)
	}
	if !fc.TargetDate.Equal(want) || fc.Predicted < 0 {
		t.Errorf("forecast = %v on %v, want >= 0 on 2024-03-02", fc.Predicted, fc.TargetDate)
	}
}

func TestRun_FiltersNarrowReportOnly(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "ledger.csv",
		"date,amount,description",
		"2024-01-01,100,food stall",
		"2024-01-02,120,food stall",
		"2024-01-05,30,bus ticket",
	)
	snapshot := filepath.Join(dir, forecast.SnapshotFile)
	rec := &fakeRecorder{}
	res, err := Run(context.Background(), Options{
		Inputs:       []string{input},
		Model:        keywordPredictor{},
		SnapshotPath: snapshot,
		Recorder:     rec,
		Since:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Category:     "food",
		Log:          zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Predictions) != 1 || res.Predictions[0].Predicted != "Food" {
		t.Errorf("report predictions = %+v, want the one Food row after the window start", res.Predictions)
	}
	if len(res.Forecasts) != 2 || res.Forecasts[1].Category != "Transport" {
		t.Errorf("forecasts = %+v, want Food and Transport", res.Forecasts)
	}
	if res.Forecasts[0].HistoryPoints != 2 {
		t.Errorf("Food history = %d, want the full 2 days", res.Forecasts[0].HistoryPoints)
	}

	snap, err := forecast.ReadSnapshot(snapshot)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Errorf("snapshot = %+v, want every category", snap)
	}
	if len(rec.points) != 1 || len(rec.points[0]) != 2 {
		t.Errorf("recorded points = %+v", rec.points)
	}
	if got := FilterForecasts(res.Forecasts, "FOOD"); len(got) != 1 || got[0].Category != "Food" {
		t.Errorf("FilterForecasts = %+v", got)
	}
}

func TestRun_LogsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "good.csv",
		"date,amount,description",
		"2024-01-01,10,rent",
	)
	writeCSV(t, dir, "broken.csv",
		"date,amount,description",
		`2024-01-02,10,bad "quote`,
	)

	var buf bytes.Buffer
	res, err := Run(context.Background(), Options{
		Inputs: []string{dir},
		Model:  constPredictor("Rent"),
		Log:    zerolog.New(&buf),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Load.FileErrors != 1 || len(res.Forecasts) != 1 {
		t.Errorf("FileErrors = %d, forecasts = %d", res.Load.FileErrors, len(res.Forecasts))
	}
	out := buf.String()
	if !strings.Contains(out, "some files could not be read") || !strings.Contains(out, `"files":1`) {
		t.Errorf("log = %s, want unreadable file warning", out)
	}
}

func TestEndToEnd_ThreeRowScenario(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "ledger.csv",
		"date,amount,type,description",
		"2024-01-01,120,Debit,Swiggy Order",
		"2024-01-15,80,Debit,Zomato lunch",
		"2024-02-01,200,Debit,Pizza night",
	)
	artifact := filepath.Join(dir, "models", "category.model")
	rec := &fakeRecorder{}

	trained, err := Train(TrainOptions{
		Inputs:       []string{input},
		Bootstrap:    labeler.New(labeler.DefaultRules()),
		Classifier:   classifier.DefaultOptions(),
		ArtifactPath: artifact,
		Recorder:     rec,
		Log:          zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if trained.RunID != "train-1" || len(rec.training) != 1 {
		t.Errorf("training run not recorded: %+v", rec.training)
	}

	m, err := classifier.Load(artifact)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	snapshot := filepath.Join(dir, "forecast", forecast.SnapshotFile)
	res, err := Run(context.Background(), Options{
		Inputs:       []string{input},
		Model:        m,
		SnapshotPath: snapshot,
		Recorder:     rec,
		Limits:       budget.DefaultLimits(),
		Log:          zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, p := range res.Predictions {
		if p.Predicted != "Food" {
			t.Errorf("%q predicted %q, want Food", p.Description, p.Predicted)
		}
	}
	if len(res.Forecasts) != 1 {
		t.Fatalf("forecasts = %d, want 1", len(res.Forecasts))
	}
	fc := res.Forecasts[0]
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if fc.Category != "Food" || fc.Method != model.MethodSeasonal || !fc.TargetDate.Equal(want) || fc.Predicted < 0 {
		t.Errorf("forecast = %+v", fc)
	}

	snap, err := forecast.ReadSnapshot(snapshot)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap) != 1 || snap[0].Category != "Food" {
		t.Errorf("snapshot = %+v", snap)
	}

	if res.RunID != "run-1" || len(rec.runs) != 1 || rec.runs[0].RowsAccepted != 3 {
		t.Errorf("forecast run not recorded: %+v", rec.runs)
	}
}

func TestTrain_MissingLabelColumn(t *testing.T) {
	input := writeCSV(t, t.TempDir(), "ledger.csv",
		"date,amount,description",
		"2024-01-01,120,Swiggy",
	)
	_, err := Train(TrainOptions{
		Inputs:       []string{input},
		LabelColumn:  labeler.LabelColumn,
		Classifier:   classifier.DefaultOptions(),
		ArtifactPath: filepath.Join(t.TempDir(), "m.model"),
		Log:          zerolog.Nop(),
	})
	if !errors.Is(err, classifier.ErrMissingColumn) {
		t.Errorf("err = %v, want ErrMissingColumn", err)
	}
}

func TestRun_NoModel(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); !errors.Is(err, ErrNoModel) {
		t.Errorf("err = %v, want ErrNoModel", err)
	}
}

func TestRun_RecorderFailureIsNotFatal(t *testing.T) {
	input := writeCSV(t, t.TempDir(), "ledger.csv",
		"date,amount,description",
		"2024-01-01,120,rent",
	)
	res, err := Run(context.Background(), Options{
		Inputs:   []string{input},
		Model:    constPredictor("Rent"),
		Recorder: &fakeRecorder{err: errors.New("disk full")},
		Log:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID != "" || len(res.Forecasts) != 1 || res.Forecasts[0].Predicted != 120 {
		t.Errorf("result = %+v", res)
	}
}

func TestLoad_DirectoryAndRejections(t *testing.T) {
	dir := t.TempDir()
	a := writeCSV(t, dir, "a.csv",
		"date,amount,description",
		"2024-01-01,10,one",
		"bad,10,two",
	)
	b := writeCSV(t, dir, "b.csv",
		"date,amount,description,note",
		"2024-01-02,x,three",
		"2024-01-03,30,four,hi",
	)
	old := time.Now().Add(-time.Hour)
	os.Chtimes(a, old, old)
	os.Chtimes(b, old.Add(time.Minute), old.Add(time.Minute))

	var calls int
	res, err := Load([]string{dir}, func(current, total int) { calls++ })
	if err != nil {
		t.Fatal(err)
	}
	if res.ParsedFiles != 2 || calls != 2 {
		t.Errorf("ParsedFiles = %d, progress calls = %d", res.ParsedFiles, calls)
	}
	if len(res.Rows) != 2 || res.Rows[0].Description != "one" || res.Rows[1].Description != "four" {
		t.Errorf("rows = %+v", res.Rows)
	}
	if len(res.Rejected) != 2 || res.Rejected[0].Source != a || res.Rejected[1].Source != b {
		t.Errorf("rejected = %+v", res.Rejected)
	}
	if !res.HasColumn("note") {
		t.Errorf("columns = %v, want note included", res.Columns)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load([]string{filepath.Join(t.TempDir(), "nope.csv")}, nil)
	if !errors.Is(err, source.ErrMissingFile) {
		t.Errorf("err = %v, want ErrMissingFile", err)
	}
	if _, err := Load([]string{t.TempDir()}, nil); !errors.Is(err, source.ErrNoInput) {
		t.Errorf("empty dir err = %v, want ErrNoInput", err)
	}
}

func pred(cat, date string, amount float64, credit bool) model.Prediction {
	d, _ := time.Parse("2006-01-02", date)
	amt := decimal.NewFromFloat(amount)
	return model.Prediction{
		Transaction: model.Transaction{
			Date: d, Month: d.Format("2006-01"), Amount: amt, AmountAbs: amt.Abs(), IsCredit: credit,
		},
		Predicted: cat,
	}
}

func TestAggregations(t *testing.T) {
	preds := []model.Prediction{
		pred("Food", "2024-01-01", 100, false),
		pred("Food", "2024-02-01", 50, false),
		pred("Transport", "2024-01-10", 50, false),
		pred("Income", "2024-01-31", -1000, true),
	}

	cats := AggregateCategories(preds)
	if len(cats) != 3 || cats[0].Category != "Income" || cats[1].Category != "Food" {
		t.Fatalf("categories = %+v", cats)
	}
	if cats[1].Total != 150 || cats[1].Transactions != 2 || cats[1].Average != 75 {
		t.Errorf("Food = %+v", cats[1])
	}

	months := AggregateMonths(preds)
	if len(months) != 2 || months[0].Month != "2024-01" || months[0].ByCategory["Transport"] != 50 {
		t.Errorf("months = %+v", months)
	}

	rows := make([]model.Transaction, len(preds))
	for i, p := range preds {
		rows[i] = p.Transaction
	}
	sum := Aggregate(rows)
	if sum.TotalSpend != 200 || sum.TotalCredits != 1000 || sum.ActiveDays != 4 {
		t.Errorf("summary = %+v", sum)
	}

	jan := FilterByTime(rows, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if len(jan) != 2 {
		t.Errorf("FilterByTime = %d rows, want 2", len(jan))
	}
	if got := FilterByCategory(preds, "foo"); len(got) != 2 {
		t.Errorf("FilterByCategory = %d, want 2", len(got))
	}
}

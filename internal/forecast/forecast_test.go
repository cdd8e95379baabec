package forecast

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func row(cat string, date time.Time, amount float64) Row {
	return Row{Category: cat, Date: date, Amount: decimal.NewFromFloat(amount)}
}

// daily builds one row per day starting at start, with values from fn.
func daily(cat string, start time.Time, n int, fn func(i int) float64) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = row(cat, start.AddDate(0, 0, i), fn(i))
	}
	return rows
}

func TestBuildSeries(t *testing.T) {
	rows := []Row{
		row("Food", day(2024, 1, 5), 10),
		row("Food", day(2024, 1, 1), 20),
		row("Food", day(2024, 1, 5), 5.5),
		row("Transport", time.Date(2024, 1, 2, 18, 30, 0, 0, time.UTC), 7),
	}
	series := BuildSeries(rows)

	if len(series) != 2 || series[0].Category != "Food" || series[1].Category != "Transport" {
		t.Fatalf("series = %+v", series)
	}
	food := series[0]
	if food.Len() != 2 {
		t.Fatalf("Food points = %d, want 2 (no zero-fill)", food.Len())
	}
	if !food.Points[0].Date.Equal(day(2024, 1, 1)) || food.Points[0].Total != 20 {
		t.Errorf("first point = %+v", food.Points[0])
	}
	if food.Last().Total != 15.5 {
		t.Errorf("2024-01-05 total = %v, want 15.5", food.Last().Total)
	}
	if !series[1].Points[0].Date.Equal(day(2024, 1, 2)) {
		t.Errorf("time of day not truncated: %v", series[1].Points[0].Date)
	}
}

func TestNaive_SingleDate(t *testing.T) {
	e := New(DefaultConfig())
	out, err := e.Run(context.Background(), []Row{row("Rent", day(2024, 1, 10), 500)})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("rows = %d, want 1", len(out))
	}
	fc := out[0]
	if fc.Predicted != 500 || !fc.TargetDate.Equal(day(2024, 2, 9)) {
		t.Errorf("forecast = %v on %v, want 500 on 2024-02-09", fc.Predicted, fc.TargetDate)
	}
	if fc.Method != model.MethodNaive || !fc.LowConfidence || fc.HistoryPoints != 1 {
		t.Errorf("forecast = %+v", fc)
	}
}

func TestSelect(t *testing.T) {
	e := New(DefaultConfig())
	one := Series{Points: []Point{{Date: day(2024, 1, 1), Total: 1}}}
	two := Series{Points: []Point{{Date: day(2024, 1, 1), Total: 1}, {Date: day(2024, 1, 2), Total: 2}}}

	if got := e.Select(one).Name(); got != model.MethodNaive {
		t.Errorf("1 point -> %s, want naive", got)
	}
	if got := e.Select(two).Name(); got != model.MethodSeasonal {
		t.Errorf("2 points -> %s, want seasonal", got)
	}
}

func TestSeasonal_ConstantSeries(t *testing.T) {
	rows := daily("Food", day(2024, 1, 1), 60, func(int) float64 { return 100 })
	out, err := New(DefaultConfig()).Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	fc := out[0]
	if fc.Method != model.MethodSeasonal {
		t.Fatalf("method = %s", fc.Method)
	}
	if math.Abs(fc.Predicted-100) > 2 {
		t.Errorf("constant series forecast = %v, want ~100", fc.Predicted)
	}
	if !fc.TargetDate.Equal(day(2024, 3, 30)) {
		t.Errorf("target = %v, want 2024-03-30", fc.TargetDate)
	}
	if fc.Lower > fc.Predicted || fc.Upper < fc.Predicted {
		t.Errorf("interval [%v, %v] excludes %v", fc.Lower, fc.Upper, fc.Predicted)
	}
}

func TestSeasonal_LinearTrend(t *testing.T) {
	rows := daily("Shopping", day(2024, 1, 1), 60, func(i int) float64 { return 10 + 2*float64(i) })
	out, err := New(DefaultConfig()).Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	want := 10 + 2*float64(59+30)
	if got := out[0].Predicted; math.Abs(got-want)/want > 0.05 {
		t.Errorf("linear forecast = %v, want ~%v", got, want)
	}
}

func TestSeasonal_ClampsAtZero(t *testing.T) {
	rows := daily("Travel", day(2024, 1, 1), 21, func(i int) float64 { return 300 - 10*float64(i) })
	out, err := New(DefaultConfig()).Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	fc := out[0]
	if fc.Predicted != 0 || fc.Lower != 0 || fc.Upper < 0 {
		t.Errorf("declining series forecast = %+v, want clamped to 0", fc)
	}
}

func TestRun_ThreeRowScenario(t *testing.T) {
	rows := []Row{
		row("Food", day(2024, 1, 1), 120),
		row("Food", day(2024, 1, 15), 80),
		row("Food", day(2024, 2, 1), 200),
	}
	out, err := New(DefaultConfig()).Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("rows = %d, want 1", len(out))
	}
	fc := out[0]
	if fc.Category != "Food" || fc.Method != model.MethodSeasonal {
		t.Errorf("forecast = %+v", fc)
	}
	if !fc.TargetDate.Equal(day(2024, 3, 2)) {
		t.Errorf("target = %v, want 2024-03-02", fc.TargetDate)
	}
	if fc.Predicted < 0 || math.IsNaN(fc.Predicted) {
		t.Errorf("predicted = %v", fc.Predicted)
	}
	// Three points leave no residual spread: no range, flagged.
	if !fc.LowConfidence || fc.HasInterval() || fc.Lower != fc.Predicted || fc.Upper != fc.Predicted {
		t.Errorf("three-point interval = [%v, %v] low=%v, want collapsed onto %v and flagged",
			fc.Lower, fc.Upper, fc.LowConfidence, fc.Predicted)
	}
}

func TestSeasonal_ShortDeclineExtrapolates(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{5, 1000 - 10*(4+30)},
		{10, 1000 - 10*(9+30)},
		{21, 1000 - 10*(20+30)},
	}
	for _, tt := range tests {
		rows := daily("Travel", day(2024, 1, 1), tt.n, func(i int) float64 { return 1000 - 10*float64(i) })
		out, err := New(DefaultConfig()).Run(context.Background(), rows)
		if err != nil {
			t.Fatal(err)
		}
		got := out[0].Predicted
		last := 1000 - 10*float64(tt.n-1)
		if got >= last {
			t.Errorf("n=%d: forecast %v rebounds above last observation %v", tt.n, got, last)
		}
		if math.Abs(got-tt.want)/tt.want > 0.05 {
			t.Errorf("n=%d: forecast = %v, want ~%v", tt.n, got, tt.want)
		}
	}
}

func TestSeasonal_Periodic(t *testing.T) {
	wave := func(d time.Time) float64 {
		return 100 + 40*math.Sin(2*math.Pi*epochDays(d)/30.5)
	}
	start := day(2024, 1, 1)
	rows := daily("Groceries", start, 120, func(i int) float64 { return wave(start.AddDate(0, 0, i)) })
	out, err := New(DefaultConfig()).Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	fc := out[0]
	if want := wave(fc.TargetDate); math.Abs(fc.Predicted-want) > 5 {
		t.Errorf("periodic forecast = %v, want ~%v", fc.Predicted, want)
	}
}

func TestSeasonal_NoisyInterval(t *testing.T) {
	rows := daily("Food", day(2024, 1, 1), 40, func(i int) float64 {
		if i%2 == 0 {
			return 110
		}
		return 90
	})
	out, err := New(DefaultConfig()).Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	fc := out[0]
	if fc.LowConfidence || !fc.HasInterval() {
		t.Fatalf("forecast = %+v, want a range", fc)
	}
	if fc.Upper-fc.Lower < 10 || fc.Lower > fc.Predicted || fc.Upper < fc.Predicted {
		t.Errorf("interval [%v, %v] around %v too narrow for +/-10 noise", fc.Lower, fc.Upper, fc.Predicted)
	}
}

func TestSeasonalOrder(t *testing.T) {
	m := DefaultSeasonal()
	tests := []struct {
		n    int
		span float64
		want int
	}{
		{5, 4, 0},
		{60, 59, 0},
		{61, 61, 5},
		{12, 90, 3},
		{365, 364, 5},
	}
	for _, tt := range tests {
		if got := m.order(tt.n, tt.span); got != tt.want {
			t.Errorf("order(%d, %v) = %d, want %d", tt.n, tt.span, got, tt.want)
		}
	}
}

func TestRun_OneRowPerCategory(t *testing.T) {
	var rows []Row
	rows = append(rows, daily("Food", day(2024, 1, 1), 40, func(i int) float64 { return float64(50 + i%7) })...)
	rows = append(rows, daily("Transport", day(2024, 1, 3), 3, func(int) float64 { return 20 })...)
	rows = append(rows, row("Utilities", day(2024, 1, 20), 900))

	cfg := DefaultConfig()
	cfg.Workers = 2
	out, err := New(cfg).Run(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Food", "Transport", "Utilities"}
	if len(out) != len(want) {
		t.Fatalf("rows = %d, want %d", len(out), len(want))
	}
	for i, fc := range out {
		if fc.Category != want[i] {
			t.Errorf("row %d category = %s, want %s", i, fc.Category, want[i])
		}
		if fc.Predicted < 0 || fc.Lower < 0 || fc.Upper < 0 {
			t.Errorf("%s has negative amounts: %+v", fc.Category, fc)
		}
	}
	if out[2].Method != model.MethodNaive {
		t.Errorf("single-date category used %s", out[2].Method)
	}
}

func TestRun_Empty(t *testing.T) {
	out, err := New(DefaultConfig()).Run(context.Background(), nil)
	if err != nil || len(out) != 0 {
		t.Errorf("empty run = %v, %v", out, err)
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultConfig()).Run(ctx, []Row{row("Food", day(2024, 1, 1), 1)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := SnapshotPath(t.TempDir())
	table := []model.Forecast{
		{Category: "Food", TargetDate: day(2024, 3, 2), Predicted: 123.456},
		{Category: "Rent", TargetDate: day(2024, 2, 9), Predicted: 500},
	}
	if err := WriteSnapshot(path, table); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	// A second write replaces the first.
	if err := WriteSnapshot(path, table); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[0].Predicted != 123.46 || !got[0].TargetDate.Equal(day(2024, 3, 2)) {
		t.Errorf("row 0 = %+v", got[0])
	}
	if filepath.Base(path) != SnapshotFile {
		t.Errorf("snapshot name = %s", filepath.Base(path))
	}
}

func BenchmarkRun(b *testing.B) {
	var rows []Row
	for _, cat := range []string{"Food", "Shopping", "Transport", "Utilities", "Entertainment"} {
		rows = append(rows, daily(cat, day(2023, 1, 1), 365, func(i int) float64 { return float64(100 + i%31) })...)
	}
	e := New(DefaultConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Run(context.Background(), rows); err != nil {
			b.Fatal(err)
		}
	}
}

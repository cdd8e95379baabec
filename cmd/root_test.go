package cmd

import (
	"testing"
	"time"

	"github.com/theirongolddev/spendcast/internal/model"
)

func TestTimeWindow(t *testing.T) {
	defer func() { flagSince, flagUntil = "", "" }()

	flagSince, flagUntil = "2024-01-01", "2024-01-31"
	since, until, err := timeWindow()
	if err != nil {
		t.Fatal(err)
	}
	if !since.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !until.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window = %v..%v", since, until)
	}

	flagSince, flagUntil = "2024-02-01", "2024-01-01"
	if _, _, err := timeWindow(); err == nil {
		t.Error("expected error for until before since")
	}

	flagSince, flagUntil = "garbage", ""
	if _, _, err := timeWindow(); err == nil {
		t.Error("expected parse error")
	}
}

func TestWithPredictions(t *testing.T) {
	preds := []model.Prediction{{
		Transaction: model.Transaction{Description: "Swiggy", Extra: map[string]string{"note": "x"}},
		Predicted:   "Food",
	}}
	rows := withPredictions(preds)
	if rows[0].Extra[predictedColumn] != "Food" || rows[0].Extra["note"] != "x" {
		t.Errorf("Extra = %v", rows[0].Extra)
	}
	if _, ok := preds[0].Extra[predictedColumn]; ok {
		t.Error("input Extra map was mutated")
	}
}

func TestValidAmount(t *testing.T) {
	for _, ok := range []string{"", "0", "2500", " 12.5 "} {
		if err := validAmount(ok); err != nil {
			t.Errorf("validAmount(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"-1", "abc"} {
		if validAmount(bad) == nil {
			t.Errorf("validAmount(%q) accepted", bad)
		}
	}
}

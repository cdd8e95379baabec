package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/spendcast/internal/budget"
	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/model"
)

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{RowsAccepted: 10, Categories: 2, TotalPredicted: 1000.5, Alerts: 1}
	curr := Snapshot{RowsAccepted: 14, Categories: 3, TotalPredicted: 1300.1, Alerts: 1}

	delta := diffSnapshots(prev, curr)
	if delta.RowsAccepted != 4 {
		t.Fatalf("RowsAccepted delta = %d, want 4", delta.RowsAccepted)
	}
	if delta.Categories != 1 {
		t.Fatalf("Categories delta = %d, want 1", delta.Categories)
	}
	if math.Abs(delta.TotalPredicted-299.6) > 1e-9 {
		t.Fatalf("TotalPredicted delta = %.2f, want 299.60", delta.TotalPredicted)
	}
	if delta.Alerts != 0 {
		t.Fatalf("Alerts delta = %d, want 0", delta.Alerts)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots should give a zero delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{
		Interval:     10 * time.Second,
		EventsBuffer: 2,
	})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

// fixture trains a two-class model and drops one export into the inbox.
func fixture(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()

	var samples []classifier.Sample
	for i := 0; i < 10; i++ {
		samples = append(samples,
			classifier.Sample{Text: "swiggy food order", Label: "Food"},
			classifier.Sample{Text: "uber cab ride", Label: "Transport"},
		)
	}
	m, _, err := classifier.Train(samples, classifier.DefaultOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	modelPath := filepath.Join(dir, "models", "category.model")
	if err := classifier.Save(modelPath, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	inbox := filepath.Join(dir, "inbox")
	if err := os.MkdirAll(inbox, 0o750); err != nil {
		t.Fatal(err)
	}
	csv := strings.Join([]string{
		"date,amount,description",
		"2024-01-02,300,Swiggy Food Order",
		"2024-01-02,200,Uber cab ride",
		"2024-01-03,not-a-number,Swiggy",
	}, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(inbox, "export.csv"), []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	return New(Config{
		ModelPath:    modelPath,
		InboxDir:     inbox,
		SnapshotPath: filepath.Join(dir, "forecast", "forecast_all_categories.csv"),
		Limits:       budget.Limits{Categories: map[string]float64{"Food": 100}},
		Interval:     10 * time.Second,
		Log:          zerolog.Nop(),
	})
}

func countEvents(s *Service, typ string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestPollOnce_ForecastsInbox(t *testing.T) {
	s := fixture(t)
	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	if st.LastError != "" {
		t.Fatalf("LastError = %q", st.LastError)
	}
	if !st.Model.Loaded || st.Model.Backend != classifier.BackendLogReg {
		t.Errorf("Model = %+v", st.Model)
	}
	if st.Summary.RowsAccepted != 2 || st.Summary.RowsRejected != 1 || st.Summary.Categories != 2 {
		t.Errorf("Summary = %+v", st.Summary)
	}
	if st.Summary.Alerts != 1 {
		t.Errorf("Alerts = %d, want 1 (Food over 100)", st.Summary.Alerts)
	}
	if _, err := os.Stat(s.cfg.SnapshotPath); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}

	if countEvents(s, EventModelLoaded) != 1 || countEvents(s, EventForecast) != 1 || countEvents(s, EventBudgetAlert) != 1 {
		t.Errorf("events = %+v", s.events)
	}

	// Nothing changed: no new forecast run.
	s.pollOnce(context.Background())
	if countEvents(s, EventForecast) != 1 {
		t.Errorf("unchanged inbox produced another forecast event")
	}
	if s.snapshotStatus().PollCount != 2 {
		t.Errorf("PollCount = %d, want 2", s.snapshotStatus().PollCount)
	}
}

func TestPollOnce_MissingModel(t *testing.T) {
	s := New(Config{
		ModelPath: filepath.Join(t.TempDir(), "missing.model"),
		InboxDir:  t.TempDir(),
		Log:       zerolog.Nop(),
	})
	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	if st.LastError == "" || st.Model.Loaded {
		t.Errorf("status = %+v, want error and no model", st)
	}
}

func TestHandlers(t *testing.T) {
	s := fixture(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// Before the first poll there is no forecast and no model.
	resp, err := http.Get(srv.URL + "/v1/forecast")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("forecast before poll = %d, want 503", resp.StatusCode)
	}

	s.pollOnce(context.Background())

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/forecast")
	if err != nil {
		t.Fatal(err)
	}
	var fr ForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(fr.Forecasts) != 2 {
		t.Fatalf("forecasts = %+v", fr.Forecasts)
	}
	for _, f := range fr.Forecasts {
		if f.Predicted < 0 || f.Method != model.MethodNaive {
			t.Errorf("forecast = %+v", f)
		}
	}

	body, _ := json.Marshal(PredictRequest{Descriptions: []string{"UBER  Cab-ride!", "swiggy"}})
	resp, err = http.Post(srv.URL+"/v1/predict", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	var pr PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(pr.Predictions) != 2 {
		t.Fatalf("predictions = %+v", pr.Predictions)
	}
	if pr.Predictions[0].DescClean != "uber cab ride" || pr.Predictions[0].Category != "Transport" {
		t.Errorf("prediction[0] = %+v", pr.Predictions[0])
	}
	if pr.Predictions[1].Category != "Food" {
		t.Errorf("prediction[1] = %+v", pr.Predictions[1])
	}

	resp, err = http.Post(srv.URL+"/v1/predict", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/predict")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET predict = %d, want 405", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/events")
	if err != nil {
		t.Fatal(err)
	}
	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(events) != 3 {
		t.Errorf("events = %d, want 3", len(events))
	}
}

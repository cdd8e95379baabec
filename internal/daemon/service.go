// Package daemon provides the long-running serve phase: it keeps the
// trained model loaded, re-forecasts when a new export lands in the inbox
// and exposes the results over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/theirongolddev/spendcast/internal/budget"
	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/source"
)

// Event types.
const (
	EventModelLoaded = "model_loaded"
	EventForecast    = "forecast"
	EventBudgetAlert = "budget_alert"
)

// maxPredictBatch bounds POST /v1/predict request size.
const maxPredictBatch = 1000

// Config controls the daemon runtime behavior.
type Config struct {
	ModelPath    string
	InboxDir     string
	SnapshotPath string
	Engine       *forecast.Engine
	Limits       budget.Limits
	Recorder     pipeline.ForecastRecorder
	MaxModelAge  time.Duration
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Log          zerolog.Logger
}

// Snapshot is a compact forecast state for status/event payloads.
type Snapshot struct {
	At             time.Time `json:"at"`
	Input          string    `json:"input,omitempty"`
	RowsAccepted   int       `json:"rows_accepted"`
	RowsRejected   int       `json:"rows_rejected"`
	Categories     int       `json:"categories"`
	TotalPredicted float64   `json:"total_predicted"`
	Alerts         int       `json:"alerts"`
	RunID          string    `json:"run_id,omitempty"`
}

// Delta captures snapshot deltas between runs.
type Delta struct {
	RowsAccepted   int     `json:"rows_accepted"`
	Categories     int     `json:"categories"`
	TotalPredicted float64 `json:"total_predicted"`
	Alerts         int     `json:"alerts"`
}

func (d Delta) isZero() bool {
	return d.RowsAccepted == 0 &&
		d.Categories == 0 &&
		d.TotalPredicted == 0 &&
		d.Alerts == 0
}

// Event is emitted when the model reloads or a forecast run completes.
type Event struct {
	ID        int64              `json:"id"`
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Snapshot  Snapshot           `json:"snapshot"`
	Delta     Delta              `json:"delta"`
	Alert     *model.BudgetAlert `json:"alert,omitempty"`
	Model     *classifier.Meta   `json:"model,omitempty"`
}

// ModelStatus describes the loaded artifact.
type ModelStatus struct {
	Loaded    bool      `json:"loaded"`
	Backend   string    `json:"backend,omitempty"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
	Classes   []string  `json:"classes,omitempty"`
	Stale     bool      `json:"stale"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time   `json:"started_at"`
	LastPollAt      time.Time   `json:"last_poll_at"`
	PollIntervalSec int         `json:"poll_interval_sec"`
	PollCount       int64       `json:"poll_count"`
	InboxDir        string      `json:"inbox_dir"`
	Model           ModelStatus `json:"model"`
	Summary         Snapshot    `json:"summary"`
	LastError       string      `json:"last_error,omitempty"`
	EventCount      int         `json:"event_count"`
	SubscriberCount int         `json:"subscriber_count"`
}

// ForecastResponse is served at /v1/forecast.
type ForecastResponse struct {
	At        time.Time          `json:"at"`
	Forecasts []model.Forecast   `json:"forecasts"`
	Budget    model.BudgetReport `json:"budget"`
}

// PredictRequest is the body of POST /v1/predict.
type PredictRequest struct {
	Descriptions []string `json:"descriptions"`
}

// Prediction is one labeled description in a PredictResponse.
type Prediction struct {
	Description string  `json:"description"`
	DescClean   string  `json:"desc_clean"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
}

// PredictResponse is returned by POST /v1/predict.
type PredictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

type inputState struct {
	path    string
	modTime time.Time
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config
	log zerolog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	model       *classifier.Model
	modelMod    int64
	lastInput   inputState
	hasSnapshot bool
	snapshot    Snapshot
	forecasts   []model.Forecast
	report      model.BudgetReport
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 10 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Engine == nil {
		cfg.Engine = forecast.New(forecast.DefaultConfig())
	}

	return &Service{
		cfg:       cfg,
		log:       cfg.Log.With().Str("component", "daemon").Logger(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP routes.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	return r
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial state so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce reloads the model when the artifact changed, then re-runs the
// pipeline when the newest inbox CSV changed or the model was reloaded.
func (s *Service) pollOnce(ctx context.Context) {
	reloaded, err := s.reloadModel()
	if err != nil {
		s.fail(err)
		return
	}

	latest, err := source.LatestCSV(s.cfg.InboxDir)
	if errors.Is(err, source.ErrNoInput) {
		s.touch()
		return
	}
	if err != nil {
		s.fail(err)
		return
	}

	s.mu.RLock()
	m := s.model
	unchanged := s.lastInput.path == latest.Path && s.lastInput.modTime.Equal(latest.ModTime)
	s.mu.RUnlock()
	if unchanged && !reloaded {
		s.touch()
		return
	}

	res, err := pipeline.Run(ctx, pipeline.Options{
		Inputs:       []string{latest.Path},
		Model:        m,
		Engine:       s.cfg.Engine,
		SnapshotPath: s.cfg.SnapshotPath,
		Recorder:     s.cfg.Recorder,
		Limits:       s.cfg.Limits,
		Log:          s.log,
	})
	if err != nil {
		s.fail(fmt.Errorf("forecasting %s: %w", latest.Path, err))
		return
	}

	now := time.Now()
	snap := snapshotFromRun(res, latest.Path, now)

	var pending []Event
	s.mu.Lock()
	prev, prevExists := s.snapshot, s.hasSnapshot
	s.hasSnapshot = true
	s.snapshot = snap
	s.forecasts = res.Forecasts
	s.report = res.Budget
	s.lastInput = inputState{path: latest.Path, modTime: latest.ModTime}
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	delta := diffSnapshots(prev, snap)
	if !prevExists || !delta.isZero() {
		s.nextEventID++
		pending = append(pending, Event{
			ID:        s.nextEventID,
			Type:      EventForecast,
			Timestamp: now,
			Snapshot:  snap,
			Delta:     delta,
		})
	}
	for i := range res.Budget.Alerts {
		s.nextEventID++
		pending = append(pending, Event{
			ID:        s.nextEventID,
			Type:      EventBudgetAlert,
			Timestamp: now,
			Snapshot:  snap,
			Alert:     &res.Budget.Alerts[i],
		})
	}
	s.mu.Unlock()

	for _, ev := range pending {
		s.publishEvent(ev)
	}
}

// reloadModel loads the artifact when its modification time changed.
func (s *Service) reloadModel() (bool, error) {
	mod, err := classifier.Modified(s.cfg.ModelPath)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	same := s.model != nil && s.modelMod == mod
	s.mu.RUnlock()
	if same {
		return false, nil
	}

	m, err := classifier.Load(s.cfg.ModelPath)
	if err != nil {
		return false, err
	}
	if m.Stale(s.cfg.MaxModelAge, time.Now()) {
		s.log.Warn().
			Time("trained_at", m.Meta.TrainedAt).
			Dur("max_age", s.cfg.MaxModelAge).
			Msg("model is stale; retrain with `spendcast train`")
	}
	s.log.Info().
		Str("backend", m.Meta.Backend).
		Int("classes", len(m.Meta.Classes)).
		Msg("model loaded")

	s.mu.Lock()
	s.model = m
	s.modelMod = mod
	s.nextEventID++
	meta := m.Meta
	ev := Event{
		ID:        s.nextEventID,
		Type:      EventModelLoaded,
		Timestamp: time.Now(),
		Snapshot:  s.snapshot,
		Model:     &meta,
	}
	s.mu.Unlock()

	s.publishEvent(ev)
	return true, nil
}

func (s *Service) fail(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.mu.Unlock()
	s.log.Error().Err(err).Msg("poll failed")
}

func (s *Service) touch() {
	s.mu.Lock()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.lastError = ""
	s.mu.Unlock()
}

func snapshotFromRun(res *pipeline.RunResult, input string, at time.Time) Snapshot {
	snap := Snapshot{
		At:           at,
		Input:        input,
		RowsAccepted: len(res.Load.Rows),
		RowsRejected: len(res.Load.Rejected),
		Categories:   len(res.Forecasts),
		Alerts:       len(res.Budget.Alerts),
		RunID:        res.RunID,
	}
	for _, f := range res.Forecasts {
		snap.TotalPredicted += f.Predicted
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		RowsAccepted:   curr.RowsAccepted - prev.RowsAccepted,
		Categories:     curr.Categories - prev.Categories,
		TotalPredicted: curr.TotalPredicted - prev.TotalPredicted,
		Alerts:         curr.Alerts - prev.Alerts,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		InboxDir:        s.cfg.InboxDir,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if s.model != nil {
		st.Model = ModelStatus{
			Loaded:    true,
			Backend:   s.model.Meta.Backend,
			TrainedAt: s.model.Meta.TrainedAt,
			Classes:   s.model.Meta.Classes,
			Stale:     s.model.Stale(s.cfg.MaxModelAge, time.Now()),
		}
	}
	return st
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleForecast(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	resp := ForecastResponse{
		At:        s.snapshot.At,
		Forecasts: append([]model.Forecast(nil), s.forecasts...),
		Budget:    s.report,
	}
	ready := s.hasSnapshot
	s.mu.RUnlock()

	if !ready {
		http.Error(w, "no forecast yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Descriptions) > maxPredictBatch {
		http.Error(w, fmt.Sprintf("at most %d descriptions per request", maxPredictBatch), http.StatusRequestEntityTooLarge)
		return
	}

	s.mu.RLock()
	m := s.model
	s.mu.RUnlock()
	if m == nil {
		http.Error(w, "no model loaded", http.StatusServiceUnavailable)
		return
	}

	clean := make([]string, len(req.Descriptions))
	for i, d := range req.Descriptions {
		clean[i] = source.NormalizeDescription(d)
	}
	scored := m.PredictScored(clean)

	resp := PredictResponse{Predictions: make([]Prediction, len(scored))}
	for i, sc := range scored {
		resp.Predictions[i] = Prediction{
			Description: req.Descriptions[i],
			DescClean:   clean[i],
			Category:    sc.Label,
			Confidence:  sc.Confidence,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

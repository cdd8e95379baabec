// Package store keeps a SQLite history of training and forecast runs.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/spendcast/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// tsLayout is fixed-width so timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store is the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	if err := migrateUp(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTrainingRun records a training run, assigning an ID when empty.
func (s *Store) SaveTrainingRun(run model.TrainingRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO training_runs
		(id, trained_at, artifact_path, backend, schema_version, samples,
		 train_size, test_size, accuracy, macro_f1, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TrainedAt.UTC().Format(tsLayout), run.ArtifactPath, run.Backend,
		run.SchemaVersion, run.Samples, run.TrainSize, run.TestSize,
		run.Accuracy, run.MacroF1, run.Checksum,
	)
	if err != nil {
		return "", fmt.Errorf("saving training run: %w", err)
	}
	return run.ID, nil
}

// LatestTrainingRun returns the most recent training run, or nil if none.
func (s *Store) LatestTrainingRun() (*model.TrainingRun, error) {
	row := s.db.QueryRow(`SELECT id, trained_at, artifact_path, backend, schema_version,
		samples, train_size, test_size, accuracy, macro_f1, checksum
		FROM training_runs ORDER BY trained_at DESC LIMIT 1`)

	var run model.TrainingRun
	var trainedAt string
	err := row.Scan(&run.ID, &trainedAt, &run.ArtifactPath, &run.Backend, &run.SchemaVersion,
		&run.Samples, &run.TrainSize, &run.TestSize, &run.Accuracy, &run.MacroF1, &run.Checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading training run: %w", err)
	}
	run.TrainedAt, _ = time.Parse(tsLayout, trainedAt)
	return &run, nil
}

// SaveForecastRun stores a run and its per-category points in one
// transaction, assigning a run ID when empty.
func (s *Store) SaveForecastRun(run model.ForecastRun, points []model.Forecast) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT OR REPLACE INTO forecast_runs
		(id, created_at, input_path, rows_accepted, rows_rejected, categories, total_predicted)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(tsLayout), run.InputPath,
		run.RowsAccepted, run.RowsRejected, run.Categories, run.TotalPredicted,
	)
	if err != nil {
		return "", fmt.Errorf("inserting forecast run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO forecast_points
		(run_id, category, target_date, predicted, lower_bound, upper_bound,
		 method, history_points, low_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range points {
		if _, err := stmt.Exec(run.ID, p.Category, p.TargetDate.Format("2006-01-02"),
			p.Predicted, p.Lower, p.Upper, p.Method, p.HistoryPoints, boolToInt(p.LowConfidence),
		); err != nil {
			return "", fmt.Errorf("inserting forecast point %s: %w", p.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// ListForecastRuns returns the most recent runs, newest first.
func (s *Store) ListForecastRuns(limit int) ([]model.ForecastRun, error) {
	rows, err := s.db.Query(`SELECT id, created_at, input_path, rows_accepted, rows_rejected,
		categories, total_predicted
		FROM forecast_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []model.ForecastRun
	for rows.Next() {
		var r model.ForecastRun
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.InputPath, &r.RowsAccepted, &r.RowsRejected,
			&r.Categories, &r.TotalPredicted); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ForecastPoints returns the points of one run, sorted by category.
func (s *Store) ForecastPoints(runID string) ([]model.Forecast, error) {
	rows, err := s.db.Query(`SELECT category, target_date, predicted, lower_bound, upper_bound,
		method, history_points, low_confidence
		FROM forecast_points WHERE run_id = ? ORDER BY category`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanPoints(rows)
}

// CategoryHistory returns the predictions made for one category across the
// most recent runs, oldest first.
func (s *Store) CategoryHistory(category string, limit int) ([]model.Forecast, error) {
	rows, err := s.db.Query(`SELECT category, target_date, predicted, lower_bound, upper_bound,
		method, history_points, low_confidence FROM (
			SELECT p.*, r.created_at FROM forecast_points p
			JOIN forecast_runs r ON r.id = p.run_id
			WHERE p.category = ?
			ORDER BY r.created_at DESC LIMIT ?
		) ORDER BY created_at ASC`, category, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanPoints(rows)
}

func scanPoints(rows *sql.Rows) ([]model.Forecast, error) {
	var out []model.Forecast
	for rows.Next() {
		var f model.Forecast
		var target string
		var low int
		if err := rows.Scan(&f.Category, &target, &f.Predicted, &f.Lower, &f.Upper,
			&f.Method, &f.HistoryPoints, &low); err != nil {
			return nil, err
		}
		f.TargetDate, _ = time.Parse("2006-01-02", target)
		f.LowConfidence = low != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/theirongolddev/spendcast/internal/model"
)

// SnapshotFile is the fixed name of the forecast snapshot.
const SnapshotFile = "forecast_all_categories.csv"

var snapshotHeader = []string{"category", "target_date", "predicted_amount"}

// SnapshotPath returns the snapshot location under a data directory.
func SnapshotPath(dataDir string) string {
	return filepath.Join(dataDir, "forecast", SnapshotFile)
}

// WriteSnapshot overwrites path with the forecast table.
func WriteSnapshot(path string, table []model.Forecast) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write(snapshotHeader)
	for _, fc := range table {
		w.Write([]string{
			fc.Category,
			fc.TargetDate.Format("2006-01-02"),
			strconv.FormatFloat(fc.Predicted, 'f', 2, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return f.Close()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) ([]model.Forecast, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	if len(header) < len(snapshotHeader) || header[0] != snapshotHeader[0] {
		return nil, fmt.Errorf("snapshot %s: unexpected header %v", path, header)
	}

	var out []model.Forecast
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot line %d: %w", line, err)
		}
		date, err := time.Parse("2006-01-02", rec[1])
		if err != nil {
			return nil, fmt.Errorf("snapshot line %d: %w", line, err)
		}
		amount, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot line %d: %w", line, err)
		}
		out = append(out, model.Forecast{Category: rec[0], TargetDate: date, Predicted: amount})
	}
	return out, nil
}

package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteCSV writes t with its header row. Null cells are written empty.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			rec[i] = row[col]
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile overwrites path with t, creating parent directories.
func WriteCSVFile(path string, t Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

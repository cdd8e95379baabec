package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingFile is returned when an input CSV does not exist.
var ErrMissingFile = errors.New("source: input file not found")

// NormalizeHeader trims and lowercases a column name.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// ReadCSV parses a CSV stream into a Table. Header names are normalized;
// duplicate columns keep their first occurrence. Short records are
// tolerated and their missing cells read as null.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, nil
		}
		return Table{}, fmt.Errorf("reading header: %w", err)
	}

	var t Table
	index := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		index[i] = name
		t.Columns = append(t.Columns, name)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t, fmt.Errorf("reading record %d: %w", len(t.Rows)+1, err)
		}

		row := make(RawRow, len(t.Columns))
		for i, cell := range rec {
			if i >= len(index) || index[i] == "" {
				continue
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row[index[i]] = cell
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Table{}, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

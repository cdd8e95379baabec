package source

import (
	"slices"
	"time"

	"github.com/theirongolddev/spendcast/internal/model"
)

// RawRow is one CSV record keyed by normalized header. A missing key is a
// null cell: either the column is absent or the cell was empty.
type RawRow map[string]string

// Table is a parsed CSV file with normalized headers.
type Table struct {
	Columns []string // trimmed, lowercased, in file order
	Rows    []RawRow
}

// HasColumn reports whether the header carried the named column.
func (t Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Result is the partitioned outcome of preprocessing: rows that parsed
// cleanly and rows that were dropped, with the reason for each drop.
type Result struct {
	Columns  []string
	Rows     []model.Transaction
	Rejected []model.Rejection
}

// HasColumn reports whether the source header carried the named column.
func (r Result) HasColumn(name string) bool {
	return slices.Contains(r.Columns, name)
}

// DiscoveredFile is a CSV file found in a drop-in directory.
type DiscoveredFile struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

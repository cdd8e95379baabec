package config

import (
	"path/filepath"

	"github.com/theirongolddev/spendcast/internal/forecast"
)

// Paths locates every file spendcast reads or writes under a data directory.
type Paths struct {
	DataDir  string
	Model    string
	Store    string
	Snapshot string
	Inbox    string
}

// ResolvePaths derives file locations. Precedence for the data directory is
// flag, then config, then the XDG default.
func ResolvePaths(cfg Config, flagDataDir string) Paths {
	dir := flagDataDir
	if dir == "" {
		dir = cfg.General.DataDir
	}
	if dir == "" {
		dir = DefaultDataDir()
	}

	inbox := cfg.Daemon.InboxDir
	if inbox == "" {
		inbox = filepath.Join(dir, "inbox")
	}

	return Paths{
		DataDir:  dir,
		Model:    filepath.Join(dir, "models", "category.model"),
		Store:    filepath.Join(dir, "spendcast.db"),
		Snapshot: forecast.SnapshotPath(dir),
		Inbox:    inbox,
	}
}

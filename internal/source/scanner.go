package source

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoInput is returned when a drop-in directory holds no CSV files.
var ErrNoInput = errors.New("source: no csv files found")

// ScanDir walks dir and returns every .csv file, newest first.
// A missing directory yields no files and no error.
func ScanDir(dir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") || strings.HasPrefix(name, ".") {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished between readdir and stat
		}
		files = append(files, DiscoveredFile{
			Path:    path,
			Name:    name,
			ModTime: fi.ModTime(),
			Size:    fi.Size(),
		})
		return nil
	})

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Path > files[j].Path
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, err
}

// LatestCSV returns the most recently modified CSV under dir.
func LatestCSV(dir string) (DiscoveredFile, error) {
	files, err := ScanDir(dir)
	if err != nil {
		return DiscoveredFile{}, err
	}
	if len(files) == 0 {
		return DiscoveredFile{}, ErrNoInput
	}
	return files[0], nil
}

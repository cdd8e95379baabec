// Package pipeline orchestrates loading, classification, aggregation and
// forecasting of transaction data.
package pipeline

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/spendcast/internal/source"
)

// LoadResult holds the output of loading one or more input CSVs.
type LoadResult struct {
	source.Result
	Files       []string
	ParsedFiles int
	FileErrors  int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

type fileResult struct {
	res source.Result
	err error
}

// Load reads and preprocesses every input. An input may be a CSV file or a
// directory, which contributes every CSV beneath it. Files are parsed by a
// bounded worker pool; rows keep input order. Load fails only when no file
// could be read.
func Load(inputs []string, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := expandInputs(inputs)
	if err != nil {
		return nil, err
	}
	result := &LoadResult{Files: files}
	if len(files) == 0 {
		return result, fmt.Errorf("%w: %v", source.ErrNoInput, inputs)
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]fileResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = loadFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	var firstErr error
	seenCols := make(map[string]bool)
	for i, fr := range results {
		if fr.err != nil {
			result.FileErrors++
			if firstErr == nil {
				firstErr = fr.err
			}
			continue
		}
		result.ParsedFiles++
		for _, c := range fr.res.Columns {
			if !seenCols[c] {
				seenCols[c] = true
				result.Columns = append(result.Columns, c)
			}
		}
		result.Rows = append(result.Rows, fr.res.Rows...)
		for _, rej := range fr.res.Rejected {
			rej.Source = files[i]
			result.Rejected = append(result.Rejected, rej)
		}
	}

	if result.ParsedFiles == 0 {
		return result, firstErr
	}
	return result, nil
}

func loadFile(path string) fileResult {
	t, err := source.ReadCSVFile(path)
	if err != nil {
		return fileResult{err: err}
	}
	return fileResult{res: source.Preprocess(t)}
}

func expandInputs(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", source.ErrMissingFile, in)
			}
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}
		found, err := source.ScanDir(in)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", in, err)
		}
		// ScanDir is newest first; load oldest first so later exports
		// append after earlier ones.
		for i := len(found) - 1; i >= 0; i-- {
			files = append(files, found[i].Path)
		}
	}
	return files, nil
}

package classifier

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SchemaVersion is bumped whenever the encoded model layout changes.
const SchemaVersion = 1

const magic = "spendcast-model v"

var (
	ErrArtifactMissing = errors.New("classifier: model artifact not found")
	ErrArtifactVersion = errors.New("classifier: incompatible model artifact")
)

// artifact is the gob payload following the header line.
type artifact struct {
	Meta   Meta
	Vocab  []string
	IDF    []float64
	LogReg *LogReg
	Bayes  []byte
}

// Save writes the model to path as a header line followed by a gob payload.
func Save(path string, m *Model) error {
	a := artifact{
		Meta:   m.Meta,
		Vocab:  m.Vectorizer.Vocab,
		IDF:    m.Vectorizer.IDF,
		LogReg: m.LogReg,
	}
	if m.bayes != nil {
		data, err := encodeBayes(m.bayes)
		if err != nil {
			return err
		}
		a.Bayes = data
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating model dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating model file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s%d\n", magic, SchemaVersion)
	if err := gob.NewEncoder(w).Encode(&a); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing model: %w", err)
	}
	return f.Close()
}

// Load reads a model written by Save. A missing file yields
// ErrArtifactMissing; a foreign or outdated file yields ErrArtifactVersion.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := r.ReadString('\n')
	if err != nil || !strings.HasPrefix(header, magic) {
		return nil, fmt.Errorf("%w: %s is not a model file", ErrArtifactVersion, path)
	}
	version, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, magic)))
	if err != nil || version != SchemaVersion {
		return nil, fmt.Errorf("%w: %s has schema %q, want %d (retrain the model)",
			ErrArtifactVersion, path, strings.TrimSpace(header), SchemaVersion)
	}

	var a artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrArtifactVersion, path, err)
	}

	m := &Model{
		Meta:       a.Meta,
		Vectorizer: &Vectorizer{Vocab: a.Vocab, IDF: a.IDF},
		LogReg:     a.LogReg,
	}
	m.Vectorizer.buildIndex()

	switch a.Meta.Backend {
	case BackendBayes:
		cl, err := decodeBayes(a.Bayes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactVersion, err)
		}
		m.bayes = cl
	default:
		if m.LogReg == nil {
			return nil, fmt.Errorf("%w: %s has no model weights", ErrArtifactVersion, path)
		}
	}
	return m, nil
}

// Modified returns the artifact's modification time, used by the daemon to
// detect a retrained model.
func Modified(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return 0, err
	}
	return fi.ModTime().UnixNano(), nil
}

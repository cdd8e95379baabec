// Package classifier trains and applies the transaction category model:
// TF-IDF features over cleaned descriptions feeding a multinomial logistic
// regression (or, optionally, a TF-IDF naive Bayes model).
package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jbrukh/bayesian"

	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/source"
)

// Backend names.
const (
	BackendLogReg = "logreg"
	BackendBayes  = "bayes"
)

var (
	ErrMissingColumn    = errors.New("classifier: label column not found")
	ErrInsufficientData = errors.New("classifier: insufficient labeled data")
	ErrUnableToTrain    = errors.New("classifier: unable to train")
	ErrUnknownBackend   = errors.New("classifier: unknown backend")
)

// Options controls training.
type Options struct {
	Backend     string
	MaxFeatures int
	TestRatio   float64
	Seed        int64
	C           float64
	MaxIter     int
	Tol         float64
}

// DefaultOptions returns the standard training configuration.
func DefaultOptions() Options {
	return Options{
		Backend:     BackendLogReg,
		MaxFeatures: 500,
		TestRatio:   0.2,
		Seed:        42,
		C:           1.0,
		MaxIter:     1000,
		Tol:         1e-6,
	}
}

// Sample is one labeled training example.
type Sample struct {
	Text  string // cleaned description
	Label string
}

// SamplesFrom extracts labeled samples from preprocessed rows. Rows with an
// empty label are skipped. A label column absent from the source header is
// a configuration error.
func SamplesFrom(res source.Result, labelColumn string) ([]Sample, error) {
	if !res.HasColumn(labelColumn) {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, labelColumn)
	}
	samples := make([]Sample, 0, len(res.Rows))
	for _, tx := range res.Rows {
		label, ok := tx.Field(labelColumn)
		if !ok || label == "" {
			continue
		}
		samples = append(samples, Sample{Text: tx.DescClean, Label: label})
	}
	return samples, nil
}

// Meta describes a trained model.
type Meta struct {
	SchemaVersion int
	Backend       string
	TrainedAt     time.Time
	Samples       int // labeled samples after excluding Other
	Excluded      int // samples dropped for carrying the Other label
	TrainSize     int
	TestSize      int
	Classes       []string
	Checksum      string
	MaxFeatures   int
}

// Model is a fitted classifier. It is immutable after training.
type Model struct {
	Meta       Meta
	Vectorizer *Vectorizer
	LogReg     *LogReg

	bayes *bayesian.Classifier
}

// Train fits a model on samples. Samples labeled Other are excluded first.
// The data is split once into train and test partitions; the model is fit
// on the train partition and scored on the test partition.
func Train(samples []Sample, opts Options) (*Model, Report, error) {
	if opts.Backend == "" {
		opts.Backend = BackendLogReg
	}
	if opts.Backend != BackendLogReg && opts.Backend != BackendBayes {
		return nil, Report{}, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}

	kept := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.Label != model.CategoryOther {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, Report{}, fmt.Errorf("%w: no samples remain after excluding %q", ErrInsufficientData, model.CategoryOther)
	}

	trainIdx, testIdx := Split(len(kept), opts.TestRatio, opts.Seed)
	if len(trainIdx) == 0 {
		return nil, Report{}, fmt.Errorf("%w: %d sample(s) leave an empty training partition", ErrInsufficientData, len(kept))
	}

	docs := make([]string, len(trainIdx))
	for i, idx := range trainIdx {
		docs[i] = kept[idx].Text
	}
	vec := FitVectorizer(docs, opts.MaxFeatures)
	if vec.Size() == 0 {
		return nil, Report{}, fmt.Errorf("%w: empty vocabulary, descriptions carry no usable terms", ErrUnableToTrain)
	}

	classes := classSet(kept, trainIdx)
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	y := make([]int, len(trainIdx))
	for i, idx := range trainIdx {
		y[i] = classIndex[kept[idx].Label]
	}

	m := &Model{
		Meta: Meta{
			SchemaVersion: SchemaVersion,
			Backend:       opts.Backend,
			TrainedAt:     time.Now().UTC(),
			Samples:       len(kept),
			Excluded:      len(samples) - len(kept),
			TrainSize:     len(trainIdx),
			TestSize:      len(testIdx),
			Classes:       classes,
			Checksum:      checksum(kept),
			MaxFeatures:   opts.MaxFeatures,
		},
		Vectorizer: vec,
	}

	switch opts.Backend {
	case BackendLogReg:
		x := make([]sparseVec, len(docs))
		for i, d := range docs {
			x[i] = vec.Transform(d)
		}
		lr := fitLogReg(x, y, len(classes), vec.Size(), logRegParams{C: opts.C, MaxIter: opts.MaxIter, Tol: opts.Tol})
		if !lr.finite() {
			return nil, Report{}, fmt.Errorf("%w: weights diverged", ErrUnableToTrain)
		}
		m.LogReg = lr
	case BackendBayes:
		terms := make([][]string, len(docs))
		for i, d := range docs {
			terms[i] = vec.Terms(d)
		}
		cl, err := fitBayes(terms, y, classes)
		if err != nil {
			return nil, Report{}, err
		}
		m.bayes = cl
	}

	truth := make([]string, len(testIdx))
	texts := make([]string, len(testIdx))
	for i, idx := range testIdx {
		truth[i] = kept[idx].Label
		texts[i] = kept[idx].Text
	}
	report := Evaluate(truth, m.Predict(texts))

	return m, report, nil
}

// Predict assigns a category to each cleaned description.
func (m *Model) Predict(descClean []string) []string {
	out := make([]string, len(descClean))
	probs := make([]float64, len(m.Meta.Classes))
	for i, d := range descClean {
		m.probabilities(d, probs)
		out[i] = m.Meta.Classes[argmax(probs)]
	}
	return out
}

// Scored is a prediction with its class probability.
type Scored struct {
	Label      string
	Confidence float64
}

// PredictScored is Predict with the winning class probability attached.
func (m *Model) PredictScored(descClean []string) []Scored {
	out := make([]Scored, len(descClean))
	probs := make([]float64, len(m.Meta.Classes))
	for i, d := range descClean {
		m.probabilities(d, probs)
		k := argmax(probs)
		out[i] = Scored{Label: m.Meta.Classes[k], Confidence: probs[k]}
	}
	return out
}

func (m *Model) probabilities(descClean string, out []float64) {
	if m.bayes != nil {
		bayesProbabilities(m.bayes, m.Vectorizer.Terms(descClean), out)
		return
	}
	m.LogReg.probabilities(m.Vectorizer.Transform(descClean), out)
}

// Stale reports whether the model is older than maxAge at now.
// A non-positive maxAge disables the check.
func (m *Model) Stale(maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(m.Meta.TrainedAt) > maxAge
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func classSet(samples []Sample, idx []int) []string {
	seen := make(map[string]bool)
	var classes []string
	for _, i := range idx {
		l := samples[i].Label
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	return classes
}

// checksum fingerprints the training data so runs on identical input can
// be recognized.
func checksum(samples []Sample) string {
	h := sha256.New()
	for _, s := range samples {
		h.Write([]byte(s.Text))
		h.Write([]byte{'\t'})
		h.Write([]byte(s.Label))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

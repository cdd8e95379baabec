package classifier

import (
	"bytes"
	"fmt"
	"math"

	"github.com/jbrukh/bayesian"
)

// fitBayes trains a TF-IDF naive Bayes model. The library needs at least
// two distinct classes.
func fitBayes(docs [][]string, y []int, classes []string) (cl *bayesian.Classifier, err error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("%w: naive bayes needs at least two classes, got %d", ErrUnableToTrain, len(classes))
	}
	defer func() {
		if r := recover(); r != nil {
			cl, err = nil, fmt.Errorf("%w: %v", ErrUnableToTrain, r)
		}
	}()

	bc := make([]bayesian.Class, len(classes))
	for i, c := range classes {
		bc[i] = bayesian.Class(c)
	}
	cl = bayesian.NewClassifierTfIdf(bc...)
	for i, doc := range docs {
		cl.Learn(doc, bc[y[i]])
	}
	cl.ConvertTermsFreqToTfIdf()
	return cl, nil
}

// bayesProbabilities converts log scores to normalized probabilities.
func bayesProbabilities(cl *bayesian.Classifier, terms []string, out []float64) {
	scores, _, _ := cl.LogScores(terms)
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	for k := range out {
		if k >= len(scores) || math.IsNaN(scores[k]) || math.IsInf(maxScore, -1) {
			out[k] = 0
			continue
		}
		out[k] = math.Exp(scores[k] - maxScore)
		sum += out[k]
	}
	if sum == 0 {
		for k := range out {
			out[k] = 1 / float64(len(out))
		}
		return
	}
	for k := range out {
		out[k] /= sum
	}
}

func encodeBayes(cl *bayesian.Classifier) ([]byte, error) {
	var buf bytes.Buffer
	if err := cl.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding naive bayes: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeBayes(data []byte) (*bayesian.Classifier, error) {
	cl, err := bayesian.NewClassifierFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding naive bayes: %w", err)
	}
	return cl, nil
}

package classifier

import (
	"math"
	"sort"
	"strings"
)

// feature is one non-zero entry of a sparse document vector.
type feature struct {
	Index int
	Value float64
}

type sparseVec []feature

// Tokenize splits a cleaned description into terms of two or more
// characters. Input is expected to be normalized to [a-z0-9 ].
func Tokenize(descClean string) []string {
	fields := strings.Fields(descClean)
	out := fields[:0:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// Vectorizer maps cleaned descriptions to L2-normalized TF-IDF vectors over
// a bounded vocabulary. Fields are exported for artifact encoding.
type Vectorizer struct {
	Vocab []string  // sorted terms; position is the feature index
	IDF   []float64 // smoothed inverse document frequency per term

	index map[string]int
}

// FitVectorizer learns the vocabulary and IDF weights from docs, keeping at
// most maxFeatures terms ranked by corpus frequency (ties alphabetical).
func FitVectorizer(docs []string, maxFeatures int) *Vectorizer {
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, tok := range Tokenize(doc) {
			termFreq[tok]++
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &Vectorizer{Vocab: terms, IDF: make([]float64, len(terms))}
	for i, t := range terms {
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
	v.buildIndex()
	return v
}

func (v *Vectorizer) buildIndex() {
	v.index = make(map[string]int, len(v.Vocab))
	for i, t := range v.Vocab {
		v.index[t] = i
	}
}

// Size returns the vocabulary size.
func (v *Vectorizer) Size() int { return len(v.Vocab) }

// Terms returns the in-vocabulary tokens of a document, in order.
func (v *Vectorizer) Terms(descClean string) []string {
	toks := Tokenize(descClean)
	out := toks[:0]
	for _, t := range toks {
		if _, ok := v.index[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Transform returns the sparse TF-IDF vector of a document, sorted by index.
// Out-of-vocabulary terms contribute nothing; an all-unknown document maps
// to the zero vector.
func (v *Vectorizer) Transform(descClean string) sparseVec {
	counts := make(map[int]float64)
	for _, t := range Tokenize(descClean) {
		if i, ok := v.index[t]; ok {
			counts[i]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	vec := make(sparseVec, 0, len(counts))
	var norm float64
	for i, c := range counts {
		w := c * v.IDF[i]
		vec = append(vec, feature{Index: i, Value: w})
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].Value /= norm
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].Index < vec[j].Index })
	return vec
}

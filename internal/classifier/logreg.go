package classifier

import (
	"math"
)

// LogReg is a multinomial logistic regression over sparse features.
type LogReg struct {
	Weights [][]float64 // one row per class
	Bias    []float64
	Iters   int
}

type logRegParams struct {
	C       float64
	MaxIter int
	Tol     float64
}

// fitLogReg minimizes mean cross-entropy plus an L2 penalty of 1/(2Cn) on
// the weights (the intercept is unpenalized) by full-batch gradient descent.
// Inputs are L2-normalized, so a unit step is stable.
func fitLogReg(x []sparseVec, y []int, classes, dims int, p logRegParams) *LogReg {
	n := float64(len(x))
	lambda := 1 / (p.C * n)
	step := 1 / (1 + lambda)

	m := &LogReg{
		Weights: make([][]float64, classes),
		Bias:    make([]float64, classes),
	}
	grad := make([][]float64, classes)
	for k := range m.Weights {
		m.Weights[k] = make([]float64, dims)
		grad[k] = make([]float64, dims)
	}
	gradB := make([]float64, classes)
	probs := make([]float64, classes)

	for iter := 1; iter <= p.MaxIter; iter++ {
		for k := range grad {
			clear(grad[k])
		}
		clear(gradB)

		for i, xi := range x {
			m.probabilities(xi, probs)
			for k := range probs {
				g := probs[k]
				if y[i] == k {
					g--
				}
				gradB[k] += g
				for _, f := range xi {
					grad[k][f.Index] += g * f.Value
				}
			}
		}

		var maxGrad float64
		for k := range grad {
			gradB[k] /= n
			maxGrad = math.Max(maxGrad, math.Abs(gradB[k]))
			m.Bias[k] -= step * gradB[k]
			for j := range grad[k] {
				g := grad[k][j]/n + lambda*m.Weights[k][j]
				maxGrad = math.Max(maxGrad, math.Abs(g))
				m.Weights[k][j] -= step * g
			}
		}
		m.Iters = iter
		if maxGrad < p.Tol {
			break
		}
	}
	return m
}

// probabilities writes softmax class probabilities for x into out.
func (m *LogReg) probabilities(x sparseVec, out []float64) {
	maxLogit := math.Inf(-1)
	for k := range out {
		z := m.Bias[k]
		for _, f := range x {
			z += m.Weights[k][f.Index] * f.Value
		}
		out[k] = z
		if z > maxLogit {
			maxLogit = z
		}
	}
	var sum float64
	for k := range out {
		out[k] = math.Exp(out[k] - maxLogit)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
}

// finite reports whether every parameter is a finite number.
func (m *LogReg) finite() bool {
	for k, row := range m.Weights {
		if math.IsNaN(m.Bias[k]) || math.IsInf(m.Bias[k], 0) {
			return false
		}
		for _, w := range row {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return false
			}
		}
	}
	return true
}

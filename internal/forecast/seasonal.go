package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/theirongolddev/spendcast/internal/model"
)

// Seasonal is an additive trend plus seasonality model: a piecewise-linear
// trend with automatic changepoints and one Fourier seasonal component.
// There are no yearly, weekly or daily terms.
type Seasonal struct {
	Period                float64 // days
	FourierOrder          int
	MaxChangepoints       int
	ChangepointRange      float64 // fraction of history eligible for changepoints
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	IntervalWidth         float64
}

// DefaultSeasonal returns the monthly seasonal model.
func DefaultSeasonal() Seasonal {
	return Seasonal{
		Period:                30.5,
		FourierOrder:          5,
		MaxChangepoints:       25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		IntervalWidth:         0.8,
	}
}

// Nominal noise variance on the scaled series, used to turn prior scales
// into ridge penalties.
const noiseVar = 0.01

// minIntervalDOF is the residual degrees of freedom below which the
// spread of the fitted history says nothing about the forecast error.
const minIntervalDOF = 2

// Name implements Strategy.
func (Seasonal) Name() string { return model.MethodSeasonal }

// Project implements Strategy. The series needs at least two distinct dates.
func (m Seasonal) Project(s Series, horizonDays int) (Projection, error) {
	n := s.Len()
	if n < 2 {
		return Projection{}, fmt.Errorf("%w: %d point(s)", ErrFitFailed, n)
	}

	f := m.newFit(s)
	beta, edf, err := f.solve()
	if err != nil {
		return Projection{}, err
	}

	target := s.Last().Date.AddDate(0, 0, horizonDays)
	yhat := dot(f.row(epochDays(target)), beta) * f.yScale
	if math.IsNaN(yhat) || math.IsInf(yhat, 0) {
		return Projection{}, fmt.Errorf("%w: non-finite projection", ErrFitFailed)
	}

	// A near-interpolating fit leaves no residual spread to measure, so the
	// interval is withheld rather than reported as a point.
	dof := float64(n) - edf
	if dof < minIntervalDOF {
		return Projection{
			TargetDate:    target,
			Value:         yhat,
			Lower:         yhat,
			Upper:         yhat,
			LowConfidence: true,
		}, nil
	}

	var sse float64
	for i := 0; i < n; i++ {
		r := f.y[i] - dot(f.row(f.days[i]), beta)
		sse += r * r
	}
	sigma := math.Sqrt(sse/dof) * f.yScale

	z := normalQuantile(0.5 + m.IntervalWidth/2)
	return Projection{
		TargetDate: target,
		Value:      yhat,
		Lower:      yhat - z*sigma,
		Upper:      yhat + z*sigma,
	}, nil
}

// order is the number of Fourier pairs used for a history of n points
// covering spanDays. Below two full periods the seasonal terms can only
// bend the trend, so they are dropped; above it each pair needs four points.
func (m Seasonal) order(n int, spanDays float64) int {
	if spanDays < 2*m.Period {
		return 0
	}
	return min(m.FourierOrder, n/4)
}

type fit struct {
	m         Seasonal
	days      []float64 // days since epoch per point
	y         []float64 // scaled totals
	yScale    float64
	t0, tSpan float64
	changes   []float64 // changepoint locations in scaled time
	order     int       // Fourier pairs in the design
}

func (m Seasonal) newFit(s Series) *fit {
	n := s.Len()
	f := &fit{m: m, days: make([]float64, n), y: make([]float64, n)}
	for i, p := range s.Points {
		f.days[i] = epochDays(p.Date)
		f.yScale = math.Max(f.yScale, math.Abs(p.Total))
	}
	if f.yScale == 0 {
		f.yScale = 1
	}
	for i, p := range s.Points {
		f.y[i] = p.Total / f.yScale
	}
	f.t0 = f.days[0]
	f.tSpan = f.days[n-1] - f.days[0]
	f.order = m.order(n, f.tSpan)

	// Changepoints sit on observed dates within the first part of history.
	hist := int(math.Floor(float64(n) * m.ChangepointRange))
	nc := min(m.MaxChangepoints, hist-1)
	for j := 1; j <= nc; j++ {
		idx := int(math.Round(float64(j) * float64(hist-1) / float64(nc)))
		f.changes = append(f.changes, f.scaled(f.days[idx]))
	}
	return f
}

func (f *fit) scaled(day float64) float64 {
	return (day - f.t0) / f.tSpan
}

func (f *fit) width() int {
	return 2 + len(f.changes) + 2*f.order
}

// row builds the design row for one date: intercept, slope, changepoint
// hinges, then sin/cos pairs of the seasonal component.
func (f *fit) row(day float64) []float64 {
	t := f.scaled(day)
	r := make([]float64, 0, f.width())
	r = append(r, 1, t)
	for _, c := range f.changes {
		r = append(r, math.Max(t-c, 0))
	}
	for k := 1; k <= f.order; k++ {
		x := 2 * math.Pi * float64(k) * day / f.m.Period
		r = append(r, math.Sin(x), math.Cos(x))
	}
	return r
}

// penalty returns the ridge weight of each design column.
func (f *fit) penalty() []float64 {
	p := make([]float64, f.width())
	p[0] = noiseVar / 25 // intercept and slope: N(0, 5^2)
	p[1] = noiseVar / 25
	i := 2
	for range f.changes {
		p[i] = noiseVar / (f.m.ChangepointPriorScale * f.m.ChangepointPriorScale)
		i++
	}
	for ; i < len(p); i++ {
		p[i] = noiseVar / (f.m.SeasonalityPriorScale * f.m.SeasonalityPriorScale)
	}
	return p
}

// solve returns the ridge solution of (XᵀX + Λ)β = Xᵀy together with the
// effective number of parameters, tr((XᵀX + Λ)⁻¹XᵀX).
func (f *fit) solve() ([]float64, float64, error) {
	n, p := len(f.y), f.width()
	x := mat.NewDense(n, p, nil)
	for i, d := range f.days {
		x.SetRow(i, f.row(d))
	}
	y := mat.NewVecDense(n, f.y)

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	pen := f.penalty()
	a := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := xtx.At(i, j)
			if i == j {
				v += pen[i]
			}
			a.SetSym(i, j, v)
		}
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, 0, fmt.Errorf("%w: normal equations not positive definite", ErrFitFailed)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}
	var hat mat.Dense
	if err := chol.SolveTo(&hat, &xtx); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}
	return mat.Col(nil, 0, &beta), mat.Trace(&hat), nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func epochDays(t time.Time) float64 {
	return float64(t.Unix()) / 86400
}

// normalQuantile returns the standard normal quantile for p in (0, 1).
func normalQuantile(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

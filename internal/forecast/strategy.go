package forecast

import (
	"errors"
	"time"

	"github.com/theirongolddev/spendcast/internal/model"
)

// ErrFitFailed is returned when a model cannot be fit to a series.
var ErrFitFailed = errors.New("forecast: unable to fit series")

// Projection is a strategy's estimate for the target date.
type Projection struct {
	TargetDate    time.Time
	Value         float64
	Lower         float64
	Upper         float64
	LowConfidence bool
}

// Strategy projects a series horizonDays past its last date.
type Strategy interface {
	Name() string
	Project(s Series, horizonDays int) (Projection, error)
}

// Naive repeats the last observed total. It is used when a series is too
// short to fit anything.
type Naive struct{}

// Name implements Strategy.
func (Naive) Name() string { return model.MethodNaive }

// Project implements Strategy.
func (Naive) Project(s Series, horizonDays int) (Projection, error) {
	if s.Len() == 0 {
		return Projection{}, ErrFitFailed
	}
	last := s.Last()
	return Projection{
		TargetDate:    last.Date.AddDate(0, 0, horizonDays),
		Value:         last.Total,
		Lower:         last.Total,
		Upper:         last.Total,
		LowConfidence: true,
	}, nil
}

// clampZero floors a projection at zero.
func clampZero(p Projection) Projection {
	p.Value = max(p.Value, 0)
	p.Lower = max(p.Lower, 0)
	p.Upper = max(p.Upper, 0)
	return p
}

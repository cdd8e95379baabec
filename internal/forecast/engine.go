package forecast

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/spendcast/internal/model"
)

// Config controls an Engine.
type Config struct {
	HorizonDays int
	MinPoints   int // series shorter than this use the naive strategy
	Workers     int
	Seasonal    Seasonal
}

// DefaultConfig returns the standard 30-day monthly-seasonal setup.
func DefaultConfig() Config {
	return Config{
		HorizonDays: 30,
		MinPoints:   2,
		Workers:     runtime.GOMAXPROCS(0),
		Seasonal:    DefaultSeasonal(),
	}
}

// Engine turns categorized rows into one forecast per category.
type Engine struct {
	cfg      Config
	seasonal Strategy
	naive    Strategy
}

// New creates an Engine. Zero config fields fall back to defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = def.HorizonDays
	}
	if cfg.MinPoints < 2 {
		cfg.MinPoints = def.MinPoints
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Seasonal.Period <= 0 {
		cfg.Seasonal = def.Seasonal
	}
	return &Engine{cfg: cfg, seasonal: cfg.Seasonal, naive: Naive{}}
}

// Select picks the strategy for a series. Series length is the only input.
func (e *Engine) Select(s Series) Strategy {
	if s.Len() < e.cfg.MinPoints {
		return e.naive
	}
	return e.seasonal
}

// Run forecasts every category present in rows. Categories are fit
// concurrently; the result holds exactly one entry per category, sorted by
// category, with every amount floored at zero.
func (e *Engine) Run(ctx context.Context, rows []Row) ([]model.Forecast, error) {
	series := BuildSeries(rows)
	return e.RunSeries(ctx, series)
}

// RunSeries is Run over prebuilt series.
func (e *Engine) RunSeries(ctx context.Context, series []Series) ([]model.Forecast, error) {
	out := make([]model.Forecast, len(series))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, s := range series {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			strat := e.Select(s)
			p, err := strat.Project(s, e.cfg.HorizonDays)
			if err != nil {
				return fmt.Errorf("forecasting %s: %w", s.Category, err)
			}
			p = clampZero(p)
			out[i] = model.Forecast{
				Category:      s.Category,
				TargetDate:    p.TargetDate,
				Predicted:     p.Value,
				Lower:         p.Lower,
				Upper:         p.Upper,
				Method:        strat.Name(),
				HistoryPoints: s.Len(),
				LowConfidence: p.LowConfidence,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

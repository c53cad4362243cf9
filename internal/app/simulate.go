package app

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"stockchart/internal/fetcher"
	"stockchart/internal/interval"
	"stockchart/internal/series"
)

const defaultSimulatedPoints = 400

// Simulate renders a chart from synthetic history without contacting the
// backend. The series is a seeded random walk ending today.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.StartPrice <= 0 {
		return errors.New("start price must be greater than zero")
	}
	if opts.Points <= 0 {
		opts.Points = defaultSimulatedPoints
	}

	history := &syntheticHistory{
		points: opts.Points,
		start:  opts.StartPrice,
		seed:   opts.Seed,
		now:    time.Now().UTC(),
	}
	detail, err := a.newDetail(opts.Symbol, history, nil, nil)
	if err != nil {
		return err
	}

	return a.renderDetail(ctx, detail, ChartOptions{
		Symbol:   opts.Symbol,
		Interval: opts.Interval,
		Variant:  opts.Variant,
		Tier:     opts.Tier,
		Out:      opts.Out,
	})
}

// syntheticHistory serves a deterministic random walk per granularity.
type syntheticHistory struct {
	points int
	start  float64
	seed   int64
	now    time.Time
}

func (s *syntheticHistory) FetchHistory(_ context.Context, symbol string, granularity interval.Granularity) (series.History, error) {
	step := 24 * time.Hour
	switch granularity {
	case interval.Weekly:
		step = 7 * 24 * time.Hour
	case interval.Monthly:
		step = 30 * 24 * time.Hour
	}

	rng := rand.New(rand.NewPCG(uint64(s.seed), uint64(len(granularity))))
	price := s.start
	data := make([]series.RawPoint, s.points)
	// Walk backwards so data[0] is the most recent bar, as the backend sends it.
	for i := 0; i < s.points; i++ {
		ts := s.now.Add(-time.Duration(i) * step).Truncate(24 * time.Hour)
		closePrice := price
		open := math.Max(0.01, closePrice*(1+rng.NormFloat64()*0.01))
		high := math.Max(open, closePrice) * (1 + rng.Float64()*0.01)
		low := math.Min(open, closePrice) * (1 - rng.Float64()*0.01)
		data[i] = series.NewRawPoint(ts.Format("2006-01-02"), round2(open), round2(high), round2(low), round2(closePrice))
		price = open
	}

	return series.History{Symbol: symbol, Interval: string(granularity), Data: data}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var _ fetcher.HistoryFetcher = (*syntheticHistory)(nil)

// Package service orchestrates the stock detail pipeline: interval
// selection, cached history loading, windowing, live prices and rendering.
package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stockchart/internal/cache"
	"stockchart/internal/chart"
	"stockchart/internal/entitlement"
	"stockchart/internal/fetcher"
	"stockchart/internal/interval"
	"stockchart/internal/quotestream"
	"stockchart/internal/scheduler"
	"stockchart/internal/series"
)

// StatusNoData is reported whenever the active window is empty.
const StatusNoData = "no data available for this interval"

const defaultPollInterval = 30 * time.Second

// Subscriber is the push-quote capability.
type Subscriber interface {
	Subscribe(ctx context.Context, symbols []string, onQuotes func([]quotestream.Quote)) (func(), error)
}

// Dependencies are the collaborators of a Detail. Cache, Prices, Stream and
// Renderer are optional.
type Dependencies struct {
	History  fetcher.HistoryFetcher
	Prices   fetcher.PriceFetcher
	Cache    *cache.SeriesCache
	Stream   Subscriber
	Renderer *chart.Renderer
}

// Options tune a Detail.
type Options struct {
	PollInterval time.Duration
	Now          func() time.Time
}

// Snapshot is a consistent view of a Detail.
type Snapshot struct {
	Symbol       string
	Interval     interval.Option
	Windowed     []series.EnrichedPoint
	Domain       chart.Domain
	Summary      series.Summary
	HasSummary   bool
	Loading      bool
	LivePrice    decimal.Decimal
	HasLivePrice bool
	Status       string
	LastError    string
	State        string
}

// Detail is the pipeline state of one symbol.
type Detail struct {
	symbol string
	deps   Dependencies
	opts   Options
	logger zerolog.Logger

	mu              sync.Mutex
	active          interval.Option
	base            []series.EnrichedPoint
	baseGranularity interval.Granularity
	windowed        []series.EnrichedPoint
	domain          chart.Domain
	summary         series.Summary
	hasSummary      bool
	loading         bool
	livePrice       decimal.Decimal
	hasLivePrice    bool
	lastErr         string
	generation      uint64
}

// NewDetail constructs the pipeline for symbol with the default interval
// active and nothing loaded.
func NewDetail(symbol string, deps Dependencies, opts Options, logger zerolog.Logger) (*Detail, error) {
	sym, err := fetcher.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if deps.History == nil {
		return nil, errors.New("history fetcher is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Detail{
		symbol: sym,
		deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "stock_detail").Str("symbol", sym).Logger(),
		active: interval.Default(),
		domain: chart.ComputeDomain(nil),
	}, nil
}

// Symbol returns the normalised symbol.
func (d *Detail) Symbol() string {
	return d.symbol
}

// SelectInterval activates intervalID. If the loaded series already has the
// interval's granularity it is re-windowed in place; otherwise it is loaded
// from cache or the backend. Only the newest selection may apply its result.
func (d *Detail) SelectInterval(ctx context.Context, intervalID string) Snapshot {
	opt := interval.Lookup(intervalID)

	d.mu.Lock()
	d.active = opt
	d.generation++
	generation := d.generation
	if len(d.base) > 0 && d.baseGranularity == opt.Granularity {
		d.loading = false
		d.applyWindowLocked()
		snap := d.snapshotLocked()
		d.mu.Unlock()
		return snap
	}
	d.loading = true
	d.mu.Unlock()

	points, loadErr := d.load(ctx, opt.Granularity)

	d.mu.Lock()
	defer d.mu.Unlock()
	if generation != d.generation {
		d.logger.Debug().
			Str("interval", opt.Value).
			Uint64("generation", generation).
			Uint64("latest", d.generation).
			Msg("discarding superseded history response")
		return d.snapshotLocked()
	}

	d.loading = false
	d.base = points
	d.baseGranularity = opt.Granularity
	d.lastErr = ""
	if loadErr != nil {
		d.lastErr = loadErr.Error()
	}
	d.applyWindowLocked()
	return d.snapshotLocked()
}

func (d *Detail) load(ctx context.Context, granularity interval.Granularity) ([]series.EnrichedPoint, error) {
	if d.deps.Cache != nil {
		if history, ok := d.deps.Cache.Get(ctx, d.symbol, granularity); ok {
			d.logger.Debug().Str("granularity", string(granularity)).Int("points", len(history.Data)).Msg("history served from cache")
			return series.Enrich(history.Data), nil
		}
	}

	history, err := d.deps.History.FetchHistory(ctx, d.symbol, granularity)
	if err != nil {
		d.logger.Warn().Err(err).Str("granularity", string(granularity)).Msg("history fetch failed")
		return nil, err
	}

	if d.deps.Cache != nil && len(history.Data) > 0 {
		if err := d.deps.Cache.Put(ctx, d.symbol, granularity, history); err != nil {
			d.logger.Warn().Err(err).Msg("failed to cache history")
		}
	}
	return series.Enrich(history.Data), nil
}

func (d *Detail) applyWindowLocked() {
	d.windowed = series.Window(d.base, d.active.Value, d.opts.Now())
	d.domain = chart.ComputeDomain(d.windowed)
	d.summary, d.hasSummary = series.Summarize(d.windowed)
}

// ApplyQuotes applies pushed quotes for this symbol. The last valid quote in
// the batch wins; quotes without a positive price are ignored.
func (d *Detail) ApplyQuotes(quotes []quotestream.Quote) {
	var (
		price decimal.Decimal
		found bool
	)
	for _, q := range quotes {
		if !strings.EqualFold(strings.TrimSpace(q.Symbol), d.symbol) {
			continue
		}
		if !q.Price.Valid || !q.Price.Decimal.IsPositive() {
			continue
		}
		price, found = q.Price.Decimal, true
	}
	if found {
		d.setLivePrice(price, "stream")
	}
}

// PollPrice fetches the live price once.
func (d *Detail) PollPrice(ctx context.Context) error {
	if d.deps.Prices == nil {
		return nil
	}
	price, err := d.deps.Prices.FetchPrice(ctx, d.symbol)
	if err != nil {
		return err
	}
	if !price.IsPositive() {
		return nil
	}
	d.setLivePrice(price, "poll")
	return nil
}

func (d *Detail) setLivePrice(price decimal.Decimal, source string) {
	d.mu.Lock()
	d.livePrice = price
	d.hasLivePrice = true
	d.mu.Unlock()
	d.logger.Debug().Str("price", price.String()).Str("source", source).Msg("live price updated")
}

// Run polls the live price and consumes the quote stream until ctx ends.
// A failed stream subscription leaves polling in place.
func (d *Detail) Run(ctx context.Context) error {
	sched, err := scheduler.New(scheduler.Options{
		Interval:  d.opts.PollInterval,
		Immediate: true,
		Name:      "price_poller",
	}, d.logger)
	if err != nil {
		return err
	}

	if d.deps.Stream != nil {
		unsubscribe, err := d.deps.Stream.Subscribe(ctx, []string{d.symbol}, d.ApplyQuotes)
		if err != nil {
			d.logger.Warn().Err(err).Msg("quote stream unavailable, polling only")
		} else {
			defer unsubscribe()
		}
	}

	err = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		if err := d.PollPrice(ctx); err != nil {
			d.logger.Debug().Err(err).Msg("live price poll failed")
		}
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Snapshot returns the current state.
func (d *Detail) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Detail) snapshotLocked() Snapshot {
	snap := Snapshot{
		Symbol:       d.symbol,
		Interval:     d.active,
		Windowed:     append([]series.EnrichedPoint(nil), d.windowed...),
		Domain:       d.domain,
		Summary:      d.summary,
		HasSummary:   d.hasSummary,
		Loading:      d.loading,
		LivePrice:    d.livePrice,
		HasLivePrice: d.hasLivePrice,
		LastError:    d.lastErr,
		State:        series.StateString(d.active.Value, len(d.windowed)),
	}
	if len(d.windowed) == 0 && !d.loading {
		snap.Status = StatusNoData
	}
	return snap
}

// Render draws the current window as variant for tier.
func (d *Detail) Render(w io.Writer, variant chart.Variant, tier entitlement.Tier) error {
	if d.deps.Renderer == nil {
		return errors.New("renderer not configured")
	}
	snap := d.Snapshot()
	return d.deps.Renderer.Render(w, chart.Input{
		IntervalID: snap.Interval.Value,
		Points:     snap.Windowed,
		Domain:     snap.Domain,
		Variant:    variant,
		Tier:       tier,
	})
}

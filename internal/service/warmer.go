package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"stockchart/internal/cache"
	"stockchart/internal/fetcher"
	"stockchart/internal/interval"
	"stockchart/internal/quotestream"
	"stockchart/internal/storage"
)

// WarmerOptions configure cache warming.
type WarmerOptions struct {
	Symbols []string
	// LockKey serialises warm runs across processes when Locker is set.
	LockKey int64
	Locker  storage.AdvisoryLocker
}

// WarmResult summarises one warm run.
type WarmResult struct {
	Stored  int
	Empty   int
	Failed  int
	Skipped bool
}

// Warmer refreshes cached history for a watchlist across every catalog
// granularity.
type Warmer struct {
	history fetcher.HistoryFetcher
	cache   *cache.SeriesCache
	opts    WarmerOptions
	logger  zerolog.Logger
}

// NewWarmer constructs a Warmer.
func NewWarmer(history fetcher.HistoryFetcher, seriesCache *cache.SeriesCache, opts WarmerOptions, logger zerolog.Logger) (*Warmer, error) {
	if history == nil || seriesCache == nil {
		return nil, errors.New("warmer needs a history fetcher and a cache")
	}
	symbols := make([]string, 0, len(opts.Symbols))
	for _, sym := range quotestream.NormalizeSymbols(opts.Symbols) {
		normalized, err := fetcher.NormalizeSymbol(sym)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, normalized)
	}
	opts.Symbols = symbols

	return &Warmer{
		history: history,
		cache:   seriesCache,
		opts:    opts,
		logger:  logger.With().Str("component", "cache_warmer").Logger(),
	}, nil
}

// WarmOnce fetches and stores every (symbol, granularity) pair. Individual
// failures are counted, not returned.
func (w *Warmer) WarmOnce(ctx context.Context) (WarmResult, error) {
	unlock, proceed, err := w.acquireLock(ctx)
	if err != nil {
		return WarmResult{}, err
	}
	if !proceed {
		w.logger.Debug().Msg("skip warm run because advisory lock held elsewhere")
		return WarmResult{Skipped: true}, nil
	}
	if unlock != nil {
		defer unlock()
	}

	var result WarmResult
	for _, sym := range w.opts.Symbols {
		for _, granularity := range interval.Granularities() {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}

			history, err := w.history.FetchHistory(ctx, sym, granularity)
			if err != nil {
				result.Failed++
				w.logger.Warn().Err(err).Str("symbol", sym).Str("granularity", string(granularity)).Msg("warm fetch failed")
				continue
			}
			if len(history.Data) == 0 {
				result.Empty++
				continue
			}
			if err := w.cache.Put(ctx, sym, granularity, history); err != nil {
				result.Failed++
				w.logger.Warn().Err(err).Str("symbol", sym).Msg("warm store failed")
				continue
			}
			result.Stored++
		}
	}

	w.logger.Info().
		Int("stored", result.Stored).
		Int("empty", result.Empty).
		Int("failed", result.Failed).
		Msg("cache warm run complete")
	return result, nil
}

// Schedule runs WarmOnce on the cron spec (seconds field included) until ctx ends.
func (w *Warmer) Schedule(ctx context.Context, spec string) error {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() {
		if _, err := w.WarmOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("scheduled warm run failed")
		}
	}); err != nil {
		return fmt.Errorf("register warm schedule %q: %w", spec, err)
	}

	c.Start()
	w.logger.Info().Str("schedule", spec).Int("symbols", len(w.opts.Symbols)).Msg("cache warmer started")
	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info().Msg("cache warmer stopped")
	return nil
}

func (w *Warmer) acquireLock(ctx context.Context) (func(), bool, error) {
	if w.opts.LockKey == 0 || w.opts.Locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := w.opts.Locker.TryAdvisoryLock(ctx, w.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

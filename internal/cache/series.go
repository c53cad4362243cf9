// Package cache keeps previously fetched history payloads per symbol and
// granularity on top of a pluggable key-value store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stockchart/internal/interval"
	"stockchart/internal/series"
	"stockchart/internal/storage"
)

const (
	// KeyPrefix versions the persisted layout.
	KeyPrefix = "stock_data_v2_"
	// MinDailyPoints is the smallest daily entry served from cache.
	MinDailyPoints = 30
)

// ErrListUnsupported is returned by Entries when the store cannot enumerate keys.
var ErrListUnsupported = errors.New("cache: store does not support listing")

// Options tune the series cache.
type Options struct {
	MinDailyPoints int
}

// SeriesCache stores raw history payloads keyed by (symbol, granularity).
// Entries never expire on a timer.
type SeriesCache struct {
	kv       KV
	minDaily int
	logger   zerolog.Logger
}

// New constructs a series cache over kv.
func New(kv KV, opts Options, logger zerolog.Logger) *SeriesCache {
	if opts.MinDailyPoints <= 0 {
		opts.MinDailyPoints = MinDailyPoints
	}
	return &SeriesCache{
		kv:       kv,
		minDaily: opts.MinDailyPoints,
		logger:   logger.With().Str("component", "series_cache").Logger(),
	}
}

// Key returns the persisted key for symbol and granularity.
func Key(symbol string, granularity interval.Granularity) string {
	return KeyPrefix + strings.ToUpper(strings.TrimSpace(symbol)) + "_" + string(granularity)
}

// Get returns the cached payload. Absent, unreadable, unparsable and short
// daily entries are all misses; a short entry stays stored until overwritten.
func (c *SeriesCache) Get(ctx context.Context, symbol string, granularity interval.Granularity) (series.History, bool) {
	key := Key(symbol, granularity)
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return series.History{}, false
	}
	if !ok {
		return series.History{}, false
	}

	var history series.History
	if err := json.Unmarshal(raw, &history); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding unparsable cache entry")
		return series.History{}, false
	}

	if granularity == interval.Daily && len(history.Data) < c.minDaily {
		c.logger.Debug().
			Str("key", key).
			Int("points", len(history.Data)).
			Int("min_points", c.minDaily).
			Msg("cached daily series too short")
		return series.History{}, false
	}
	return history, true
}

// Put stores the payload as received. Empty payloads are not cached.
func (c *SeriesCache) Put(ctx context.Context, symbol string, granularity interval.Granularity, history series.History) error {
	if len(history.Data) == 0 {
		return nil
	}
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	key := Key(symbol, granularity)
	if err := c.kv.Put(ctx, key, payload); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Invalidate evicts the entry for symbol and granularity.
func (c *SeriesCache) Invalidate(ctx context.Context, symbol string, granularity interval.Granularity) error {
	key := Key(symbol, granularity)
	if err := c.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	c.logger.Info().Str("key", key).Msg("cache entry invalidated")
	return nil
}

// InvalidateSymbol evicts every granularity of symbol.
func (c *SeriesCache) InvalidateSymbol(ctx context.Context, symbol string) error {
	for _, granularity := range interval.Granularities() {
		if err := c.Invalidate(ctx, symbol, granularity); err != nil {
			return err
		}
	}
	return nil
}

// Entries lists the stored series records.
func (c *SeriesCache) Entries(ctx context.Context) ([]storage.Entry, error) {
	lister, ok := c.kv.(Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	return lister.List(ctx, KeyPrefix)
}

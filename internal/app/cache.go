package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"stockchart/internal/interval"
	"stockchart/internal/service"
)

// CacheInvalidate evicts cached history for symbol. An empty granularity
// evicts every granularity.
func (a *App) CacheInvalidate(ctx context.Context, symbol, granularity string) error {
	handle, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer handle.close()

	if granularity == "" {
		if err := handle.series.InvalidateSymbol(ctx, symbol); err != nil {
			return err
		}
		a.Logger.Info().Str("symbol", strings.ToUpper(symbol)).Msg("cache entries evicted")
		return nil
	}

	g, err := parseGranularity(granularity)
	if err != nil {
		return err
	}
	if err := handle.series.Invalidate(ctx, symbol, g); err != nil {
		return err
	}
	a.Logger.Info().Str("symbol", strings.ToUpper(symbol)).Str("granularity", string(g)).Msg("cache entry evicted")
	return nil
}

func parseGranularity(value string) (interval.Granularity, error) {
	normalized := interval.Granularity(strings.ToLower(strings.TrimSpace(value)))
	for _, g := range interval.Granularities() {
		if g == normalized {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown granularity %q", value)
}

// CacheList prints the cached history entries.
func (a *App) CacheList(ctx context.Context) error {
	handle, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer handle.close()

	entries, err := handle.series.Entries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.Out, "no cached series found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Key\tBytes\tUpdated (UTC)")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%s\t%d\t%s\n", entry.Key, entry.Size, entry.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return writer.Flush()
}

// CacheWarm pre-loads history for the watchlist, once or on the configured
// cron schedule.
func (a *App) CacheWarm(ctx context.Context, opts WarmOptions) error {
	ctx, cancel := withSignals(ctx)
	defer cancel()

	handle, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer handle.close()

	symbols := opts.Symbols
	if len(symbols) == 0 {
		symbols = a.Config.Warm.Symbols
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to warm; pass --symbols or set warm.symbols")
	}

	warmer, err := service.NewWarmer(a.newClient(), handle.series, service.WarmerOptions{
		Symbols: symbols,
		LockKey: a.Config.Warm.AdvisoryLockKey,
		Locker:  handle.locker,
	}, a.Logger)
	if err != nil {
		return err
	}

	if !opts.Once {
		return warmer.Schedule(ctx, a.Config.Warm.Schedule)
	}

	result, err := warmer.WarmOnce(ctx)
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Fprintln(a.Out, "warm run skipped: another process holds the lock")
		return nil
	}
	fmt.Fprintf(a.Out, "stored %d, empty %d, failed %d\n", result.Stored, result.Empty, result.Failed)
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const watchReportInterval = 15 * time.Second

// Watch loads symbol and follows its live price until interrupted.
func (a *App) Watch(ctx context.Context, symbol, intervalID string) error {
	ctx, cancel := withSignals(ctx)
	defer cancel()

	handle, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer handle.close()

	client := a.newClient()
	detail, err := a.newDetail(symbol, client, client, handle.series)
	if err != nil {
		return err
	}

	snap := detail.SelectInterval(ctx, a.resolveInterval(intervalID))
	a.Logger.Info().Str("symbol", snap.Symbol).Str("state", snap.State).Msg("watching symbol")

	done := make(chan error, 1)
	go func() { done <- detail.Run(ctx) }()

	ticker := time.NewTicker(watchReportInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("watch terminated with error")
				return err
			}
			a.Logger.Info().Msg("watch stopped")
			return nil
		case <-ticker.C:
			snap := detail.Snapshot()
			if !snap.HasLivePrice {
				continue
			}
			line := fmt.Sprintf("%s %s live %s", time.Now().UTC().Format(time.RFC3339), snap.Symbol, snap.LivePrice.StringFixed(2))
			if snap.HasSummary {
				line += fmt.Sprintf(" (close %s)", formatPrice(snap.Summary.Close))
			}
			fmt.Fprintln(a.Out, line)
		}
	}
}

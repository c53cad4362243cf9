package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"stockchart/internal/chart"
	"stockchart/internal/entitlement"
	"stockchart/internal/service"
)

// Chart renders the windowed series of a symbol to a file.
func (a *App) Chart(ctx context.Context, opts ChartOptions) error {
	handle, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer handle.close()

	client := a.newClient()
	detail, err := a.newDetail(opts.Symbol, client, client, handle.series)
	if err != nil {
		return err
	}
	return a.renderDetail(ctx, detail, opts)
}

func (a *App) renderDetail(ctx context.Context, detail *service.Detail, opts ChartOptions) error {
	variant, err := chart.ParseVariant(a.pick(opts.Variant, a.Config.Chart.Variant))
	if err != nil {
		return err
	}
	tier := entitlement.ParseTier(a.pick(opts.Tier, a.Config.Entitlement.Tier))

	snap := detail.SelectInterval(ctx, a.resolveInterval(opts.Interval))
	if snap.LastError != "" {
		a.Logger.Warn().Str("symbol", snap.Symbol).Str("error", snap.LastError).Msg("history unavailable")
	}

	renderer := a.newRenderer()
	for _, control := range chart.Controls(tier, renderer.Gate()) {
		state := "available"
		if !control.Enabled {
			state = control.Reason
		}
		fmt.Fprintf(a.Out, "%-12s %s\n", control.Label, state)
	}

	var buf bytes.Buffer
	if err := detail.Render(&buf, variant, tier); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			fmt.Fprintln(a.Out, service.StatusNoData)
			return nil
		}
		return err
	}

	out := opts.Out
	if out == "" {
		out = fmt.Sprintf("%s_%s.%s", strings.ToLower(snap.Symbol), strings.ToLower(snap.Interval.Value), renderer.Format())
	}
	if err := ensureDir(out); err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	a.Logger.Info().
		Str("symbol", snap.Symbol).
		Str("state", snap.State).
		Str("variant", string(variant)).
		Str("path", out).
		Msg("chart written")
	fmt.Fprintln(a.Out, out)
	return nil
}

func (a *App) pick(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"stockchart/internal/interval"
	"stockchart/internal/series"
	"stockchart/internal/service"
)

// Window loads symbol, applies the interval window and prints the result.
func (a *App) Window(ctx context.Context, opts WindowOptions) error {
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

	snap := detail.SelectInterval(ctx, a.resolveInterval(opts.Interval))
	if snap.LastError != "" {
		a.Logger.Warn().Str("symbol", snap.Symbol).Str("error", snap.LastError).Msg("history unavailable")
	}

	if err := a.printSnapshot(snap); err != nil {
		return err
	}

	if opts.CSVPath != "" {
		if err := writeWindowCSV(opts.CSVPath, snap.Windowed); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Int("points", len(snap.Windowed)).Msg("window exported")
	}
	return nil
}

func (a *App) resolveInterval(id string) string {
	if id == "" {
		id = a.Config.Chart.Interval
	}
	return interval.Lookup(id).Value
}

func (a *App) printSnapshot(snap service.Snapshot) error {
	fmt.Fprintf(a.Out, "%s %s (%s)\n", snap.Symbol, snap.Interval.Label, snap.State)
	if snap.Status != "" {
		fmt.Fprintln(a.Out, snap.Status)
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Timestamp\tOpen\tHigh\tLow\tClose\tVolume")
	for _, p := range snap.Windowed {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%d\n",
			p.Timestamp,
			formatPrice(p.Open),
			formatPrice(p.High),
			formatPrice(p.Low),
			formatPrice(p.Close),
			p.Volume,
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	if snap.HasSummary {
		s := snap.Summary
		fmt.Fprintf(a.Out, "\nO %s  H %s  L %s  C %s  V %d\n",
			formatPrice(s.Open), formatPrice(s.High), formatPrice(s.Low), formatPrice(s.Close), s.Volume)
	}
	fmt.Fprintf(a.Out, "domain: price [%s, %s] volume [0, %s]\n",
		formatPrice(snap.Domain.PriceMin), formatPrice(snap.Domain.PriceMax), strconv.FormatFloat(snap.Domain.VolumeMax, 'f', 0, 64))
	return nil
}

func formatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeWindowCSV(path string, points []series.EnrichedPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, p := range points {
		record := []string{
			p.Timestamp,
			csvFloat(p.Open),
			csvFloat(p.High),
			csvFloat(p.Low),
			csvFloat(p.Close),
			strconv.FormatInt(p.Volume, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// csvFloat leaves missing prices empty.
func csvFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

package app

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"stockchart/internal/interval"
)

// Intervals prints the interval catalog.
func (a *App) Intervals() error {
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Interval\tGranularity\tLookback (days)\tFallback points\tDefault")

	def := interval.Default().Value
	for _, opt := range interval.Options() {
		lookback, fallback := "-", "-"
		if opt.Bounded() {
			lookback = strconv.Itoa(opt.MaxLookbackDays)
			fallback = strconv.Itoa(opt.FallbackPoints)
		}
		marker := ""
		if opt.Value == def {
			marker = "*"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", opt.Label, opt.Granularity, lookback, fallback, marker)
	}
	return writer.Flush()
}

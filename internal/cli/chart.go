package cli

import (
	"github.com/spf13/cobra"

	"stockchart/internal/app"
)

var (
	chartInterval string
	chartVariant  string
	chartTier     string
	chartOut      string
)

var chartCmd = &cobra.Command{
	Use:   "chart SYMBOL",
	Short: "Render the price chart of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Chart(cmd.Context(), app.ChartOptions{
			Symbol:   args[0],
			Interval: chartInterval,
			Variant:  chartVariant,
			Tier:     chartTier,
			Out:      chartOut,
		})
	},
}

func init() {
	chartCmd.Flags().StringVar(&chartInterval, "interval", "", "Interval id; defaults to chart.interval")
	chartCmd.Flags().StringVar(&chartVariant, "variant", "", "mountain or candlestick; defaults to chart.variant")
	chartCmd.Flags().StringVar(&chartTier, "tier", "", "Plan tier override (FREE, PRO, PREMIUM)")
	chartCmd.Flags().StringVar(&chartOut, "out", "", "Output file; defaults to <symbol>_<interval>.<format>")
}

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"stockchart/internal/app"
)

var (
	simulateInterval string
	simulatePoints   int
	simulatePrice    float64
	simulateSeed     int64
	simulateVariant  string
	simulateTier     string
	simulateOut      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate SYMBOL",
	Short: "Render a chart from synthetic history without the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 {
			return errors.New("--start-price must be greater than 0")
		}
		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			Symbol:     args[0],
			Interval:   simulateInterval,
			Points:     simulatePoints,
			StartPrice: simulatePrice,
			Seed:       simulateSeed,
			Variant:    simulateVariant,
			Tier:       simulateTier,
			Out:        simulateOut,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateInterval, "interval", "", "Interval id; defaults to chart.interval")
	simulateCmd.Flags().IntVar(&simulatePoints, "points", 400, "Number of synthetic bars per granularity")
	simulateCmd.Flags().Float64Var(&simulatePrice, "start-price", 100, "Most recent close of the synthetic walk")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 1, "Random walk seed")
	simulateCmd.Flags().StringVar(&simulateVariant, "variant", "", "mountain or candlestick")
	simulateCmd.Flags().StringVar(&simulateTier, "tier", "", "Plan tier override")
	simulateCmd.Flags().StringVar(&simulateOut, "out", "", "Output file")
}

package cli

import (
	"github.com/spf13/cobra"

	"stockchart/internal/app"
)

var (
	windowInterval string
	windowCSV      string
)

var windowCmd = &cobra.Command{
	Use:   "window SYMBOL",
	Short: "Print the windowed price series of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Window(cmd.Context(), app.WindowOptions{
			Symbol:   args[0],
			Interval: windowInterval,
			CSVPath:  windowCSV,
		})
	},
}

func init() {
	windowCmd.Flags().StringVar(&windowInterval, "interval", "", "Interval id (1D, 1W, 1M, 1Y, 3Y, 5Y, 10Y, ALL); defaults to chart.interval")
	windowCmd.Flags().StringVar(&windowCSV, "csv", "", "Also write the window to this CSV file")
}

package cli

import (
	"github.com/spf13/cobra"
)

var watchInterval string

var watchCmd = &cobra.Command{
	Use:   "watch SYMBOL",
	Short: "Follow the live price of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context(), args[0], watchInterval)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "Interval id loaded before following; defaults to chart.interval")
}

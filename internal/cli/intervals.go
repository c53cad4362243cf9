package cli

import (
	"github.com/spf13/cobra"
)

var intervalsCmd = &cobra.Command{
	Use:   "intervals",
	Short: "List the selectable chart intervals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Intervals()
	},
}

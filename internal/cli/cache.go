package cli

import (
	"github.com/spf13/cobra"

	"stockchart/internal/app"
)

var (
	invalidateGranularity string
	warmOnce              bool
	warmSymbols           []string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage cached price history",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached series",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CacheList(cmd.Context())
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate SYMBOL",
	Short: "Evict cached history of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CacheInvalidate(cmd.Context(), args[0], invalidateGranularity)
	},
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-load history for the watchlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CacheWarm(cmd.Context(), app.WarmOptions{
			Once:    warmOnce,
			Symbols: warmSymbols,
		})
	},
}

func init() {
	cacheInvalidateCmd.Flags().StringVar(&invalidateGranularity, "granularity", "", "daily, weekly or monthly; empty evicts all")
	cacheWarmCmd.Flags().BoolVar(&warmOnce, "once", false, "Run a single warm pass instead of following warm.schedule")
	cacheWarmCmd.Flags().StringSliceVar(&warmSymbols, "symbols", nil, "Symbols to warm; defaults to warm.symbols")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheWarmCmd)
}

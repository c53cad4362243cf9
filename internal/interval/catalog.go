package interval

import (
	"strings"
	"time"
)

// Granularity is the upstream sampling frequency of a history series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Unbounded marks an option without a lookback limit or fallback count.
const Unbounded = 0

const defaultValue = "1M"

// Option is a single catalog entry.
type Option struct {
	Label           string
	Value           string
	Granularity     Granularity
	MaxLookbackDays int
	FallbackPoints  int
}

// Bounded reports whether the option filters by calendar window.
func (o Option) Bounded() bool {
	return o.MaxLookbackDays != Unbounded
}

// Lookback returns the calendar span covered by the option. Zero for ALL.
func (o Option) Lookback() time.Duration {
	return time.Duration(o.MaxLookbackDays) * 24 * time.Hour
}

var catalog = []Option{
	{Label: "1D", Value: "1D", Granularity: Daily, MaxLookbackDays: 1, FallbackPoints: 1},
	{Label: "1W", Value: "1W", Granularity: Daily, MaxLookbackDays: 7, FallbackPoints: 5},
	{Label: "1M", Value: "1M", Granularity: Daily, MaxLookbackDays: 30, FallbackPoints: 22},
	{Label: "1Y", Value: "1Y", Granularity: Daily, MaxLookbackDays: 365, FallbackPoints: 252},
	{Label: "3Y", Value: "3Y", Granularity: Weekly, MaxLookbackDays: 365 * 3, FallbackPoints: 156},
	{Label: "5Y", Value: "5Y", Granularity: Weekly, MaxLookbackDays: 365 * 5, FallbackPoints: 260},
	{Label: "10Y", Value: "10Y", Granularity: Monthly, MaxLookbackDays: 365 * 10, FallbackPoints: 520},
	{Label: "All", Value: "ALL", Granularity: Monthly, MaxLookbackDays: Unbounded, FallbackPoints: Unbounded},
}

// Options returns the catalog in display order.
func Options() []Option {
	out := make([]Option, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup resolves an interval identifier. Unknown identifiers resolve to 1M.
func Lookup(id string) Option {
	normalized := strings.ToUpper(strings.TrimSpace(id))
	for _, opt := range catalog {
		if opt.Value == normalized {
			return opt
		}
	}
	return Default()
}

// Known reports whether id names a catalog entry.
func Known(id string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(id))
	for _, opt := range catalog {
		if opt.Value == normalized {
			return true
		}
	}
	return false
}

// Default returns the 1M entry.
func Default() Option {
	for _, opt := range catalog {
		if opt.Value == defaultValue {
			return opt
		}
	}
	panic("interval catalog missing default entry")
}

// Granularities lists every granularity referenced by the catalog, in first-seen order.
func Granularities() []Granularity {
	seen := make(map[Granularity]bool, 3)
	out := make([]Granularity, 0, 3)
	for _, opt := range catalog {
		if seen[opt.Granularity] {
			continue
		}
		seen[opt.Granularity] = true
		out = append(out, opt.Granularity)
	}
	return out
}

// Package series holds the price history data model and the pure functions
// that turn an upstream history payload into a windowed chart series.
package series

import (
	"math"

	"github.com/shopspring/decimal"
)

// RawPoint is one OHLC observation as returned by the upstream history feed.
// Prices are nullable because the feed occasionally emits null bars.
type RawPoint struct {
	Timestamp string              `json:"timestamp"`
	Open      decimal.NullDecimal `json:"open"`
	High      decimal.NullDecimal `json:"high"`
	Low       decimal.NullDecimal `json:"low"`
	Close     decimal.NullDecimal `json:"close"`
}

// History is the upstream history payload. Data is most-recent-first.
type History struct {
	Symbol   string     `json:"symbol"`
	Interval string     `json:"interval"`
	Data     []RawPoint `json:"data"`
}

// EnrichedPoint is a RawPoint converted for charting plus a synthetic volume.
// Missing prices are NaN.
type EnrichedPoint struct {
	Timestamp string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Up reports whether the point closed at or above its open.
func (p EnrichedPoint) Up() bool {
	return p.Close >= p.Open
}

// NewRawPoint builds a RawPoint from float prices. Used by fixtures and simulators.
func NewRawPoint(timestamp string, open, high, low, close float64) RawPoint {
	return RawPoint{
		Timestamp: timestamp,
		Open:      decimal.NewNullDecimal(decimal.NewFromFloat(open)),
		High:      decimal.NewNullDecimal(decimal.NewFromFloat(high)),
		Low:       decimal.NewNullDecimal(decimal.NewFromFloat(low)),
		Close:     decimal.NewNullDecimal(decimal.NewFromFloat(close)),
	}
}

func toFloat(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return math.NaN()
	}
	return d.Decimal.InexactFloat64()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package series

import (
	"math"
	"strconv"
	"unicode/utf16"
)

const (
	volumeBase        = 120000
	volumeSpread      = 900000
	volumeMoveWeight  = 30000
	minMovementFactor = 0.5
)

// SyntheticVolume derives a stable pseudo-volume for a point. The upstream feed
// carries no volume, so the figure is seeded from the timestamp and the point's
// index in the received payload and scaled by the candle body size.
func SyntheticVolume(timestamp string, index int, close, open float64) int64 {
	hash := seedHash(timestamp + "-" + strconv.Itoa(index))

	movement := math.Abs(close - open)
	if !finite(movement) || movement < minMovementFactor {
		movement = minMovementFactor
	}

	variability := int64(hash % volumeSpread)
	if variability < 0 {
		variability = -variability
	}

	return int64(math.Floor(volumeBase + float64(variability) + movement*volumeMoveWeight))
}

// seedHash is the 31-multiplier string hash over UTF-16 code units with
// 32-bit signed wrap-around.
func seedHash(seed string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(seed)) {
		h = h*31 + int32(unit)
	}
	return h
}

// Enrich converts a most-recent-first upstream payload into chronological
// enriched points. Volume is seeded with each row's index in received order.
func Enrich(raw []RawPoint) []EnrichedPoint {
	out := make([]EnrichedPoint, len(raw))
	last := len(raw) - 1
	for idx, item := range raw {
		open := toFloat(item.Open)
		closePrice := toFloat(item.Close)
		out[last-idx] = EnrichedPoint{
			Timestamp: item.Timestamp,
			Open:      open,
			High:      toFloat(item.High),
			Low:       toFloat(item.Low),
			Close:     closePrice,
			Volume:    SyntheticVolume(item.Timestamp, idx, closePrice, open),
		}
	}
	return out
}

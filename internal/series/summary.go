package series

import "math"

// Summary is the OHLC box shown above the chart for the active window.
type Summary struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Summarize reports open/close/volume of the latest point and the extreme
// high/low over the window. ok is false for an empty window.
func Summarize(windowed []EnrichedPoint) (Summary, bool) {
	if len(windowed) == 0 {
		return Summary{}, false
	}

	latest := windowed[len(windowed)-1]
	sum := Summary{
		Open:   latest.Open,
		High:   math.Inf(-1),
		Low:    math.Inf(1),
		Close:  latest.Close,
		Volume: latest.Volume,
	}
	for _, p := range windowed {
		if finite(p.High) && p.High > sum.High {
			sum.High = p.High
		}
		if finite(p.Low) && p.Low < sum.Low {
			sum.Low = p.Low
		}
	}
	if math.IsInf(sum.High, 0) {
		sum.High = math.NaN()
	}
	if math.IsInf(sum.Low, 0) {
		sum.Low = math.NaN()
	}
	return sum, true
}

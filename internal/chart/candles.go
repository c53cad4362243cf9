package chart

import (
	"math"

	"stockchart/internal/series"
)

const (
	candleWidthRatio = 0.55
	minCandleWidth   = 3
	maxCandleWidth   = 10
	minBodyHeight    = 1
	volumeBarRatio   = 0.8
)

// Plot is the pixel area the series is drawn into.
type Plot struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Candle is the pixel geometry of one candlestick.
type Candle struct {
	Index      int
	CenterX    float64
	WickTop    float64
	WickBottom float64
	BodyLeft   float64
	BodyTop    float64
	BodyWidth  float64
	BodyHeight float64
	Up         bool
}

// Step is the horizontal spacing of n uniformly laid out points.
func (p Plot) Step(n int) float64 {
	if n <= 0 {
		return 0
	}
	return p.Width / float64(n)
}

// CenterX is the horizontal centre of point idx out of n.
func (p Plot) CenterX(idx, n int) float64 {
	step := p.Step(n)
	return p.Left + float64(idx)*step + step/2
}

// CandleWidth clamps the body width for a given step.
func CandleWidth(step float64) float64 {
	return math.Max(minCandleWidth, math.Min(maxCandleWidth, step*candleWidthRatio))
}

// LayoutCandles computes candlestick geometry for points inside plot using the
// price domain. Points with a non-finite price are skipped. A non-positive
// price range yields no candles.
func LayoutCandles(points []series.EnrichedPoint, domain Domain, plot Plot) []Candle {
	priceRange := domain.PriceMax - domain.PriceMin
	if len(points) == 0 || priceRange <= 0 || plot.Width <= 0 || plot.Height <= 0 {
		return nil
	}

	toY := func(v float64) float64 {
		normalized := (v - domain.PriceMin) / priceRange
		return plot.Top + plot.Height - normalized*plot.Height
	}

	n := len(points)
	width := CandleWidth(plot.Step(n))
	candles := make([]Candle, 0, n)
	for idx, p := range points {
		if !isFinite(p.Open) || !isFinite(p.High) || !isFinite(p.Low) || !isFinite(p.Close) {
			continue
		}
		yOpen, yClose := toY(p.Open), toY(p.Close)
		center := plot.CenterX(idx, n)
		candles = append(candles, Candle{
			Index:      idx,
			CenterX:    center,
			WickTop:    toY(p.High),
			WickBottom: toY(p.Low),
			BodyLeft:   center - width/2,
			BodyTop:    math.Min(yOpen, yClose),
			BodyWidth:  width,
			BodyHeight: math.Max(minBodyHeight, math.Abs(yOpen-yClose)),
			Up:         p.Up(),
		})
	}
	return candles
}

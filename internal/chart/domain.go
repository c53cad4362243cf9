// Package chart derives axis domains from a windowed series and renders the
// mountain and candlestick chart variants.
package chart

import (
	"math"

	"stockchart/internal/series"
)

const (
	pricePaddingRatio  = 0.08
	volumeHeadroom     = 4
	defaultPriceMin    = 0
	defaultPriceMax    = 100
	defaultVolumeMax   = 1_000_000
	degeneratePriceGap = 1
)

// Domain holds the padded price bounds and the raw volume maximum of a window.
type Domain struct {
	PriceMin  float64
	PriceMax  float64
	VolumeMax float64
}

// PriceDomain returns the price axis bounds.
func (d Domain) PriceDomain() [2]float64 {
	return [2]float64{d.PriceMin, d.PriceMax}
}

// VolumeDomain returns the volume axis bounds. The upper bound carries 4x
// headroom so volume bars stay low relative to the price series.
func (d Domain) VolumeDomain() [2]float64 {
	return [2]float64{0, d.VolumeMax * volumeHeadroom}
}

// ComputeDomain derives axis domains from a windowed series. Non-finite
// values are ignored; empty inputs fall back to 0..100 and 1,000,000 volume.
func ComputeDomain(points []series.EnrichedPoint) Domain {
	low, high := math.Inf(1), math.Inf(-1)
	volume := math.Inf(-1)
	for _, p := range points {
		if isFinite(p.Low) && p.Low < low {
			low = p.Low
		}
		if isFinite(p.High) && p.High > high {
			high = p.High
		}
		if v := float64(p.Volume); v > volume {
			volume = v
		}
	}
	if math.IsInf(low, 0) {
		low = defaultPriceMin
	}
	if math.IsInf(high, 0) {
		high = defaultPriceMax
	}
	if math.IsInf(volume, 0) {
		volume = defaultVolumeMax
	}

	padding := (high - low) * pricePaddingRatio
	return Domain{
		PriceMin:  math.Max(0, low-padding),
		PriceMax:  high + padding,
		VolumeMax: volume,
	}
}

// plotDomain widens a zero-width price domain so it can be drawn.
func (d Domain) plotDomain() Domain {
	if d.PriceMax > d.PriceMin {
		return d
	}
	out := d
	out.PriceMin = math.Max(0, d.PriceMin-degeneratePriceGap)
	out.PriceMax = d.PriceMax + degeneratePriceGap
	if out.VolumeMax <= 0 {
		out.VolumeMax = defaultVolumeMax
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

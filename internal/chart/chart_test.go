package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"stockchart/internal/entitlement"
	"stockchart/internal/series"
)

func testPoints(n int) []series.EnrichedPoint {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	points := make([]series.EnrichedPoint, n)
	for idx := range points {
		open := 100 + float64(idx)
		closing := open + 1
		if idx%2 == 1 {
			closing = open - 1
		}
		points[idx] = series.EnrichedPoint{
			Timestamp: start.AddDate(0, 0, idx).Format("2006-01-02"),
			Open:      open,
			High:      open + 2,
			Low:       open - 2,
			Close:     closing,
			Volume:    int64(200_000 + idx*1_000),
		}
	}
	return points
}

func TestComputeDomainPadsPriceAndKeepsRawVolume(t *testing.T) {
	points := []series.EnrichedPoint{
		{Low: 120, High: 401, Volume: 500_000},
		{Low: 99, High: 250, Volume: 1_250_000},
	}

	domain := ComputeDomain(points)
	require.InDelta(t, 74.84, domain.PriceMin, 1e-9)
	require.InDelta(t, 425.16, domain.PriceMax, 1e-9)
	require.Equal(t, float64(1_250_000), domain.VolumeMax)
	require.Equal(t, [2]float64{0, 5_000_000}, domain.VolumeDomain())
}

func TestComputeDomainDefaults(t *testing.T) {
	domain := ComputeDomain(nil)
	require.InDelta(t, 0, domain.PriceMin, 1e-9)
	require.InDelta(t, 108, domain.PriceMax, 1e-9)
	require.Equal(t, float64(defaultVolumeMax), domain.VolumeMax)
}

func TestComputeDomainClampsAtZeroAndIgnoresNaN(t *testing.T) {
	points := []series.EnrichedPoint{
		{Low: 1, High: 50, Volume: 10},
		{Low: math.NaN(), High: math.NaN(), Volume: 20},
	}

	domain := ComputeDomain(points)
	require.Equal(t, 0.0, domain.PriceMin)
	require.InDelta(t, 53.92, domain.PriceMax, 1e-9)
	require.Equal(t, 20.0, domain.VolumeMax)
}

func TestPlotDomainWidensFlatSeries(t *testing.T) {
	domain := ComputeDomain([]series.EnrichedPoint{{Low: 42, High: 42, Volume: 0}})
	require.Equal(t, 42.0, domain.PriceMin)
	require.Equal(t, 42.0, domain.PriceMax)

	plot := domain.plotDomain()
	require.Equal(t, 41.0, plot.PriceMin)
	require.Equal(t, 43.0, plot.PriceMax)
	require.Equal(t, float64(defaultVolumeMax), plot.VolumeMax)
}

func TestLayoutCandlesGeometry(t *testing.T) {
	points := []series.EnrichedPoint{
		{Open: 10, High: 30, Low: 5, Close: 20},
		{Open: 50, High: 60, Low: 40, Close: 50},
		{Open: math.NaN(), High: 60, Low: 40, Close: 50},
	}
	domain := Domain{PriceMin: 0, PriceMax: 100}
	plot := Plot{Width: 300, Height: 100}

	candles := LayoutCandles(points, domain, plot)
	require.Len(t, candles, 2)

	first := candles[0]
	require.Equal(t, 0, first.Index)
	require.InDelta(t, 50, first.CenterX, 1e-9)
	require.InDelta(t, 70, first.WickTop, 1e-9)
	require.InDelta(t, 95, first.WickBottom, 1e-9)
	require.InDelta(t, 80, first.BodyTop, 1e-9)
	require.InDelta(t, 10, first.BodyHeight, 1e-9)
	require.InDelta(t, 10, first.BodyWidth, 1e-9)
	require.InDelta(t, 45, first.BodyLeft, 1e-9)
	require.True(t, first.Up)

	flat := candles[1]
	require.Equal(t, 1, flat.Index)
	require.InDelta(t, 150, flat.CenterX, 1e-9)
	require.InDelta(t, minBodyHeight, flat.BodyHeight, 1e-9)
	require.True(t, flat.Up)
}

func TestLayoutCandlesEmptyAndFlatDomain(t *testing.T) {
	plot := Plot{Width: 100, Height: 100}
	require.Nil(t, LayoutCandles(nil, Domain{PriceMax: 1}, plot))
	require.Nil(t, LayoutCandles(testPoints(3), Domain{PriceMin: 5, PriceMax: 5}, plot))
}

func TestCandleWidthClamp(t *testing.T) {
	require.Equal(t, 3.0, CandleWidth(2))
	require.Equal(t, 10.0, CandleWidth(100))
	require.InDelta(t, 5.5, CandleWidth(10), 1e-9)
}

func TestSelectVariant(t *testing.T) {
	gate := entitlement.NewGate(entitlement.Pro)

	variant, err := SelectVariant(VariantCandlestick, entitlement.Free, gate)
	require.ErrorIs(t, err, ErrVariantLocked)
	require.Equal(t, VariantMountain, variant)

	for _, tier := range []entitlement.Tier{entitlement.Pro, entitlement.Premium} {
		variant, err = SelectVariant(VariantCandlestick, tier, gate)
		require.NoError(t, err)
		require.Equal(t, VariantCandlestick, variant)
	}

	variant, err = SelectVariant(VariantMountain, entitlement.Free, gate)
	require.NoError(t, err)
	require.Equal(t, VariantMountain, variant)
}

func TestControls(t *testing.T) {
	gate := entitlement.NewGate(entitlement.Pro)

	free := Controls(entitlement.Free, gate)
	require.Len(t, free, 2)
	require.True(t, free[0].Enabled)
	require.False(t, free[1].Enabled)
	require.Equal(t, "Requires PRO", free[1].Reason)

	pro := Controls(entitlement.Pro, gate)
	require.True(t, pro[1].Enabled)
	require.Empty(t, pro[1].Reason)
}

func TestParseVariant(t *testing.T) {
	for input, want := range map[string]Variant{
		"":            VariantMountain,
		"Mountain":    VariantMountain,
		" candles ":   VariantCandlestick,
		"candlestick": VariantCandlestick,
	} {
		got, err := ParseVariant(input)
		require.NoError(t, err)
		require.Equal(t, want, got, input)
	}

	_, err := ParseVariant("heikin-ashi")
	require.ErrorIs(t, err, ErrUnknownVariant)
}

func TestTickLabel(t *testing.T) {
	require.Equal(t, "Mar 5", TickLabel("2025-03-05", "1M"))
	require.Equal(t, "Mar 5", TickLabel("2025-03-05T14:30:00Z", "1d"))
	require.Equal(t, "Mar 25", TickLabel("2025-03-05", "1Y"))
	require.Equal(t, "Mar 25", TickLabel("2025-03-05", "ALL"))
	require.Equal(t, "garbage", TickLabel("garbage", "1Y"))
}

func TestXTicks(t *testing.T) {
	ticks := xTicks(testPoints(25), "1M")
	// 0,3,...,24 labelled plus the two bounds.
	require.Len(t, ticks, 11)
	require.Equal(t, 0.0, ticks[0].Value)
	require.Empty(t, ticks[0].Label)
	require.Equal(t, 25.0, ticks[len(ticks)-1].Value)
	require.Equal(t, "Jan 1", ticks[1].Label)
	require.Equal(t, 3.5, ticks[2].Value)

	single := xTicks(testPoints(1), "1D")
	require.Len(t, single, 3)
}

func newTestRenderer(format string) *Renderer {
	return NewRenderer(Options{Width: 640, Height: 320, Format: format}, zerolog.New(io.Discard))
}

func TestRenderPNG(t *testing.T) {
	points := testPoints(30)
	var buf bytes.Buffer

	err := newTestRenderer(FormatPNG).Render(&buf, Input{
		IntervalID: "1M",
		Points:     points,
		Domain:     ComputeDomain(points),
		Variant:    VariantMountain,
		Tier:       entitlement.Free,
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "expected png signature")
}

func TestRenderSVGCandlestick(t *testing.T) {
	points := testPoints(12)
	var mountain, candles bytes.Buffer
	renderer := newTestRenderer(FormatSVG)

	in := Input{IntervalID: "1Y", Points: points, Domain: ComputeDomain(points), Variant: VariantMountain, Tier: entitlement.Pro}
	require.NoError(t, renderer.Render(&mountain, in))

	in.Variant = VariantCandlestick
	require.NoError(t, renderer.Render(&candles, in))

	require.Contains(t, candles.String(), "<svg")
	// Each candle contributes a wick and a body path on top of the volume bars.
	require.Greater(t, strings.Count(candles.String(), "<path"), strings.Count(mountain.String(), "<path"))
}

func TestRenderLockedVariantDrawsNothing(t *testing.T) {
	points := testPoints(5)
	var buf bytes.Buffer

	err := newTestRenderer(FormatSVG).Render(&buf, Input{
		IntervalID: "1W",
		Points:     points,
		Domain:     ComputeDomain(points),
		Variant:    VariantCandlestick,
		Tier:       entitlement.Free,
	})
	require.True(t, errors.Is(err, ErrVariantLocked))
	require.Zero(t, buf.Len())
}

func TestRenderNoData(t *testing.T) {
	var buf bytes.Buffer
	err := newTestRenderer(FormatSVG).Render(&buf, Input{IntervalID: "1D"})
	require.ErrorIs(t, err, ErrNoData)
	require.Equal(t, "no data available for this interval", fmt.Sprint(err))
}

func TestRenderSinglePoint(t *testing.T) {
	points := testPoints(1)
	var buf bytes.Buffer

	err := newTestRenderer(FormatSVG).Render(&buf, Input{
		IntervalID: "1D",
		Points:     points,
		Domain:     ComputeDomain(points),
		Variant:    VariantCandlestick,
		Tier:       entitlement.Premium,
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "<svg")
}

func TestNewRendererDefaults(t *testing.T) {
	renderer := NewRenderer(Options{Format: "JPEG", UpColor: "not-a-color"}, zerolog.Nop())
	require.Equal(t, FormatPNG, renderer.Format())
	require.Equal(t, entitlement.Pro, renderer.Gate().Required)
	require.Equal(t, parseColor(defaultUpColor, defaultUpColor), renderer.up)
}

package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"stockchart/internal/entitlement"
	"stockchart/internal/series"
)

// ErrNoData is returned when there is nothing to draw for the interval.
var ErrNoData = errors.New("no data available for this interval")

const (
	FormatPNG = "png"
	FormatSVG = "svg"

	defaultWidth     = 1200
	defaultHeight    = 500
	defaultUpColor   = "#00d19a"
	defaultDownColor = "#ff5252"
	backgroundColor  = "0b1020"
	axisColor        = "2a3a52"
	labelColor       = "9aa4b2"
	tickTarget       = 10
)

var hexColorPattern = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// Options configure the renderer.
type Options struct {
	Width     int
	Height    int
	Format    string
	UpColor   string
	DownColor string
	Gate      entitlement.Gate
}

// Input is one render request. Points must be the windowed series the domain
// was computed from.
type Input struct {
	IntervalID string
	Points     []series.EnrichedPoint
	Domain     Domain
	Variant    Variant
	Tier       entitlement.Tier
}

// Renderer draws chart variants with go-chart.
type Renderer struct {
	opts   Options
	up     drawing.Color
	down   drawing.Color
	logger zerolog.Logger
}

// NewRenderer constructs a renderer, filling unset options with defaults.
func NewRenderer(opts Options, logger zerolog.Logger) *Renderer {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	if opts.Format != FormatSVG {
		opts.Format = FormatPNG
	}
	if opts.Gate.Required == "" {
		opts.Gate = entitlement.NewGate(entitlement.Pro)
	}

	return &Renderer{
		opts:   opts,
		up:     parseColor(opts.UpColor, defaultUpColor),
		down:   parseColor(opts.DownColor, defaultDownColor),
		logger: logger.With().Str("component", "chart_renderer").Logger(),
	}
}

// Format returns the output encoding (png or svg).
func (r *Renderer) Format() string {
	return r.opts.Format
}

// Gate returns the entitlement gate applied to candlestick rendering.
func (r *Renderer) Gate() entitlement.Gate {
	return r.opts.Gate
}

// Render writes the requested variant to w. A locked variant is never drawn.
func (r *Renderer) Render(w io.Writer, in Input) error {
	if len(in.Points) == 0 {
		return ErrNoData
	}

	variant, err := SelectVariant(in.Variant, in.Tier, r.opts.Gate)
	if err != nil {
		return err
	}

	graph := r.build(in, variant)
	provider := gochart.PNG
	if r.opts.Format == FormatSVG {
		provider = gochart.SVG
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("render %s chart: %w", variant, err)
	}

	r.logger.Debug().
		Str("variant", string(variant)).
		Str("interval", in.IntervalID).
		Int("points", len(in.Points)).
		Msg("chart rendered")
	return nil
}

func (r *Renderer) build(in Input, variant Variant) gochart.Chart {
	domain := in.Domain.plotDomain()
	if domain.VolumeMax <= 0 {
		domain.VolumeMax = defaultVolumeMax
	}
	n := len(in.Points)

	axisStyle := gochart.Style{
		StrokeColor: drawing.ColorFromHex(axisColor),
		FontColor:   drawing.ColorFromHex(labelColor),
		FontSize:    9,
	}
	priceFormatter := func(v interface{}) string {
		return gochart.FloatValueFormatterWithFormat(v, "%.2f")
	}

	graph := gochart.Chart{
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		Background: gochart.Style{FillColor: drawing.ColorFromHex(backgroundColor), Padding: gochart.Box{Top: 20, Right: 30, Bottom: 20, Left: 10}},
		Canvas:     gochart.Style{FillColor: drawing.ColorFromHex(backgroundColor)},
		XAxis: gochart.XAxis{
			Style: axisStyle,
			Range: &gochart.ContinuousRange{Min: 0, Max: float64(n)},
			Ticks: xTicks(in.Points, in.IntervalID),
		},
		YAxis: gochart.YAxis{
			Style:          axisStyle,
			Range:          &gochart.ContinuousRange{Min: domain.PriceMin, Max: domain.PriceMax},
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: gochart.YAxis{
			Style: gochart.Style{Hidden: true},
			Range: &gochart.ContinuousRange{Min: 0, Max: domain.VolumeDomain()[1]},
		},
	}

	graph.Series = append(graph.Series, volumeSeries{points: in.Points, up: r.up, down: r.down})

	switch variant {
	case VariantCandlestick:
		graph.Series = append(graph.Series, candleSeries{points: in.Points, domain: domain, up: r.up, down: r.down})
	default:
		if mountain, ok := r.mountainSeries(in.Points); ok {
			graph.Series = append(graph.Series, mountain)
		}
	}
	return graph
}

func (r *Renderer) mountainSeries(points []series.EnrichedPoint) (gochart.ContinuousSeries, bool) {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for idx, p := range points {
		if !isFinite(p.Close) {
			continue
		}
		xs = append(xs, float64(idx)+0.5)
		ys = append(ys, p.Close)
	}
	if len(xs) == 0 {
		return gochart.ContinuousSeries{}, false
	}
	return gochart.ContinuousSeries{
		Name:    "Close",
		XValues: xs,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor: r.up,
			StrokeWidth: 2,
			FillColor:   r.up.WithAlpha(77),
		},
	}, true
}

// xTicks labels every floor(n/10)+1-th point. The bounding ticks pin the
// x range to [0, n].
func xTicks(points []series.EnrichedPoint, intervalID string) []gochart.Tick {
	n := len(points)
	every := n/tickTarget + 1
	ticks := []gochart.Tick{{Value: 0}}
	for idx := 0; idx < n; idx += every {
		ticks = append(ticks, gochart.Tick{Value: float64(idx) + 0.5, Label: TickLabel(points[idx].Timestamp, intervalID)})
	}
	return append(ticks, gochart.Tick{Value: float64(n)})
}

// TickLabel formats an x-axis label: day precision for 1D/1W/1M, month and
// year otherwise. Unparseable timestamps are shown as-is.
func TickLabel(timestamp, intervalID string) string {
	ts, ok := series.ParseTimestamp(timestamp)
	if !ok {
		return timestamp
	}
	switch strings.ToUpper(intervalID) {
	case "1D", "1W", "1M":
		return ts.Format("Jan 2")
	default:
		return ts.Format("Jan 06")
	}
}

func parseColor(value, fallback string) drawing.Color {
	if !hexColorPattern.MatchString(value) {
		value = fallback
	}
	return drawing.ColorFromHex(strings.TrimPrefix(value, "#"))
}

func px(v float64) int {
	return int(math.Round(v))
}

type candleSeries struct {
	points []series.EnrichedPoint
	domain Domain
	up     drawing.Color
	down   drawing.Color
}

func (s candleSeries) GetName() string             { return "Candles" }
func (s candleSeries) GetStyle() gochart.Style     { return gochart.Style{} }
func (s candleSeries) GetYAxis() gochart.YAxisType { return gochart.YAxisPrimary }
func (s candleSeries) Validate() error {
	if len(s.points) == 0 {
		return ErrNoData
	}
	return nil
}

func (s candleSeries) Render(r gochart.Renderer, canvas gochart.Box, _, _ gochart.Range, _ gochart.Style) {
	plot := Plot{
		Left:   float64(canvas.Left),
		Top:    float64(canvas.Top),
		Width:  float64(canvas.Width()),
		Height: float64(canvas.Height()),
	}
	for _, c := range LayoutCandles(s.points, s.domain, plot) {
		color := s.down
		if c.Up {
			color = s.up
		}

		r.SetStrokeColor(color)
		r.SetStrokeWidth(1)
		r.MoveTo(px(c.CenterX), px(c.WickTop))
		r.LineTo(px(c.CenterX), px(c.WickBottom))
		r.Stroke()

		left, top := px(c.BodyLeft), px(c.BodyTop)
		right, bottom := px(c.BodyLeft+c.BodyWidth), px(c.BodyTop+c.BodyHeight)
		r.SetFillColor(color)
		r.MoveTo(left, top)
		r.LineTo(right, top)
		r.LineTo(right, bottom)
		r.LineTo(left, bottom)
		r.Close()
		r.Fill()
		r.ResetStyle()
	}
}

type volumeSeries struct {
	points []series.EnrichedPoint
	up     drawing.Color
	down   drawing.Color
}

func (s volumeSeries) GetName() string             { return "Volume" }
func (s volumeSeries) GetStyle() gochart.Style     { return gochart.Style{} }
func (s volumeSeries) GetYAxis() gochart.YAxisType { return gochart.YAxisSecondary }
func (s volumeSeries) Validate() error {
	if len(s.points) == 0 {
		return ErrNoData
	}
	return nil
}

func (s volumeSeries) Render(r gochart.Renderer, canvas gochart.Box, _, yrange gochart.Range, _ gochart.Style) {
	plot := Plot{Left: float64(canvas.Left), Width: float64(canvas.Width())}
	n := len(s.points)
	width := math.Max(1, plot.Step(n)*volumeBarRatio)
	for idx, p := range s.points {
		color := s.down
		if p.Up() {
			color = s.up
		}
		center := plot.CenterX(idx, n)
		left, right := px(center-width/2), px(center+width/2)
		top := canvas.Bottom - yrange.Translate(float64(p.Volume))

		r.SetFillColor(color.WithAlpha(90))
		r.MoveTo(left, top)
		r.LineTo(right, top)
		r.LineTo(right, canvas.Bottom)
		r.LineTo(left, canvas.Bottom)
		r.Close()
		r.Fill()
		r.ResetStyle()
	}
}

var (
	_ gochart.Series = candleSeries{}
	_ gochart.Series = volumeSeries{}
)

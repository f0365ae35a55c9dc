// Package render draws aggregated metric series as line charts.
package render

import (
	"errors"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/carbocation/hmmdash/aggregate"
	"github.com/carbocation/hmmdash/palette"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoData = errors.New("no series has any data to plot")

type Format int

const (
	PNG Format = iota
	SVG
)

// ParseFormat accepts "png" and "svg".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	}
	return PNG, errors.New("unknown chart format " + strconv.Quote(s))
}

type Options struct {
	Title  string
	YLabel string
	Width  int
	Height int
	Format Format

	// Predictors and Datasets default to the palette package maps.
	Predictors palette.Map
	Datasets   palette.Map
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = 900
	}
	if o.Height == 0 {
		o.Height = 500
	}
	if o.Predictors == nil {
		o.Predictors = palette.Predictors
	}
	if o.Datasets == nil {
		o.Datasets = palette.Datasets
	}
	return o
}

// Render writes a chart of series to w. The x axis is log2 of the sequence
// length, labelled with the length itself. Absent points break a line into
// separate segments rather than being drawn as zero.
func Render(w io.Writer, series []aggregate.Series, opts Options) error {
	graph, err := Chart(series, opts)
	if err != nil {
		return err
	}

	provider := chart.PNG
	if opts.Format == SVG {
		provider = chart.SVG
	}

	return graph.Render(provider, w)
}

// Chart builds the go-chart value Render draws.
func Chart(series []aggregate.Series, opts Options) (chart.Chart, error) {
	opts = opts.withDefaults()

	yMin, yMax := math.Inf(1), math.Inf(-1)
	xMin, xMax := math.Inf(1), math.Inf(-1)
	seqLens := make(map[int]struct{})

	var lines []chart.Series
	var legend []chart.Series

	for _, s := range series {
		name, style := styleOf(s, opts)

		segments := Segments(s)
		if len(segments) == 0 {
			continue
		}
		legend = append(legend, chart.ContinuousSeries{Name: name, Style: style, XValues: []float64{0}, YValues: []float64{0}})

		for _, seg := range segments {
			xs := make([]float64, 0, len(seg))
			ys := make([]float64, 0, len(seg))
			for _, p := range seg {
				x := math.Log2(float64(p.SeqLen))
				xs = append(xs, x)
				ys = append(ys, p.Mean.Float64)
				xMin = math.Min(xMin, x)
				xMax = math.Max(xMax, x)
				yMin = math.Min(yMin, p.Mean.Float64)
				yMax = math.Max(yMax, p.Mean.Float64)
				seqLens[p.SeqLen] = struct{}{}
			}
			lines = append(lines, chart.ContinuousSeries{Name: name, Style: style, XValues: xs, YValues: ys})
		}
	}

	if len(lines) == 0 {
		return chart.Chart{}, ErrNoData
	}

	// A flat chart has no range for go-chart to draw on.
	if yMin == yMax {
		pad := math.Max(math.Abs(yMin)*0.05, 0.05)
		yMin, yMax = yMin-pad, yMax+pad
	}
	if xMin == xMax {
		xMin, xMax = xMin-0.5, xMax+0.5
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:  "Sequence length",
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
			Ticks: ticks(seqLens, xMin, xMax),
		},
		YAxis: chart.YAxis{
			Name:  opts.YLabel,
			Range: &chart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Series: lines,
	}

	// The legend gets one entry per series, not one per segment.
	graph.Elements = []chart.Renderable{chart.Legend(&chart.Chart{Series: legend})}

	return graph, nil
}

// Segments splits the points of s into maximal runs of present values.
func Segments(s aggregate.Series) [][]aggregate.Point {
	var out [][]aggregate.Point
	var current []aggregate.Point

	for _, p := range s.Points {
		if !p.Mean.Valid || p.SeqLen <= 0 {
			if len(current) > 0 {
				out = append(out, current)
				current = nil
			}
			continue
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		out = append(out, current)
	}

	return out
}

// ticks labels each plotted sequence length at its log2 position. go-chart
// takes the x range from the ticks when there are any, so unlabelled ticks
// mark a padded range that extends past the outermost length.
func ticks(seqLens map[int]struct{}, xMin, xMax float64) []chart.Tick {
	lens := make([]int, 0, len(seqLens))
	for l := range seqLens {
		lens = append(lens, l)
	}
	sort.Ints(lens)

	out := make([]chart.Tick, 0, len(lens)+2)
	if len(lens) == 0 || math.Log2(float64(lens[0])) > xMin {
		out = append(out, chart.Tick{Value: xMin})
	}
	for _, l := range lens {
		out = append(out, chart.Tick{Value: math.Log2(float64(l)), Label: strconv.Itoa(l)})
	}
	if len(lens) == 0 || math.Log2(float64(lens[len(lens)-1])) < xMax {
		out = append(out, chart.Tick{Value: xMax})
	}

	return out
}

// styleOf names and colors a series. In a dataset comparison the dataset
// decides the color.
func styleOf(s aggregate.Series, opts Options) (string, chart.Style) {
	st, _ := opts.Predictors.Predictor(s.Model)
	name := st.Label
	if s.Dataset != "" {
		ds := opts.Datasets.Style(s.Dataset)
		name = ds.Label + " " + name
		st.Color = ds.Color
	}

	col, err := palette.RGBA(st.Color)
	if err != nil {
		col, _ = palette.RGBA(palette.Fallback(name).Color)
	}
	c := drawing.Color{R: col.R, G: col.G, B: col.B, A: col.A}

	return name, chart.Style{
		StrokeColor: c,
		StrokeWidth: 2,
		DotColor:    c,
		DotWidth:    3,
	}
}

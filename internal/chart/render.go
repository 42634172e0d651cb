package chart

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Format is an image encoding.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

// ParseFormat maps user input to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "svg":
		return SVG, nil
	case "png":
		return PNG, nil
	}
	return "", dataset.Usagef("unknown image format %q (use svg or png)", s)
}

// Image is one rendered chart.
type Image struct {
	Name   string
	Format Format
	Data   []byte
}

// FileName returns Name with the format extension.
func (i Image) FileName() string { return i.Name + "." + string(i.Format) }

// Renderer draws Specs as images.
type Renderer struct {
	Format Format
	Width  int
	Height int
}

// DefaultRenderer returns an 800x500 SVG renderer.
func DefaultRenderer() Renderer {
	return Renderer{Format: SVG, Width: 800, Height: 500}
}

const (
	minDot = 3.0
	maxDot = 15.0
)

// Render validates s and draws it. Faceted bar charts give one image per
// facet value; every other spec gives one image.
func (r Renderer) Render(s Spec) ([]Image, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if r.Width <= 0 {
		r.Width = 800
	}
	if r.Height <= 0 {
		r.Height = 500
	}
	switch s.Kind {
	case Bar:
		return r.bars(s)
	case Line, Scatter:
		img, err := r.xy(s)
		if err != nil {
			return nil, err
		}
		return []Image{img}, nil
	case Pie:
		img, err := r.pie(s)
		if err != nil {
			return nil, err
		}
		return []Image{img}, nil
	case Sunburst:
		img, err := r.sunburst(s)
		if err != nil {
			return nil, err
		}
		return []Image{img}, nil
	}
	return nil, dataset.Usagef("unknown chart kind %q", s.Kind)
}

type renderable interface {
	Render(rp gochart.RendererProvider, w io.Writer) error
}

func (r Renderer) encode(name string, c renderable) (Image, error) {
	provider := gochart.SVG
	if r.Format == PNG {
		provider = gochart.PNG
	}
	var buf bytes.Buffer
	if err := c.Render(provider, &buf); err != nil {
		return Image{}, fmt.Errorf("render %s chart: %w", name, err)
	}
	format := r.Format
	if format == "" {
		format = SVG
	}
	return Image{Name: name, Format: format, Data: buf.Bytes()}, nil
}

// label renders a cell for axis ticks and legends.
func label(c dataset.Cell) string {
	if c.IsNull() {
		return MissingLabel
	}
	return c.String()
}

// partition groups rows by the cells of c in order of first appearance.
// A nil column yields one group holding every row.
func partition(rows []int, c *dataset.Column) (labels []string, groups [][]int) {
	if c == nil {
		return []string{""}, [][]int{rows}
	}
	index := map[string]int{}
	for _, r := range rows {
		k := c.Cells[r].Key()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			labels = append(labels, label(c.Cells[r]))
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return labels, groups
}

func optional(t *dataset.Table, name string) *dataset.Column {
	if name == "" {
		return nil
	}
	c, err := t.Column(name)
	if err != nil {
		return nil
	}
	return c
}

func allRows(t *dataset.Table) []int {
	rows := make([]int, t.NumRows())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// span returns an axis range covering vals, widened when it would be empty.
func span(vals []float64, withZero bool) *gochart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	if withZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.05
	if withZero && lo == 0 {
		return &gochart.ContinuousRange{Min: 0, Max: hi + pad}
	}
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// xPositions maps rows to x coordinates. Numeric columns use their values;
// anything else is placed at the index of its first appearance and ticked
// with its label.
func xPositions(t *dataset.Table, name string) (pos map[int]float64, ticks []gochart.Tick, xr *gochart.ContinuousRange) {
	c, _ := t.Column(name)
	pos = make(map[int]float64, t.NumRows())
	if c.IsNumeric() {
		var vals []float64
		for r, v := range c.Cells {
			if f, ok := v.Float(); ok {
				pos[r] = f
				vals = append(vals, f)
			}
		}
		return pos, nil, span(vals, false)
	}
	labels, groups := partition(allRows(t), c)
	for i, rows := range groups {
		for _, r := range rows {
			pos[r] = float64(i)
		}
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: labels[i]})
	}
	// go-chart derives the axis range from the ticks, so blank end ticks
	// keep it from collapsing when there is a single category.
	hi := float64(len(labels)) - 0.5
	ticks = append([]gochart.Tick{{Value: -0.5}}, append(ticks, gochart.Tick{Value: hi})...)
	return pos, ticks, &gochart.ContinuousRange{Min: -0.5, Max: hi}
}

func (r Renderer) xy(s Spec) (Image, error) {
	t := s.Data
	b := s.Bindings
	pos, ticks, xr := xPositions(t, b.X)
	yc, _ := t.Column(b.Y)
	sizeCol := optional(t, b.Size)
	var sizeLo, sizeHi float64
	if sizeCol != nil {
		sizeLo, sizeHi = boundsOf(sizeCol.Floats())
	}

	labels, groups := partition(allRows(t), optional(t, b.Color))
	var series []gochart.Series
	var notes []gochart.Value2
	var ys []float64
	for gi, rows := range groups {
		color := gochart.GetDefaultColor(gi)
		var xv, yv, sizes []float64
		for _, row := range rows {
			x, okx := pos[row]
			y, oky := yc.Cells[row].Float()
			if !okx || !oky {
				continue
			}
			xv = append(xv, x)
			yv = append(yv, y)
			if sizeCol != nil {
				sz, ok := sizeCol.Cells[row].Float()
				if !ok {
					sz = sizeLo
				}
				sizes = append(sizes, sz)
			}
			if s.Labels {
				notes = append(notes, gochart.Value2{XValue: x, YValue: y, Label: dataset.NumberCell(y).String()})
			}
		}
		if len(xv) == 0 {
			continue
		}
		ys = append(ys, yv...)
		style := gochart.Style{StrokeColor: color, StrokeWidth: 2, DotColor: color}
		if s.Markers {
			style.DotWidth = 4
		}
		if s.Kind == Scatter {
			style.StrokeColor = drawing.ColorTransparent
			style.DotWidth = 5
			if sizeCol != nil {
				sz := sizes
				style.DotWidthProvider = func(_, _ gochart.Range, index int, _, _ float64) float64 {
					return scaleDot(sz[index], sizeLo, sizeHi)
				}
			}
		}
		name := labels[gi]
		if name == "" {
			name = b.Y
		}
		series = append(series, gochart.ContinuousSeries{Name: name, XValues: xv, YValues: yv, Style: style})
	}
	if len(series) == 0 {
		return Image{}, dataset.Usagef("%s chart: no rows with both %s and %s values", s.Kind, b.X, b.Y)
	}
	if len(notes) > 0 {
		series = append(series, gochart.AnnotationSeries{Annotations: notes})
	}

	ch := gochart.Chart{
		Title:      s.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: b.X, Range: xr, Ticks: ticks},
		YAxis:      gochart.YAxis{Name: b.Y, Range: span(ys, false)},
		Series:     series,
	}
	if len(groups) > 1 {
		ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	}
	return r.encode(string(s.Kind), ch)
}

func boundsOf(vals []float64) (lo, hi float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// scaleDot maps v from [lo, hi] onto the dot width range.
func scaleDot(v, lo, hi float64) float64 {
	if hi <= lo {
		return (minDot + maxDot) / 2
	}
	return minDot + (v-lo)/(hi-lo)*(maxDot-minDot)
}

func (r Renderer) bars(s Spec) ([]Image, error) {
	t := s.Data
	b := s.Bindings
	facet := optional(t, b.Facet)
	colorLabels, _ := partition(allRows(t), optional(t, b.Color))
	colorIndex := make(map[string]int, len(colorLabels))
	for i, l := range colorLabels {
		colorIndex[l] = i
	}
	if facet == nil {
		img, err := r.barImage(s, allRows(t), colorIndex, s.Title, string(s.Kind))
		if err != nil {
			return nil, err
		}
		return []Image{img}, nil
	}
	_, groups := partition(allRows(t), facet)
	sort.SliceStable(groups, func(i, j int) bool {
		return dataset.Compare(facet.Cells[groups[i][0]], facet.Cells[groups[j][0]]) < 0
	})
	var out []Image
	for _, rows := range groups {
		v := label(facet.Cells[rows[0]])
		img, err := r.barImage(s, rows, colorIndex,
			fmt.Sprintf("%s (%s=%s)", s.Title, b.Facet, v),
			fmt.Sprintf("%s-%s-%s", s.Kind, fileSafe(b.Facet), fileSafe(v)))
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// barImage draws rows as bars. Each x value gets one adjacent bar per color
// group, filled with the color colorIndex assigns to that group.
func (r Renderer) barImage(s Spec, rows []int, colorIndex map[string]int, title, name string) (Image, error) {
	t := s.Data
	b := s.Bindings
	xc, _ := t.Column(b.X)
	yc, _ := t.Column(b.Y)
	color := optional(t, b.Color)

	xLabels, xGroups := partition(rows, xc)

	var bars []gochart.Value
	var ys []float64
	for xi, xrows := range xGroups {
		labels, groups := partition(xrows, color)
		for gi, grows := range groups {
			total, seen := 0.0, false
			for _, row := range grows {
				if y, ok := yc.Cells[row].Float(); ok {
					total += y
					seen = true
				}
			}
			if !seen {
				continue
			}
			fill := gochart.GetDefaultColor(colorIndex[labels[gi]])
			text := xLabels[xi]
			if color != nil {
				text = xLabels[xi] + " · " + labels[gi]
			}
			bars = append(bars, gochart.Value{
				Value: total,
				Label: text,
				Style: gochart.Style{FillColor: fill, StrokeColor: fill, StrokeWidth: 1},
			})
			ys = append(ys, total)
		}
	}
	if len(bars) == 0 {
		return Image{}, dataset.Usagef("bar chart: no rows with a %s value", b.Y)
	}
	spacing := 10
	width := (r.Width-120)/len(bars) - spacing
	if width < 8 {
		width = 8
	}
	if width > 60 {
		width = 60
	}
	bc := gochart.BarChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		BarWidth:   width,
		BarSpacing: spacing,
		YAxis:      gochart.YAxis{Name: b.Y, Range: span(ys, true)},
		Bars:       bars,
	}
	return r.encode(name, bc)
}

func (r Renderer) pie(s Spec) (Image, error) {
	t := s.Data
	names, _ := t.Column(s.Bindings.Names)
	vals, _ := t.Column(s.Bindings.Values)

	// Rows sharing a name share a slice.
	labels, groups := partition(allRows(t), names)
	var slices []gochart.Value
	for i, rows := range groups {
		total := 0.0
		for _, row := range rows {
			if v, ok := vals.Cells[row].Float(); ok {
				total += v
			}
		}
		if total > 0 {
			slices = append(slices, gochart.Value{Value: total, Label: labels[i]})
		}
	}
	return r.pieImage(s, slices)
}

func (r Renderer) sunburst(s Spec) (Image, error) {
	root, err := BuildSunburst(s.Data, s.Bindings.Path, s.Bindings.Values)
	if err != nil {
		return Image{}, err
	}
	var slices []gochart.Value
	for _, leaf := range root.Leaves() {
		if leaf.Value > 0 {
			slices = append(slices, gochart.Value{Value: leaf.Value, Label: strings.Join(leaf.Path, " / ")})
		}
	}
	return r.pieImage(s, slices)
}

func (r Renderer) pieImage(s Spec, slices []gochart.Value) (Image, error) {
	if len(slices) == 0 {
		return Image{}, dataset.Usagef("%s chart: no positive values to draw", s.Kind)
	}
	pc := gochart.PieChart{
		Title:  s.Title,
		Width:  r.Width,
		Height: r.Height,
		Values: slices,
	}
	return r.encode(string(s.Kind), pc)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

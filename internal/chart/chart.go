// Package chart builds renderer-neutral chart specifications for the page
// payloads. Rendering is left to the client.
package chart

import (
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// Chart types.
const (
	TypeLine       = "line"
	TypeBar        = "bar"
	TypeScatter    = "scatter"
	TypePie        = "pie"
	TypeHeatmap    = "heatmap"
	TypeChoropleth = "choropleth"
)

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Spec describes one chart.
type Spec struct {
	Type       string      `json:"chartType"`
	Title      string      `json:"title"`
	XAxis      string      `json:"xAxis,omitempty"`
	YAxis      string      `json:"yAxis,omitempty"`
	Series     []Series    `json:"series,omitempty"`
	Grid       *Grid       `json:"grid,omitempty"`
	RangeX     *[2]float64 `json:"rangeX,omitempty"`
	RangeY     *[2]float64 `json:"rangeY,omitempty"`
	LogX       bool        `json:"logX,omitempty"`
	LogY       bool        `json:"logY,omitempty"`
	Stacked    bool        `json:"stacked,omitempty"`
	Colors     []string    `json:"colors,omitempty"`
	ShowLegend bool        `json:"showLegend"`
}

// Series is a named run of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"data"`
}

// Point is one mark. Y is null for missing values.
type Point struct {
	X     any      `json:"x,omitempty"`
	Y     *float64 `json:"y"`
	Label string   `json:"label,omitempty"`
	Size  float64  `json:"size,omitempty"`
}

// Grid is the body of a heatmap.
type Grid struct {
	Rows   []string     `json:"rows"`
	Cols   []string     `json:"cols"`
	Values [][]*float64 `json:"values"`
}

// P builds a point, mapping NaN to null.
func P(x any, y float64, label string) Point {
	return Point{X: x, Y: stats.Nullable(y), Label: label}
}

// SeriesBy groups rows into series named by name, in first-seen order.
func SeriesBy[T any](rows []T, name func(T) string, point func(T) Point) []Series {
	idx := map[string]int{}
	var out []Series
	for _, r := range rows {
		n := name(r)
		i, ok := idx[n]
		if !ok {
			i = len(out)
			idx[n] = i
			out = append(out, Series{Name: n})
		}
		out[i].Points = append(out[i].Points, point(r))
	}
	return out
}

func newSpec(typ, title, x, y string, series []Series) *Spec {
	return &Spec{
		Type:       typ,
		Title:      title,
		XAxis:      x,
		YAxis:      y,
		Series:     series,
		Colors:     assignColors(len(series)),
		ShowLegend: len(series) > 1,
	}
}

// Line is a multi-series line chart.
func Line(title, x, y string, series []Series) *Spec {
	return newSpec(TypeLine, title, x, y, series)
}

// Bar is a bar chart; several series stack when stacked is set.
func Bar(title, x, y string, series []Series, stacked bool) *Spec {
	s := newSpec(TypeBar, title, x, y, series)
	s.Stacked = stacked
	return s
}

// Scatter is a scatter chart with optional padded ranges.
func Scatter(title, x, y string, series []Series, rangeX, rangeY *[2]float64) *Spec {
	s := newSpec(TypeScatter, title, x, y, series)
	s.RangeX, s.RangeY = rangeX, rangeY
	return s
}

// Pie is a single-series pie chart.
func Pie(title string, points []Point) *Spec {
	s := newSpec(TypePie, title, "", "", []Series{{Name: title, Points: points}})
	s.Colors = assignColors(len(points))
	s.ShowLegend = true
	return s
}

// Heatmap lays out a labelled matrix; NaN cells are null.
func Heatmap(title, x, y string, rows, cols []string, values [][]float64) *Spec {
	g := &Grid{Rows: rows, Cols: cols, Values: make([][]*float64, len(values))}
	for i, row := range values {
		g.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			g.Values[i][j] = stats.Nullable(v)
		}
	}
	s := newSpec(TypeHeatmap, title, x, y, nil)
	s.Grid = g
	return s
}

// Choropleth colors countries by value; point labels are ISO alpha-3 codes.
func Choropleth(title, metric string, points []Point) *Spec {
	return newSpec(TypeChoropleth, title, "", metric, []Series{{Name: metric, Points: points}})
}

// Range converts a bound pair to the optional range form.
func Range(r [2]float64) *[2]float64 {
	if r == [2]float64{} {
		return nil
	}
	return &r
}

func assignColors(n int) []string {
	if n == 0 {
		return nil
	}
	colors := make([]string, n)
	for i := range colors {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

package cpi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/nomadcompass/internal/period"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// categoryLabels maps COICOP 1999 division codes to display labels.
var categoryLabels = map[string]string{
	"CP01": "Food & Non-Alcoholic Beverages",
	"CP03": "Clothing & Footwear",
	"CP04": "Housing",
	"CP06": "Health",
	"CP07": "Transport",
	"CP09": "Recreation & Culture",
	"CP11": "Restaurants & Hotels",
	"CP12": "Miscellaneous Goods & Services",
	"_T":   "Aggregate",
}

// CategoryLabel returns the display label for a COICOP code, or the code itself.
func CategoryLabel(code string) string {
	if l, ok := categoryLabels[code]; ok {
		return l
	}
	return code
}

// MaxCompareCountries bounds the categorical comparison.
const MaxCompareCountries = 2

// DefaultCompareCountry is preselected on the categorical page.
const DefaultCompareCountry = "United States"

// ErrTooManyCountries is returned when more than MaxCompareCountries are selected.
var ErrTooManyCountries = errors.New("too many countries selected")

// Categories lists distinct category labels, sorted.
func Categories(pts []Point) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range pts {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Select filters to the chosen countries and categories. No countries selects
// DefaultCompareCountry (or the first country); no categories selects all.
// It returns the effective country list.
func Select(pts []Point, countries, categories []string) ([]Point, []string, error) {
	if len(countries) > MaxCompareCountries {
		return nil, nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyCountries, len(countries), MaxCompareCountries)
	}
	if len(countries) == 0 {
		if d := pickDefault(Countries(pts), DefaultCompareCountry); d != "" {
			countries = []string{d}
		}
	}
	wantC := toSet(countries)
	wantK := toSet(categories)
	var out []Point
	for _, p := range pts {
		if !wantC[p.Country] && !wantC[p.CountryCode] {
			continue
		}
		if len(wantK) > 0 && !wantK[p.Category] && !wantK[p.CategoryCode] {
			continue
		}
		out = append(out, p)
	}
	return out, countries, nil
}

// StackedRow is the summed value of one country and category in a quarter.
type StackedRow struct {
	Quarter  string    `json:"quarter"`
	Time     time.Time `json:"time"`
	Country  string    `json:"country"`
	Category string    `json:"category"`
	Value    float64   `json:"value"`
}

// StackedByTime sums values by quarter, country and category, ordered by time.
func StackedByTime(pts []Point) []StackedRow {
	type key struct {
		q                 int
		country, category string
	}
	sums := map[key]*StackedRow{}
	var order []key
	for _, p := range pts {
		k := key{p.Quarter.Index(), p.Country, p.Category}
		r := sums[k]
		if r == nil {
			r = &StackedRow{Quarter: p.Quarter.String(), Time: p.Time, Country: p.Country, Category: p.Category}
			sums[k] = r
			order = append(order, k)
		}
		r.Value += p.Value
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.q != b.q {
			return a.q < b.q
		}
		if a.country != b.country {
			return a.country < b.country
		}
		return a.category < b.category
	})
	out := make([]StackedRow, len(order))
	for i, k := range order {
		out[i] = *sums[k]
	}
	return out
}

// TimeValue is a single point of a line series.
type TimeValue struct {
	Quarter string  `json:"quarter"`
	Value   float64 `json:"value"`
}

// Line is one country's series for a category.
type Line struct {
	Country string      `json:"country"`
	Points  []TimeValue `json:"points"`
}

// CategoryLines returns one time-ordered series per country for category.
func CategoryLines(pts []Point, category string) []Line {
	byCountry := map[string][]Point{}
	for _, p := range pts {
		if p.Category == category || p.CategoryCode == category {
			byCountry[p.Country] = append(byCountry[p.Country], p)
		}
	}
	names := make([]string, 0, len(byCountry))
	for n := range byCountry {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Line, 0, len(names))
	for _, n := range names {
		ps := byCountry[n]
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Quarter.Before(ps[j].Quarter) })
		l := Line{Country: n, Points: make([]TimeValue, len(ps))}
		for i, p := range ps {
			l.Points[i] = TimeValue{Quarter: p.Quarter.String(), Value: p.Value}
		}
		out = append(out, l)
	}
	return out
}

// YoYRow is the YoY change of one country and category.
type YoYRow struct {
	Country  string  `json:"country"`
	Category string  `json:"category"`
	Quarter  string  `json:"quarter"`
	YoY      float64 `json:"yoy_change"`
}

// LatestYoY returns the YoY changes at the latest quarter in pts, skipping
// missing values. The quarter is zero when pts is empty.
func LatestYoY(pts []Point) (period.Quarter, []YoYRow) {
	var latest period.Quarter
	for _, p := range pts {
		if latest.IsZero() || latest.Before(p.Quarter) {
			latest = p.Quarter
		}
	}
	var out []YoYRow
	for _, p := range pts {
		if p.Quarter != latest || math.IsNaN(p.YoY) {
			continue
		}
		out = append(out, YoYRow{Country: p.Country, Category: p.Category, Quarter: p.Quarter.String(), YoY: stats.Round2(p.YoY)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Country < out[j].Country
	})
	return latest, out
}

// Matrix is a labelled pivot table. Missing cells are NaN.
type Matrix struct {
	Rows   []string
	Cols   []string
	Values [][]float64
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]*float64, len(row))
		for j, v := range row {
			vals[i][j] = stats.Nullable(v)
		}
	}
	return json.Marshal(struct {
		Rows   []string     `json:"rows"`
		Cols   []string     `json:"cols"`
		Values [][]*float64 `json:"values"`
	}{m.Rows, m.Cols, vals})
}

// Heatmap pivots one country's values to quarters by categories, averaging
// duplicates and rounding to two decimals.
func Heatmap(pts []Point, country string) Matrix {
	var sel []Point
	for _, p := range pts {
		if p.Country == country || p.CountryCode == country {
			sel = append(sel, p)
		}
	}
	return pivot(sel, func(p Point) string { return p.Category })
}

// Pivot lays out all values with quarters as rows and "country | category"
// as columns.
func Pivot(pts []Point) Matrix {
	return pivot(pts, func(p Point) string { return p.Country + " | " + p.Category })
}

func pivot(pts []Point, colOf func(Point) string) Matrix {
	rowIdx := map[int]bool{}
	colSet := map[string]bool{}
	type cell struct {
		q   int
		col string
	}
	acc := map[cell][]float64{}
	for _, p := range pts {
		q := p.Quarter.Index()
		c := colOf(p)
		rowIdx[q] = true
		colSet[c] = true
		acc[cell{q, c}] = append(acc[cell{q, c}], p.Value)
	}
	quarters := make([]int, 0, len(rowIdx))
	for q := range rowIdx {
		quarters = append(quarters, q)
	}
	sort.Ints(quarters)
	cols := make([]string, 0, len(colSet))
	for c := range colSet {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	m := Matrix{Cols: cols, Rows: make([]string, len(quarters)), Values: make([][]float64, len(quarters))}
	for i, q := range quarters {
		m.Rows[i] = period.FromIndex(q).String()
		m.Values[i] = make([]float64, len(cols))
		for j, c := range cols {
			vals, ok := acc[cell{q, c}]
			if !ok {
				m.Values[i][j] = math.NaN()
				continue
			}
			m.Values[i][j] = stats.Round2(stats.Mean(vals))
		}
	}
	return m
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}

// Package nha shapes National Health Accounts indicators for the health
// expenditure page.
package nha

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// Preferred default selections.
const (
	DefaultIndicator  = "Current health expenditure (CHE) as percentage of GDP"
	DefaultYIndicator = "Current health expenditure (CHE) per capita"
	DefaultCountry    = "United States"
	// OOPSIndicator is stored PPP-adjusted by the import job.
	OOPSIndicator = "Out-of-Pocket Expenditure (OOPS) per Capita in US$"
)

// DefaultBreakdown are stacked when present.
var DefaultBreakdown = []string{
	"Current health expenditure (CHE) per capita",
	"Domestic general government health expenditure (GGHE-D) per capita",
	"Out-of-pocket (OOP) expenditure per capita",
}

// ErrUnknownIndicator is returned for an indicator absent from the data.
var ErrUnknownIndicator = errors.New("unknown indicator")

// Indicators lists distinct indicator names, sorted.
func Indicators(rows []dataset.NHARow) []string {
	return distinct(rows, func(r dataset.NHARow) string { return r.Indicator })
}

// Countries lists distinct country names, sorted.
func Countries(rows []dataset.NHARow) []string {
	return distinct(rows, func(r dataset.NHARow) string { return r.Country })
}

// Years lists distinct years, ascending.
func Years(rows []dataset.NHARow) []int {
	seen := map[int]bool{}
	var out []int
	for _, r := range rows {
		if !seen[r.Year] {
			seen[r.Year] = true
			out = append(out, r.Year)
		}
	}
	sort.Ints(out)
	return out
}

// Pick returns preferred when it is among options, else the first option.
func Pick(options []string, preferred string) string {
	for _, o := range options {
		if o == preferred {
			return o
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}

// FirstN returns up to n options.
func FirstN(options []string, n int) []string {
	if len(options) > n {
		return options[:n]
	}
	return options
}

// Validate checks that indicator exists in rows.
func Validate(rows []dataset.NHARow, indicator string) error {
	for _, r := range rows {
		if r.Indicator == indicator {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownIndicator, indicator)
}

// Trend returns the indicator rows of the selected countries ordered by
// country then year.
func Trend(rows []dataset.NHARow, indicator string, countries []string) []dataset.NHARow {
	want := toSet(countries)
	var out []dataset.NHARow
	for _, r := range rows {
		if r.Indicator == indicator && want[r.Country] {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// ScatterRow pairs two indicators for one country and year.
type ScatterRow struct {
	Country string  `json:"country"`
	Year    int     `json:"year"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Scatter is the animated X/Y comparison with padded axis ranges.
type Scatter struct {
	XIndicator string       `json:"x_indicator"`
	YIndicator string       `json:"y_indicator"`
	Rows       []ScatterRow `json:"rows"`
	RangeX     [2]float64   `json:"range_x"`
	RangeY     [2]float64   `json:"range_y"`
}

// BuildScatter inner-joins the x and y indicators on country and year for
// the selected countries. Ranges span [min*0.9, max*1.1].
func BuildScatter(rows []dataset.NHARow, x, y string, countries []string) Scatter {
	type key struct {
		country string
		year    int
	}
	want := toSet(countries)
	xs := map[key]float64{}
	ys := map[key]float64{}
	for _, r := range rows {
		if !want[r.Country] || math.IsNaN(r.Value) {
			continue
		}
		k := key{r.Country, r.Year}
		if r.Indicator == x {
			xs[k] = r.Value
		}
		if r.Indicator == y {
			ys[k] = r.Value
		}
	}
	s := Scatter{XIndicator: x, YIndicator: y}
	for k, xv := range xs {
		yv, ok := ys[k]
		if !ok {
			continue
		}
		s.Rows = append(s.Rows, ScatterRow{Country: k.country, Year: k.year, X: xv, Y: yv})
	}
	sort.Slice(s.Rows, func(i, j int) bool {
		if s.Rows[i].Year != s.Rows[j].Year {
			return s.Rows[i].Year < s.Rows[j].Year
		}
		return s.Rows[i].Country < s.Rows[j].Country
	})
	if len(s.Rows) > 0 {
		xv := make([]float64, len(s.Rows))
		yv := make([]float64, len(s.Rows))
		for i, r := range s.Rows {
			xv[i], yv[i] = r.X, r.Y
		}
		xlo, xhi, _ := stats.MinMax(xv)
		ylo, yhi, _ := stats.MinMax(yv)
		s.RangeX = [2]float64{xlo * 0.9, xhi * 1.1}
		s.RangeY = [2]float64{ylo * 0.9, yhi * 1.1}
	}
	return s
}

// ByCountry returns the indicator values for one year, largest first.
func ByCountry(rows []dataset.NHARow, indicator string, year int) []dataset.NHARow {
	out := filterYear(rows, indicator, year)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// Breakdown is the stacked composition of a country's spending over time.
type Breakdown struct {
	Country    string           `json:"country"`
	Indicators []string         `json:"indicators"`
	Rows       []dataset.NHARow `json:"rows"`
	Warning    string           `json:"warning,omitempty"`
}

const mixedUnitsWarning = "Selected indicators have different units (e.g. percentages and per capita values); their stacked sum may not be meaningful."

// BuildBreakdown selects the country's rows for the given indicators. Empty
// indicators selects DefaultBreakdown entries present in the data, or the
// first three indicators.
func BuildBreakdown(rows []dataset.NHARow, country string, indicators []string) Breakdown {
	if country == "" {
		country = Pick(Countries(rows), DefaultCountry)
	}
	if len(indicators) == 0 {
		indicators = DefaultBreakdownFor(rows)
	}
	want := toSet(indicators)
	b := Breakdown{Country: country, Indicators: indicators}
	for _, r := range rows {
		if r.Country == country && want[r.Indicator] {
			b.Rows = append(b.Rows, r)
		}
	}
	sort.SliceStable(b.Rows, func(i, j int) bool {
		if b.Rows[i].Year != b.Rows[j].Year {
			return b.Rows[i].Year < b.Rows[j].Year
		}
		return b.Rows[i].Indicator < b.Rows[j].Indicator
	})
	units := map[string]bool{}
	for _, r := range b.Rows {
		units[UnitClass(r.Indicator)] = true
	}
	if len(indicators) > 1 && len(units) > 1 {
		b.Warning = mixedUnitsWarning
	}
	return b
}

// DefaultBreakdownFor returns the default stacked indicators available in rows.
func DefaultBreakdownFor(rows []dataset.NHARow) []string {
	all := Indicators(rows)
	have := toSet(all)
	var out []string
	for _, d := range DefaultBreakdown {
		if have[d] {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = FirstN(all, 3)
	}
	return out
}

// UnitClass buckets an indicator by its unit as read from its name.
func UnitClass(indicator string) string {
	l := strings.ToLower(indicator)
	switch {
	case strings.Contains(l, "percentage") || strings.Contains(l, "%"):
		return "percentage"
	case strings.Contains(l, "per capita"):
		return "per capita"
	case strings.Contains(l, "us$"):
		return "us$"
	}
	return "other"
}

// TopBottomBounds returns the allowed range for the number of countries.
func TopBottomBounds(rows []dataset.NHARow) (lo, hi int) {
	hi = len(Countries(rows))
	if hi > 20 {
		hi = 20
	}
	return 5, hi
}

// TopBottom returns the n highest (top) or lowest values of the indicator in
// year. n is clamped to TopBottomBounds.
func TopBottom(rows []dataset.NHARow, indicator string, year, n int, top bool) []dataset.NHARow {
	lo, hi := TopBottomBounds(rows)
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	out := filterYear(rows, indicator, year)
	sort.SliceStable(out, func(i, j int) bool {
		if top {
			return out[i].Value > out[j].Value
		}
		return out[i].Value < out[j].Value
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func filterYear(rows []dataset.NHARow, indicator string, year int) []dataset.NHARow {
	var out []dataset.NHARow
	for _, r := range rows {
		if r.Indicator == indicator && r.Year == year && !math.IsNaN(r.Value) {
			out = append(out, r)
		}
	}
	return out
}

func distinct(rows []dataset.NHARow, f func(dataset.NHARow) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		v := f(r)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}

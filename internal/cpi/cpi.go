// Package cpi prepares quarterly consumer price index series: year-over-year
// change, stability ranking, population joins and per-category views.
package cpi

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/nomadcompass/internal/country"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/period"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// Point is one prepared quarterly observation.
type Point struct {
	CountryCode  string
	Country      string
	CategoryCode string
	Category     string
	Quarter      period.Quarter
	Time         time.Time
	Year         int
	Value        float64
	YoY          float64 // percent; NaN without a base one year earlier
	Population   float64 // NaN unless joined
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CountryCode string   `json:"country_code"`
		Country     string   `json:"country"`
		Category    string   `json:"category"`
		Quarter     string   `json:"quarter"`
		Time        string   `json:"time"`
		Year        int      `json:"year"`
		Value       float64  `json:"value"`
		YoY         *float64 `json:"yoy_change"`
		Population  *float64 `json:"population,omitempty"`
	}{
		p.CountryCode, p.Country, p.Category, p.Quarter.String(), p.Time.Format("2006-01-02"), p.Year,
		p.Value, stats.Nullable(p.YoY), stats.Nullable(p.Population),
	})
}

// Prepare names countries, parses periods, labels categories and computes
// year-over-year change within each country and category. Points are sorted
// by country, category and time.
func Prepare(recs []dataset.CPIRecord) ([]Point, error) {
	names := map[string]string{}
	out := make([]Point, 0, len(recs))
	for _, r := range recs {
		q, err := period.ParseQuarter(r.TimePeriod)
		if err != nil {
			return nil, fmt.Errorf("convert CPI time period: %w", err)
		}
		name, ok := names[r.Country]
		if !ok {
			name = country.Name(r.Country)
			names[r.Country] = name
		}
		out = append(out, Point{
			CountryCode:  r.Country,
			Country:      name,
			CategoryCode: r.Category,
			Category:     CategoryLabel(r.Category),
			Quarter:      q,
			Time:         q.Start(),
			Year:         q.Year,
			Value:        r.Value,
			YoY:          math.NaN(),
			Population:   math.NaN(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Quarter.Before(b.Quarter)
	})
	computeYoY(out)
	return out, nil
}

// computeYoY expects points grouped by country and category.
func computeYoY(pts []Point) {
	start := 0
	for i := 1; i <= len(pts); i++ {
		if i < len(pts) && pts[i].CountryCode == pts[start].CountryCode && pts[i].CategoryCode == pts[start].CategoryCode {
			continue
		}
		byIndex := make(map[int]float64, i-start)
		for _, p := range pts[start:i] {
			byIndex[p.Quarter.Index()] = p.Value
		}
		for k := start; k < i; k++ {
			base, ok := byIndex[pts[k].Quarter.Add(-4).Index()]
			if !ok || base == 0 {
				continue
			}
			pts[k].YoY = (pts[k].Value/base - 1) * 100
		}
		start = i
	}
}

// Countries lists the distinct country names, sorted.
func Countries(pts []Point) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range pts {
		if !seen[p.Country] {
			seen[p.Country] = true
			out = append(out, p.Country)
		}
	}
	sort.Strings(out)
	return out
}

// StabilityRow ranks a country by the spread of its YoY changes; lower is
// more stable.
type StabilityRow struct {
	Country string  `json:"country"`
	Code    string  `json:"code"`
	Score   float64 `json:"cpi_stability_score"`
	Samples int     `json:"samples"`
}

// Stability returns the n countries with the smallest sample standard
// deviation of YoY change. Countries with fewer than two YoY values are
// left out. n <= 0 returns all.
func Stability(pts []Point, n int) []StabilityRow {
	type acc struct {
		code string
		vals []float64
	}
	groups := map[string]*acc{}
	for _, p := range pts {
		g := groups[p.Country]
		if g == nil {
			g = &acc{code: p.CountryCode}
			groups[p.Country] = g
		}
		if !math.IsNaN(p.YoY) {
			g.vals = append(g.vals, p.YoY)
		}
	}
	out := make([]StabilityRow, 0, len(groups))
	for name, g := range groups {
		sd := stats.SampleStd(g.vals)
		if math.IsNaN(sd) {
			continue
		}
		out = append(out, StabilityRow{Country: name, Code: g.code, Score: sd, Samples: len(g.vals)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Country < out[j].Country
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// JoinPopulation attaches the population of the matching country and year.
// Unmatched points keep a NaN population.
func JoinPopulation(pts []Point, pop []dataset.PopulationRow) []Point {
	idx := populationIndex(pop)
	out := make([]Point, len(pts))
	for i, p := range pts {
		if v, ok := idx[popKey{p.CountryCode, p.Year}]; ok {
			p.Population = v
		} else {
			p.Population = math.NaN()
		}
		out[i] = p
	}
	return out
}

// PopulationBounds returns the joined population range in millions, floored
// and ceiled to whole millions.
func PopulationBounds(pts []Point) (minM, maxM float64, ok bool) {
	vals := make([]float64, len(pts))
	for i, p := range pts {
		vals[i] = p.Population
	}
	lo, hi, ok := stats.MinMax(vals)
	if !ok {
		return 0, 0, false
	}
	return math.Floor(lo / 1e6), math.Ceil(hi / 1e6), true
}

// FilterPopulation keeps points whose population, in millions, lies within
// [minM, maxM]. Points without a population are dropped.
func FilterPopulation(pts []Point, minM, maxM float64) []Point {
	var out []Point
	for _, p := range pts {
		if math.IsNaN(p.Population) {
			continue
		}
		m := p.Population / 1e6
		if m >= minM && m <= maxM {
			out = append(out, p)
		}
	}
	return out
}

// AnnualRow is a country-year average joined with population.
type AnnualRow struct {
	Country    string  `json:"country"`
	Code       string  `json:"code"`
	Year       int     `json:"year"`
	Population float64 `json:"population"`
	AvgValue   float64 `json:"avg_annual_cpi_value"`
	AvgYoY     float64 `json:"-"`
}

func (r AnnualRow) MarshalJSON() ([]byte, error) {
	type plain AnnualRow
	return json.Marshal(struct {
		plain
		AvgYoY *float64 `json:"avg_annual_cpi_yoy_change"`
	}{plain(r), stats.Nullable(r.AvgYoY)})
}

// AnnualScatter averages value and YoY per country and year and keeps only
// country-years present in the population table.
func AnnualScatter(pts []Point, pop []dataset.PopulationRow) []AnnualRow {
	type acc struct {
		name      string
		vals, yoy []float64
	}
	groups := map[popKey]*acc{}
	var order []popKey
	for _, p := range pts {
		k := popKey{p.CountryCode, p.Year}
		g := groups[k]
		if g == nil {
			g = &acc{name: p.Country}
			groups[k] = g
			order = append(order, k)
		}
		g.vals = append(g.vals, p.Value)
		g.yoy = append(g.yoy, p.YoY)
	}
	idx := populationIndex(pop)
	var out []AnnualRow
	for _, k := range order {
		popv, ok := idx[k]
		if !ok {
			continue
		}
		g := groups[k]
		out = append(out, AnnualRow{
			Country:    g.name,
			Code:       k.code,
			Year:       k.year,
			Population: popv,
			AvgValue:   stats.Mean(g.vals),
			AvgYoY:     stats.Mean(g.yoy),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// ScatterColumns are the columns screened by the scatter outlier filter.
var ScatterColumns = []stats.Column[AnnualRow]{
	{Name: "Population", Value: func(r AnnualRow) float64 { return r.Population }},
	{Name: "Avg_Annual_CPI_Value", Value: func(r AnnualRow) float64 { return r.AvgValue }},
}

// ScatterDefaultYear picks 2022 when available, else the latest year.
func ScatterDefaultYear(rows []AnnualRow) (int, bool) {
	if len(rows) == 0 {
		return 0, false
	}
	lo, hi := rows[0].Year, rows[0].Year
	for _, r := range rows {
		if r.Year < lo {
			lo = r.Year
		}
		if r.Year > hi {
			hi = r.Year
		}
	}
	y := hi
	if y > 2022 {
		y = 2022
	}
	if y < lo {
		y = hi
	}
	return y, true
}

// DefaultDetailCountry is preselected on the country detail table.
const DefaultDetailCountry = "Aruba"

// CountryDetail returns all points for one country. An empty name selects
// DefaultDetailCountry, or the first country when that is absent.
func CountryDetail(pts []Point, name string) (string, []Point) {
	if name == "" {
		name = pickDefault(Countries(pts), DefaultDetailCountry)
	}
	var out []Point
	for _, p := range pts {
		if p.Country == name || p.CountryCode == name {
			out = append(out, p)
		}
	}
	return name, out
}

type popKey struct {
	code string
	year int
}

func populationIndex(pop []dataset.PopulationRow) map[popKey]float64 {
	idx := make(map[popKey]float64, len(pop))
	for _, r := range pop {
		if math.IsNaN(r.Population) {
			continue
		}
		idx[popKey{r.CCA3, r.Year}] = r.Population
	}
	return idx
}

func pickDefault(options []string, preferred string) string {
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

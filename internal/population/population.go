// Package population shapes the world population table for the population
// page: trends, rankings, density, shares, growth and projections.
package population

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// Row aliases the loaded population row.
type Row = dataset.PopulationRow

// ErrTooManyOutliers is returned when asked to remove every point.
var ErrTooManyOutliers = errors.New("cannot remove more outliers than available data points")

// Exclude drops the named countries and returns the suffix appended to chart
// titles, e.g. " (Excluding China, India)".
func Exclude(rows []Row, names []string) ([]Row, string) {
	if len(names) == 0 {
		return rows, ""
	}
	drop := map[string]bool{}
	for _, n := range names {
		drop[n] = true
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !drop[r.Country] && !drop[r.CCA3] {
			out = append(out, r)
		}
	}
	return out, " (Excluding " + strings.Join(names, ", ") + ")"
}

// Countries lists distinct country names, sorted.
func Countries(rows []Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		if !seen[r.Country] {
			seen[r.Country] = true
			out = append(out, r.Country)
		}
	}
	sort.Strings(out)
	return out
}

// Years lists distinct years, ascending.
func Years(rows []Row) []int {
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

// LatestYear returns the most recent year, or false when rows is empty.
func LatestYear(rows []Row) (int, bool) {
	ys := Years(rows)
	if len(ys) == 0 {
		return 0, false
	}
	return ys[len(ys)-1], true
}

// Trends returns the rows of the selected countries ordered by country and
// year. No countries selects the first five.
func Trends(rows []Row, countries []string) []Row {
	if len(countries) == 0 {
		all := Countries(rows)
		if len(all) > 5 {
			all = all[:5]
		}
		countries = all
	}
	want := map[string]bool{}
	for _, c := range countries {
		want[c] = true
	}
	var out []Row
	for _, r := range rows {
		if want[r.Country] {
			out = append(out, r)
		}
	}
	sortByCountryYear(out)
	return out
}

// InYear returns the rows for one year in source order.
func InYear(rows []Row, year int) []Row {
	var out []Row
	for _, r := range rows {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}

// TopN returns the n most populous countries in the latest year. n is
// clamped to [1, min(50, countries in that year)]; n <= 0 selects 10.
func TopN(rows []Row, n int) (year int, out []Row) {
	year, ok := LatestYear(rows)
	if !ok {
		return 0, nil
	}
	latest := InYear(rows, year)
	hi := len(latest)
	if hi > 50 {
		hi = 50
	}
	if n <= 0 {
		n = 10
	}
	if n > hi {
		n = hi
	}
	sort.SliceStable(latest, func(i, j int) bool { return latest[i].Population > latest[j].Population })
	return year, latest[:n]
}

// Density is the density-versus-area scatter with padded axis ranges.
type Density struct {
	Year        int        `json:"year"`
	Rows        []Row      `json:"rows"`
	RangeX      [2]float64 `json:"range_x"`
	RangeY      [2]float64 `json:"range_y"`
	LogX        bool       `json:"log_x"`
	TitleSuffix string     `json:"title_suffix,omitempty"`
}

// DensityVsArea returns the rows of year with area, density and population,
// optionally without the removeTop densest entries.
func DensityVsArea(rows []Row, year, removeTop int) (Density, error) {
	var sel []Row
	for _, r := range InYear(rows, year) {
		if math.IsNaN(r.Area) || math.IsNaN(r.Density) || math.IsNaN(r.Population) {
			continue
		}
		sel = append(sel, r)
	}
	d := Density{Year: year, LogX: true}
	if removeTop > 0 && len(sel) > 0 {
		if removeTop >= len(sel) {
			return Density{}, fmt.Errorf("%w: %d of %d", ErrTooManyOutliers, removeTop, len(sel))
		}
		sort.SliceStable(sel, func(i, j int) bool { return sel[i].Density > sel[j].Density })
		sel = sel[removeTop:]
		d.TitleSuffix = fmt.Sprintf(" (Top %d Density Outliers Removed)", removeTop)
	}
	d.Rows = sel
	if len(sel) > 0 {
		areas := make([]float64, len(sel))
		dens := make([]float64, len(sel))
		for i, r := range sel {
			areas[i], dens[i] = r.Area, r.Density
		}
		alo, ahi, _ := stats.MinMax(areas)
		dlo, dhi, _ := stats.MinMax(dens)
		d.RangeX = [2]float64{math.Max(1, alo*0.9), ahi * 1.1}
		d.RangeY = [2]float64{math.Max(0.1, dlo*0.9), dhi * 1.1}
	}
	return d, nil
}

// ShareSlice is one pie slice of world population share.
type ShareSlice struct {
	Country    string  `json:"country"`
	CCA3       string  `json:"cca3"`
	Share      float64 `json:"world_population_pct"`
	Population float64 `json:"population"`
}

// OtherCountries labels the folded slice.
const OtherCountries = "Other Countries"

// WorldShare returns the shares for year, largest first, folding countries
// below threshold percent into a single "Other Countries" slice. Rows without
// a share are left out.
func WorldShare(rows []Row, year int, threshold float64) []ShareSlice {
	var sel []Row
	for _, r := range InYear(rows, year) {
		if !math.IsNaN(r.WorldShare) {
			sel = append(sel, r)
		}
	}
	sort.SliceStable(sel, func(i, j int) bool { return sel[i].WorldShare > sel[j].WorldShare })
	var out []ShareSlice
	other := ShareSlice{Country: OtherCountries, CCA3: "OTH"}
	folded := 0
	for _, r := range sel {
		if r.WorldShare >= threshold {
			out = append(out, ShareSlice{Country: r.Country, CCA3: r.CCA3, Share: r.WorldShare, Population: r.Population})
			continue
		}
		other.Share += r.WorldShare
		if !math.IsNaN(r.Population) {
			other.Population += r.Population
		}
		folded++
	}
	if folded > 0 {
		out = append(out, other)
	}
	return out
}

// GrowthRates returns up to 50 rows of year with a growth rate, in source order.
func GrowthRates(rows []Row, year int) []Row {
	var out []Row
	for _, r := range InYear(rows, year) {
		if math.IsNaN(r.GrowthRate) {
			continue
		}
		out = append(out, r)
		if len(out) == 50 {
			break
		}
	}
	return out
}

// PopulationVsDensity returns the rows of year plottable on log-log axes.
func PopulationVsDensity(rows []Row, year int) []Row {
	var out []Row
	for _, r := range InYear(rows, year) {
		if math.IsNaN(r.Population) || math.IsNaN(r.Density) || r.Population <= 0 || r.Density <= 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MapCell is one country on a choropleth.
type MapCell struct {
	CCA3    string  `json:"cca3"`
	Country string  `json:"country"`
	Value   float64 `json:"value"`
}

// Choropleth returns population per country and log10 density for
// countries with a positive density.
func Choropleth(rows []Row, year int) (pop, logDensity []MapCell) {
	for _, r := range InYear(rows, year) {
		if r.CCA3 == "" {
			continue
		}
		if !math.IsNaN(r.Population) {
			pop = append(pop, MapCell{CCA3: r.CCA3, Country: r.Country, Value: r.Population})
		}
		if r.Density > 0 {
			logDensity = append(logDensity, MapCell{CCA3: r.CCA3, Country: r.Country, Value: math.Log10(r.Density)})
		}
	}
	return pop, logDensity
}

// Projection types.
const (
	Historical      = "Historical"
	ProjectedFuture = "Projected (Future)"
	ProjectedPast   = "Projected (Past)"
)

// ProjectedRow is a historical or compound-growth projected population.
type ProjectedRow struct {
	Row
	Type string
}

func (p ProjectedRow) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(p.Row)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	m["type"] = p.Type
	return json.Marshal(m)
}

// Project extends each country's history with compound-growth estimates.
// Future years after the latest observation grow the latest population by
// the latest growth rate; years before the earliest observation discount
// the earliest population by that same rate. Rows without a population,
// year or growth rate are ignored. The result has one row per country and
// year, historical rows first, ordered by country then year.
func Project(rows []Row, future, backcast []int) []ProjectedRow {
	byCountry := map[string][]Row{}
	var names []string
	for _, r := range rows {
		if math.IsNaN(r.Population) || math.IsNaN(r.GrowthRate) {
			continue
		}
		if _, ok := byCountry[r.Country]; !ok {
			names = append(names, r.Country)
		}
		byCountry[r.Country] = append(byCountry[r.Country], r)
	}

	var out []ProjectedRow
	for _, name := range names {
		hist := byCountry[name]
		latest, earliest := hist[0], hist[0]
		for _, r := range hist {
			out = append(out, ProjectedRow{Row: r, Type: Historical})
			if r.Year > latest.Year {
				latest = r
			}
			if r.Year < earliest.Year {
				earliest = r
			}
		}
		g := latest.GrowthRate / 100
		for _, y := range future {
			if y <= latest.Year {
				continue
			}
			p := latest
			p.Year = y
			p.Population = latest.Population * math.Pow(1+g, float64(y-latest.Year))
			out = append(out, ProjectedRow{Row: p, Type: ProjectedFuture})
		}
		for _, y := range backcast {
			if y >= earliest.Year {
				continue
			}
			p := earliest
			p.Year = y
			if 1+g == 0 {
				p.Population = math.NaN()
			} else {
				p.Population = earliest.Population / math.Pow(1+g, float64(earliest.Year-y))
			}
			out = append(out, ProjectedRow{Row: p, Type: ProjectedPast})
		}
	}

	type key struct {
		country string
		year    int
	}
	seen := map[key]bool{}
	dedup := out[:0]
	for _, r := range out {
		k := key{r.Country, r.Year}
		if seen[k] {
			continue
		}
		seen[k] = true
		dedup = append(dedup, r)
	}
	sort.SliceStable(dedup, func(i, j int) bool {
		if dedup[i].Country != dedup[j].Country {
			return dedup[i].Country < dedup[j].Country
		}
		return dedup[i].Year < dedup[j].Year
	})
	return dedup
}

func sortByCountryYear(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Country != rows[j].Country {
			return rows[i].Country < rows[j].Country
		}
		return rows[i].Year < rows[j].Year
	})
}

package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/nomadcompass/internal/country"
	"github.com/KaramelBytes/nomadcompass/internal/cpi"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

var (
	// ErrTooFewCountries is returned when fewer than two countries survive cleaning.
	ErrTooFewCountries = errors.New("not enough countries with complete data to perform clustering")
	// ErrUnknownFeature is returned when a selected feature is not in the matrix.
	ErrUnknownFeature = errors.New("unknown feature")
)

// Matrix is a country by feature table. Missing cells are NaN.
type Matrix struct {
	Countries []string
	Features  []string
	Values    [][]float64
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
		Countries []string     `json:"countries"`
		Features  []string     `json:"features"`
		Values    [][]*float64 `json:"values"`
	}{m.Countries, m.Features, vals})
}

// Column returns the values of one feature.
func (m Matrix) Column(j int) []float64 {
	out := make([]float64, len(m.Values))
	for i, row := range m.Values {
		out[i] = row[j]
	}
	return out
}

// displayName normalizes a source country name to its canonical display name.
func displayName(name string) string {
	return country.Name(country.Key(name))
}

type cell map[string]map[string]float64 // country -> feature -> value

func (c cell) set(countryName, feature string, v float64) {
	row := c[countryName]
	if row == nil {
		row = map[string]float64{}
		c[countryName] = row
	}
	row[feature] = v
}

func (c cell) matrix(features []string) Matrix {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	m := Matrix{Countries: names, Features: features, Values: make([][]float64, len(names))}
	for i, n := range names {
		m.Values[i] = make([]float64, len(features))
		for j, f := range features {
			v, ok := c[n][f]
			if !ok {
				v = math.NaN()
			}
			m.Values[i][j] = v
		}
	}
	return m
}

// CPIFeatures summarizes each country's categorical CPI: mean and sample
// standard deviation of the index and mean YoY change, per category.
func CPIFeatures(pts []cpi.Point) Matrix {
	type key struct{ country, category string }
	vals := map[key][]float64{}
	yoy := map[key][]float64{}
	cats := map[string]bool{}
	for _, p := range pts {
		if math.IsNaN(p.Value) {
			continue
		}
		k := key{p.Country, p.Category}
		vals[k] = append(vals[k], p.Value)
		if !math.IsNaN(p.YoY) {
			yoy[k] = append(yoy[k], p.YoY)
		}
		cats[p.Category] = true
	}
	catList := make([]string, 0, len(cats))
	for c := range cats {
		catList = append(catList, c)
	}
	sort.Strings(catList)
	var features []string
	for _, prefix := range []string{"Avg_CPI_", "Std_CPI_", "Avg_YoY_CPI_"} {
		for _, c := range catList {
			features = append(features, prefix+c)
		}
	}
	c := cell{}
	for k, vs := range vals {
		c.set(k.country, "Avg_CPI_"+k.category, stats.Mean(vs))
		c.set(k.country, "Std_CPI_"+k.category, stats.SampleStd(vs))
		c.set(k.country, "Avg_YoY_CPI_"+k.category, stats.Mean(yoy[k]))
	}
	return c.matrix(features)
}

// NHAFeatures averages the PPP-adjusted value of each indicator per country.
// No indicators selects all of them.
func NHAFeatures(rows []dataset.NHARow, indicators []string) Matrix {
	want := map[string]bool{}
	for _, i := range indicators {
		want[i] = true
	}
	type key struct{ country, indicator string }
	vals := map[key][]float64{}
	inds := map[string]bool{}
	for _, r := range rows {
		if math.IsNaN(r.ValuePPP) || (len(want) > 0 && !want[r.Indicator]) {
			continue
		}
		k := key{displayName(r.Country), r.Indicator}
		vals[k] = append(vals[k], r.ValuePPP)
		inds[r.Indicator] = true
	}
	var features []string
	for i := range inds {
		features = append(features, "Avg_NHA_PPP_"+i)
	}
	sort.Strings(features)
	c := cell{}
	for k, vs := range vals {
		c.set(k.country, "Avg_NHA_PPP_"+k.indicator, stats.Mean(vs))
	}
	return c.matrix(features)
}

// PopulationFeatures averages population and density per country.
func PopulationFeatures(rows []dataset.PopulationRow) Matrix {
	pops := map[string][]float64{}
	dens := map[string][]float64{}
	for _, r := range rows {
		if math.IsNaN(r.Population) || math.IsNaN(r.Density) {
			continue
		}
		name := displayName(r.Country)
		if r.CCA3 != "" {
			name = country.Name(r.CCA3)
		}
		pops[name] = append(pops[name], r.Population)
		dens[name] = append(dens[name], r.Density)
	}
	c := cell{}
	for n, ps := range pops {
		c.set(n, "Avg_Population", stats.Mean(ps))
		c.set(n, "Avg_Density", stats.Mean(dens[n]))
	}
	return c.matrix([]string{"Avg_Population", "Avg_Density"})
}

// Merge outer-joins matrices on country. Features keep their input order.
func Merge(ms ...Matrix) Matrix {
	c := cell{}
	var features []string
	for _, m := range ms {
		features = append(features, m.Features...)
		for i, n := range m.Countries {
			if c[n] == nil {
				c[n] = map[string]float64{}
			}
			for j, f := range m.Features {
				if v := m.Values[i][j]; !math.IsNaN(v) {
					c.set(n, f, v)
				}
			}
		}
	}
	return c.matrix(features)
}

// Clean drops all-missing features, imputes the remaining gaps with feature
// means and drops countries that still have gaps.
func Clean(m Matrix) (Matrix, error) {
	var keep []int
	means := map[int]float64{}
	for j := range m.Features {
		col := stats.DropNaN(m.Column(j))
		if len(col) == 0 {
			continue
		}
		keep = append(keep, j)
		means[j] = stats.Mean(col)
	}
	out := Matrix{Features: make([]string, len(keep))}
	for k, j := range keep {
		out.Features[k] = m.Features[j]
	}
	for i, n := range m.Countries {
		row := make([]float64, len(keep))
		complete := true
		for k, j := range keep {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				v = means[j]
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
			}
			row[k] = v
		}
		if !complete || len(keep) == 0 {
			continue
		}
		out.Countries = append(out.Countries, n)
		out.Values = append(out.Values, row)
	}
	if len(out.Countries) < 2 {
		return out, fmt.Errorf("%w: %d remain", ErrTooFewCountries, len(out.Countries))
	}
	return out, nil
}

// Select keeps the named features in the given order. No features keeps all.
func Select(m Matrix, features []string) (Matrix, error) {
	if len(features) == 0 {
		return m, nil
	}
	idx := make(map[string]int, len(m.Features))
	for j, f := range m.Features {
		idx[f] = j
	}
	cols := make([]int, len(features))
	for k, f := range features {
		j, ok := idx[f]
		if !ok {
			return Matrix{}, fmt.Errorf("%w: %q", ErrUnknownFeature, f)
		}
		cols[k] = j
	}
	out := Matrix{Countries: m.Countries, Features: features, Values: make([][]float64, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = make([]float64, len(cols))
		for k, j := range cols {
			out.Values[i][k] = row[j]
		}
	}
	return out, nil
}

// Scale standardizes each column to zero mean and unit population standard
// deviation. Constant columns scale to zero.
func Scale(x [][]float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	f := len(x[0])
	out := make([][]float64, len(x))
	for i := range out {
		out[i] = make([]float64, f)
	}
	col := make([]float64, len(x))
	for j := 0; j < f; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean := stats.Mean(col)
		sd := stats.PopStd(col)
		for i := range x {
			if sd == 0 || math.IsNaN(sd) {
				out[i][j] = 0
				continue
			}
			out[i][j] = (x[i][j] - mean) / sd
		}
	}
	return out
}

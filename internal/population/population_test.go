package population

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func sample() []Row {
	mk := func(code, name string, year int, pop, area, dens, growth, share float64) Row {
		return Row{CCA3: code, Country: name, Year: year, Population: pop, Area: area, Density: dens, GrowthRate: growth, WorldShare: share, Rank: math.NaN()}
	}
	return []Row{
		mk("CHN", "China", 2020, 1400e6, 9.7e6, 150, 0.5, 18),
		mk("IND", "India", 2020, 1380e6, 3.3e6, 430, 1.0, 17.5),
		mk("USA", "United States", 2020, 331e6, 9.4e6, 36, 0.6, 4.2),
		mk("MCO", "Monaco", 2020, 39e3, 2, 19500, 0.7, 0.0005),
		mk("ABW", "Aruba", 2020, 106e3, 180, 590, math.NaN(), 0.001),
		mk("CHN", "China", 2022, 1425e6, 9.7e6, 152, 0, 17.9),
		mk("IND", "India", 2022, 1417e6, 3.3e6, 440, 0.7, 17.8),
		mk("USA", "United States", 2022, 338e6, 9.4e6, 37, 0.4, 4.2),
		mk("MCO", "Monaco", 2022, 36e3, 2, 18000, 0.7, 0.0005),
		mk("ABW", "Aruba", 2022, 106e3, 180, 590, 0.1, 0.001),
	}
}

func TestExcludeAndTrends(t *testing.T) {
	rows, suffix := Exclude(sample(), []string{"China", "India"})
	if suffix != " (Excluding China, India)" {
		t.Fatalf("suffix: %q", suffix)
	}
	if len(rows) != 6 {
		t.Fatalf("excluded rows: %d", len(rows))
	}
	tr := Trends(sample(), nil)
	if len(tr) != 10 || tr[0].Country != "Aruba" || tr[1].Year != 2022 {
		t.Fatalf("default trends: %+v", tr[:2])
	}
	if got := Trends(sample(), []string{"Monaco"}); len(got) != 2 {
		t.Fatalf("selected trends: %d", len(got))
	}
}

func TestTopNClamps(t *testing.T) {
	year, top := TopN(sample(), 0)
	if year != 2022 || len(top) != 5 || top[0].Country != "China" {
		t.Fatalf("top: %d %+v", year, top)
	}
	if _, one := TopN(sample(), -3); len(one) != 5 {
		t.Fatalf("default of 10 clamps to available countries")
	}
	if _, two := TopN(sample(), 2); len(two) != 2 || two[1].Country != "India" {
		t.Fatalf("top two: %+v", two)
	}
}

func TestDensityVsArea(t *testing.T) {
	d, err := DensityVsArea(sample(), 2022, 1)
	if err != nil {
		t.Fatalf("density: %v", err)
	}
	if len(d.Rows) != 4 || d.Rows[0].Country == "Monaco" {
		t.Fatalf("Monaco should be removed: %+v", d.Rows)
	}
	if !strings.Contains(d.TitleSuffix, "Top 1") || !d.LogX {
		t.Fatalf("suffix: %q", d.TitleSuffix)
	}
	if math.Abs(d.RangeX[0]-162) > 1e-9 || math.Abs(d.RangeY[0]-33.3) > 1e-9 {
		t.Fatalf("ranges: %v %v", d.RangeX, d.RangeY)
	}
	all, _ := DensityVsArea(sample(), 2022, 0)
	if all.RangeX[0] != 1.8 {
		t.Fatalf("area lower bound: %v", all.RangeX)
	}
	if _, err := DensityVsArea(sample(), 2022, 5); !errors.Is(err, ErrTooManyOutliers) {
		t.Fatalf("expected ErrTooManyOutliers, got %v", err)
	}
}

func TestWorldShareFoldsSmallCountries(t *testing.T) {
	rows := append(sample(),
		Row{CCA3: "XKX", Country: "Kosovo", Year: 2022, Population: 1.7e6, WorldShare: math.NaN(), Rank: math.NaN()},
		Row{CCA3: "VAT", Country: "Vatican City", Year: 2022, Population: math.NaN(), WorldShare: 0.0001, Rank: math.NaN()})
	slices := WorldShare(rows, 2022, 1.0)
	if len(slices) != 4 {
		t.Fatalf("slices: %+v", slices)
	}
	last := slices[3]
	if last.Country != OtherCountries || last.CCA3 != "OTH" || last.Population != 142e3 {
		t.Fatalf("other slice: %+v", last)
	}
	if math.IsNaN(last.Share) || last.Share <= 0 {
		t.Fatalf("other share = %v", last.Share)
	}
	if slices[0].Country != "India" && slices[0].Country != "China" {
		t.Fatalf("largest first: %+v", slices[0])
	}
}

func TestGrowthDensityAndMaps(t *testing.T) {
	if g := GrowthRates(sample(), 2020); len(g) != 4 {
		t.Fatalf("rows without growth are dropped: %d", len(g))
	}
	if pd := PopulationVsDensity(sample(), 2020); len(pd) != 5 {
		t.Fatalf("population vs density: %d", len(pd))
	}
	pop, dens := Choropleth(sample(), 2020)
	if len(pop) != 5 || len(dens) != 5 {
		t.Fatalf("choropleth: %d %d", len(pop), len(dens))
	}
	for _, c := range dens {
		if c.CCA3 == "USA" && math.Abs(c.Value-math.Log10(36)) > 1e-12 {
			t.Fatalf("log density: %v", c.Value)
		}
	}
}

func TestProjectGrowsAndDiscounts(t *testing.T) {
	rows := []Row{
		{Country: "Aland", CCA3: "ALA", Year: 2020, Population: 1000, GrowthRate: 1},
		{Country: "Aland", CCA3: "ALA", Year: 2022, Population: 1100, GrowthRate: 10},
		{Country: "Zed", CCA3: "ZED", Year: 2022, Population: 500, GrowthRate: -100},
		{Country: "Skip", CCA3: "SKP", Year: 2022, Population: 10, GrowthRate: math.NaN()},
	}
	out := Project(rows, []int{2022, 2024}, []int{2019, 2020})
	var types []string
	for _, r := range out {
		if r.Country == "Aland" {
			types = append(types, r.Type)
		}
	}
	if strings.Join(types, ",") != "Projected (Past),Historical,Historical,Projected (Future)" {
		t.Fatalf("types: %v", types)
	}
	if out[0].Year != 2019 || math.Abs(out[0].Population-1000/1.1) > 1e-9 {
		t.Fatalf("backcast uses the latest growth rate: %+v", out[0])
	}
	if math.Abs(out[3].Population-1100*1.21) > 1e-9 {
		t.Fatalf("future: %v", out[3].Population)
	}
	var zedPast []ProjectedRow
	for _, r := range out {
		if r.Country == "Zed" && r.Type == ProjectedPast {
			zedPast = append(zedPast, r)
		}
		if r.Country == "Skip" {
			t.Fatalf("rows without growth are ignored")
		}
	}
	if len(zedPast) != 2 || !math.IsNaN(zedPast[0].Population) {
		t.Fatalf("zero base growth backcasts to NaN: %+v", zedPast)
	}
	b, err := json.Marshal(zedPast[0])
	if err != nil || !strings.Contains(string(b), `"population":null`) || !strings.Contains(string(b), `"type":"Projected (Past)"`) {
		t.Fatalf("marshal: %s %v", b, err)
	}
}

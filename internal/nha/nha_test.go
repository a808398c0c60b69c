package nha

import (
	"errors"
	"math"
	"testing"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
)

const (
	gdpShare  = DefaultIndicator
	perCapita = DefaultYIndicator
	oop       = "Out-of-pocket (OOP) expenditure per capita"
)

func fixture() []dataset.NHARow {
	var rows []dataset.NHARow
	for i, c := range []string{"Austria", "Brazil", "Chile", "Denmark", "Egypt", "France", "United States"} {
		for _, y := range []int{2019, 2020} {
			base := float64(i + 1)
			rows = append(rows,
				dataset.NHARow{Country: c, Indicator: gdpShare, Year: y, Value: base + float64(y-2019), ValuePPP: math.NaN()},
				dataset.NHARow{Country: c, Indicator: perCapita, Year: y, Value: base * 1000, ValuePPP: base * 1100},
			)
		}
	}
	rows = append(rows, dataset.NHARow{Country: "United States", Indicator: oop, Year: 2020, Value: 1200})
	return rows
}

func TestListsAndDefaults(t *testing.T) {
	rows := fixture()
	inds := Indicators(rows)
	if len(inds) != 3 {
		t.Fatalf("indicators: %v", inds)
	}
	if Pick(inds, gdpShare) != gdpShare || Pick(inds, "nope") != inds[0] {
		t.Fatalf("pick defaults")
	}
	if y := Years(rows); len(y) != 2 || y[1] != 2020 {
		t.Fatalf("years: %v", y)
	}
	if err := Validate(rows, "nope"); !errors.Is(err, ErrUnknownIndicator) {
		t.Fatalf("expected ErrUnknownIndicator, got %v", err)
	}
	if got := FirstN(Countries(rows), 5); len(got) != 5 || got[0] != "Austria" {
		t.Fatalf("first five: %v", got)
	}
}

func TestTrendScatterAndBars(t *testing.T) {
	rows := fixture()
	tr := Trend(rows, gdpShare, []string{"Chile", "Austria"})
	if len(tr) != 4 || tr[0].Country != "Austria" || tr[1].Year != 2020 {
		t.Fatalf("trend: %+v", tr)
	}

	sc := BuildScatter(rows, gdpShare, perCapita, []string{"Austria", "Brazil", "Chile"})
	if len(sc.Rows) != 6 || sc.Rows[0].Year != 2019 {
		t.Fatalf("scatter rows: %+v", sc.Rows)
	}
	if !near(sc.RangeX[0], 0.9) || !near(sc.RangeX[1], 4.4) || !near(sc.RangeY[0], 900) || !near(sc.RangeY[1], 3300) {
		t.Fatalf("ranges: %v %v", sc.RangeX, sc.RangeY)
	}

	bars := ByCountry(rows, perCapita, 2020)
	if len(bars) != 7 || bars[0].Country != "United States" {
		t.Fatalf("by country: %+v", bars[0])
	}
	top := TopBottom(rows, perCapita, 2020, 3, true)
	if len(top) != 5 || top[0].Country != "United States" {
		t.Fatalf("top clamps to 5: %d", len(top))
	}
	bottom := TopBottom(rows, perCapita, 2020, 50, false)
	if len(bottom) != 7 || bottom[0].Country != "Austria" {
		t.Fatalf("bottom: %+v", bottom)
	}
}

func TestBreakdownWarnsOnMixedUnits(t *testing.T) {
	rows := fixture()
	b := BuildBreakdown(rows, "", nil)
	if b.Country != DefaultCountry {
		t.Fatalf("default country: %s", b.Country)
	}
	if len(b.Indicators) != 2 || b.Warning != "" {
		t.Fatalf("default per-capita indicators should not warn: %+v", b)
	}
	if len(b.Rows) != 3 {
		t.Fatalf("rows: %d", len(b.Rows))
	}
	mixed := BuildBreakdown(rows, "Chile", []string{gdpShare, perCapita})
	if mixed.Warning == "" {
		t.Fatalf("expected mixed units warning")
	}
	for _, tc := range []struct{ in, want string }{
		{gdpShare, "percentage"},
		{perCapita, "per capita"},
		{"Spending in US$", "us$"},
		{"Doctors", "other"},
	} {
		if got := UnitClass(tc.in); got != tc.want {
			t.Fatalf("%s: got %s", tc.in, got)
		}
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

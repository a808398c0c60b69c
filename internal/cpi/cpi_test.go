package cpi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// quarterly builds records for one country/category from 2019Q1 onwards.
func quarterly(code, cat string, vals ...float64) []dataset.CPIRecord {
	out := make([]dataset.CPIRecord, len(vals))
	for i, v := range vals {
		out[i] = dataset.CPIRecord{
			Country:    code,
			Category:   cat,
			TimePeriod: fmt.Sprintf("%dQ%d", 2019+i/4, i%4+1),
			Value:      v,
		}
	}
	return out
}

func prepare(t *testing.T, recs ...[]dataset.CPIRecord) []Point {
	t.Helper()
	var all []dataset.CPIRecord
	for _, r := range recs {
		all = append(all, r...)
	}
	pts, err := Prepare(all)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return pts
}

func TestPrepareComputesYoY(t *testing.T) {
	pts := prepare(t, quarterly("USA", "_T", 100, 101, 102, 103, 110, 111, 102, 0, 121))
	if len(pts) != 9 {
		t.Fatalf("expected 9 points, got %d", len(pts))
	}
	if pts[0].Country != "United States" || pts[0].Category != "Aggregate" {
		t.Fatalf("naming: %+v", pts[0])
	}
	for i := 0; i < 4; i++ {
		if !math.IsNaN(pts[i].YoY) {
			t.Fatalf("first year has no base, got %v at %d", pts[i].YoY, i)
		}
	}
	if math.Abs(pts[4].YoY-10) > 1e-9 {
		t.Fatalf("2020Q1 YoY = %v, want 10", pts[4].YoY)
	}
	if math.Abs(pts[6].YoY) > 1e-9 {
		t.Fatalf("2020Q3 YoY = %v, want 0", pts[6].YoY)
	}
	// 2021Q1 has base 2020Q1 = 110.
	if math.Abs(pts[8].YoY-10) > 1e-9 {
		t.Fatalf("2021Q1 YoY = %v", pts[8].YoY)
	}
}

func TestPrepareUsesSameQuarterAcrossGaps(t *testing.T) {
	recs := []dataset.CPIRecord{
		{Country: "DEU", Category: "_T", TimePeriod: "2019-Q1", Value: 100},
		{Country: "DEU", Category: "_T", TimePeriod: "2019-Q3", Value: 200},
		{Country: "DEU", Category: "_T", TimePeriod: "2020-Q1", Value: 105},
		{Country: "DEU", Category: "_T", TimePeriod: "2020-Q2", Value: 50},
	}
	pts := prepare(t, recs)
	if math.Abs(pts[2].YoY-5) > 1e-9 {
		t.Fatalf("2020Q1 YoY = %v, want 5", pts[2].YoY)
	}
	if !math.IsNaN(pts[3].YoY) {
		t.Fatalf("2020Q2 has no 2019Q2 base, got %v", pts[3].YoY)
	}
	if _, err := Prepare([]dataset.CPIRecord{{Country: "DEU", TimePeriod: "2020-13"}}); err == nil {
		t.Fatalf("expected error for malformed period")
	}
}

func TestStabilityRanksBySampleStd(t *testing.T) {
	pts := prepare(t,
		quarterly("USA", "_T", 100, 100, 100, 100, 101, 102, 101, 102),
		quarterly("DEU", "_T", 100, 100, 100, 100, 110, 130, 105, 150),
		quarterly("ABW", "_T", 100, 100, 100, 100, 101),
	)
	rows := Stability(pts, 10)
	if len(rows) != 2 {
		t.Fatalf("Aruba has one YoY value and must be dropped: %+v", rows)
	}
	if rows[0].Country != "United States" {
		t.Fatalf("expected United States most stable, got %+v", rows)
	}
	want := stats.SampleStd([]float64{1, 2, 1, 2})
	if math.Abs(rows[0].Score-want) > 1e-9 {
		t.Fatalf("score %v want %v", rows[0].Score, want)
	}
	if top := Stability(pts, 1); len(top) != 1 {
		t.Fatalf("limit not applied")
	}
}

func TestPopulationJoinFilterAndScatter(t *testing.T) {
	pts := prepare(t,
		quarterly("USA", "_T", 100, 101, 102, 103, 104, 105, 106, 107),
		quarterly("ABW", "_T", 90, 91, 92, 93, 94, 95, 96, 97),
	)
	pop := []dataset.PopulationRow{
		{CCA3: "USA", Country: "United States", Year: 2020, Population: 331e6},
		{CCA3: "ABW", Country: "Aruba", Year: 2020, Population: 106e3},
	}
	joined := JoinPopulation(pts, pop)
	lo, hi, ok := PopulationBounds(joined)
	if !ok || lo != 0 || hi != 331 {
		t.Fatalf("bounds = %v %v %v", lo, hi, ok)
	}
	big := FilterPopulation(joined, 1, 400)
	if len(big) != 4 {
		t.Fatalf("expected the four 2020 USA quarters, got %d", len(big))
	}
	for _, p := range big {
		if p.Country != "United States" || p.Year != 2020 {
			t.Fatalf("unexpected point %+v", p)
		}
	}

	rows := AnnualScatter(pts, pop)
	if len(rows) != 2 {
		t.Fatalf("inner join should keep 2020 only: %+v", rows)
	}
	if rows[1].Country != "United States" || rows[1].AvgValue != 105.5 {
		t.Fatalf("unexpected annual row %+v", rows[1])
	}
	if y, ok := ScatterDefaultYear(rows); !ok || y != 2020 {
		t.Fatalf("default year = %d", y)
	}
	b, err := json.Marshal(rows[0])
	if err != nil || !strings.Contains(string(b), `"avg_annual_cpi_yoy_change"`) {
		t.Fatalf("marshal annual row: %s %v", b, err)
	}

	name, detail := CountryDetail(pts, "")
	if name != "Aruba" || len(detail) != 8 {
		t.Fatalf("default detail country: %s (%d)", name, len(detail))
	}
}

func TestCategoricalViews(t *testing.T) {
	pts := prepare(t,
		quarterly("USA", "CP01", 100, 100, 100, 100, 102),
		quarterly("USA", "CP04", 100, 100, 100, 100, 110),
		quarterly("DEU", "CP04", 100, 100, 100, 100, 105),
		quarterly("FRA", "CP99", 1, 2),
	)
	if CategoryLabel("CP99") != "CP99" {
		t.Fatalf("unmapped codes pass through")
	}
	if _, _, err := Select(pts, []string{"A", "B", "C"}, nil); !errors.Is(err, ErrTooManyCountries) {
		t.Fatalf("expected ErrTooManyCountries, got %v", err)
	}
	sel, countries, err := Select(pts, nil, nil)
	if err != nil || len(countries) != 1 || countries[0] != "United States" || len(sel) != 10 {
		t.Fatalf("default selection: %v %v %d", err, countries, len(sel))
	}
	sel, _, _ = Select(pts, []string{"United States", "Germany"}, []string{"Housing"})
	if len(sel) != 10 {
		t.Fatalf("housing for two countries: %d", len(sel))
	}
	lines := CategoryLines(sel, "Housing")
	if len(lines) != 2 || lines[0].Country != "Germany" || len(lines[1].Points) != 5 {
		t.Fatalf("unexpected lines %+v", lines)
	}
	stacked := StackedByTime(sel)
	if len(stacked) != 10 || stacked[0].Quarter != "2019-Q1" {
		t.Fatalf("unexpected stacked rows %+v", stacked[:1])
	}
	q, yoy := LatestYoY(sel)
	if q.String() != "2020-Q1" || len(yoy) != 2 || yoy[0].YoY != 5 || yoy[1].YoY != 10 {
		t.Fatalf("latest yoy %v %+v", q, yoy)
	}

	hm := Heatmap(pts, "United States")
	if len(hm.Rows) != 5 || len(hm.Cols) != 2 || hm.Cols[1] != "Housing" || hm.Values[4][1] != 110 {
		t.Fatalf("unexpected heatmap %+v", hm)
	}
	pv := Pivot(pts)
	if len(pv.Cols) != 4 || !math.IsNaN(pv.Values[4][0]) {
		t.Fatalf("FRA has no 2020Q1 value: %+v", pv)
	}
	if b, err := json.Marshal(pv); err != nil || !strings.Contains(string(b), "null") {
		t.Fatalf("missing cells should encode as null: %v", err)
	}
}

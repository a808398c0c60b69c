package stats

import (
	"math"
	"testing"
)

func TestMomentsSkipNaN(t *testing.T) {
	xs := []float64{2, 4, math.NaN(), 4, 4, 5, 5, 7, 9}
	if m := Mean(xs); m != 5 {
		t.Fatalf("mean = %v", m)
	}
	if s := PopStd(xs); math.Abs(s-2) > 1e-12 {
		t.Fatalf("pop std = %v", s)
	}
	if s := SampleStd(xs); math.Abs(s-math.Sqrt(32.0/7.0)) > 1e-12 {
		t.Fatalf("sample std = %v", s)
	}
	if s := SampleStd([]float64{1, math.NaN()}); !math.IsNaN(s) {
		t.Fatalf("sample std of one value should be NaN, got %v", s)
	}
	if m := Mean(nil); !math.IsNaN(m) {
		t.Fatalf("mean of empty should be NaN")
	}
}

func TestQuantileLinear(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	if q := Quantile(v, 0.25); q != 1.75 {
		t.Fatalf("q25 = %v", q)
	}
	if q := Quantile(v, 0.75); q != 3.25 {
		t.Fatalf("q75 = %v", q)
	}
	if q := Quantile(v, 0.5); q != 2.5 {
		t.Fatalf("median = %v", q)
	}
}

func TestRound(t *testing.T) {
	if r := Round2(1.005); r != 1.01 {
		t.Fatalf("round 1.005 = %v", r)
	}
	if r := Round2(-2.345); r != -2.35 {
		t.Fatalf("round -2.345 = %v", r)
	}
	if r := Round2(math.NaN()); !math.IsNaN(r) {
		t.Fatalf("NaN should pass through")
	}
}

func TestIQRFilter(t *testing.T) {
	type row struct{ a, b float64 }
	rows := []row{{1, 10}, {2, 11}, {3, 12}, {4, 13}, {100, 14}, {5, math.NaN()}}
	cols := []Column[row]{
		{Name: "a", Value: func(r row) float64 { return r.a }},
		{Name: "b", Value: func(r row) float64 { return r.b }},
	}
	kept, removed := IQRFilter(rows, cols, 1.5)
	// column a drops 100; column b drops the NaN row.
	if removed != 2 || len(kept) != 4 {
		t.Fatalf("removed=%d kept=%v", removed, kept)
	}
	for _, r := range kept {
		if r.a == 100 || math.IsNaN(r.b) {
			t.Fatalf("unexpected survivor %+v", r)
		}
	}

	few := rows[:3]
	kept, removed = IQRFilter(few, cols, 0)
	if removed != 0 || len(kept) != 3 {
		t.Fatalf("fewer than four rows must not be filtered: removed=%d", removed)
	}
}

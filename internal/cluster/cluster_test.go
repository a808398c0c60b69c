package cluster

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/KaramelBytes/nomadcompass/internal/cpi"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
)

func blobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0.1, 0.2}, {0.2, 0.1},
		{10, 10}, {10.1, 9.9}, {9.8, 10.2},
		{0, 10}, {0.2, 9.9}, {-0.1, 10.1},
	}
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	x := blobs()
	m, err := KMeans{K: 3, Seed: 42, NInit: 10, MaxIter: 300}.Fit(x)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	for g := 0; g < 3; g++ {
		l := m.Labels[g*3]
		if m.Labels[g*3+1] != l || m.Labels[g*3+2] != l {
			t.Fatalf("blob %d split: %v", g, m.Labels)
		}
	}
	if m.Labels[0] == m.Labels[3] || m.Labels[3] == m.Labels[6] || m.Labels[0] == m.Labels[6] {
		t.Fatalf("blobs merged: %v", m.Labels)
	}
	if m.Inertia > 1 {
		t.Fatalf("inertia too high: %v", m.Inertia)
	}
	again, _ := KMeans{K: 3, Seed: 42, NInit: 10, MaxIter: 300}.Fit(x)
	for i := range again.Labels {
		if again.Labels[i] != m.Labels[i] {
			t.Fatalf("seeded fit is not deterministic")
		}
	}
	if s := Silhouette(x, m.Labels); s < 0.9 {
		t.Fatalf("silhouette %v", s)
	}
	if s := Silhouette(x, make([]int, len(x))); s != 0 {
		t.Fatalf("single cluster silhouette = %v", s)
	}
	if _, err := (KMeans{K: 20}).Fit(x); !errors.Is(err, ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
}

func TestSweepInertiaNonIncreasing(t *testing.T) {
	x := blobs()
	sweep, err := Sweep(context.Background(), x, 2, 5, KMeans{Seed: 42, NInit: 10})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(sweep) != 4 || sweep[0].K != 2 || sweep[3].K != 5 {
		t.Fatalf("sweep: %+v", sweep)
	}
	for i, p := range sweep {
		if p.Silhouette < -1 || p.Silhouette > 1 {
			t.Fatalf("silhouette out of range at k=%d: %v", p.K, p.Silhouette)
		}
		if i > 0 && p.Inertia > sweep[i-1].Inertia+1e-9 {
			t.Fatalf("inertia rose from k=%d (%v) to k=%d (%v)", sweep[i-1].K, sweep[i-1].Inertia, p.K, p.Inertia)
		}
	}
	if _, err := Sweep(context.Background(), x, 4, 3, KMeans{Seed: 42}); !errors.Is(err, ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
}

func TestFitLabelsMatchCentroidsWhenIterationsRunOut(t *testing.T) {
	x := blobs()
	m, err := KMeans{K: 3, Seed: 7, NInit: 1, MaxIter: 1}.Fit(x)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	inertia := 0.0
	for i, p := range x {
		if l := nearest(p, m.Centroids); l != m.Labels[i] {
			t.Fatalf("point %d labelled %d, nearest centroid is %d", i, m.Labels[i], l)
		}
		inertia += sqDist(p, m.Centroids[m.Labels[i]])
	}
	if math.Abs(inertia-m.Inertia) > 1e-9 {
		t.Fatalf("inertia %v does not match labels (%v)", m.Inertia, inertia)
	}
}

func TestMaxKAndScale(t *testing.T) {
	if k, err := MaxK(30, 40); err != nil || k != 15 {
		t.Fatalf("MaxK = %d %v", k, err)
	}
	if k, _ := MaxK(5, 10); k != 4 {
		t.Fatalf("MaxK by countries = %d", k)
	}
	if _, err := MaxK(10, 1); !errors.Is(err, ErrTooFewForK) {
		t.Fatalf("expected ErrTooFewForK, got %v", err)
	}
	s := Scale([][]float64{{1, 5}, {3, 5}})
	if s[0][0] != -1 || s[1][0] != 1 || s[0][1] != 0 {
		t.Fatalf("scaled: %v", s)
	}
}

func TestMergeCleanSelect(t *testing.T) {
	a := Matrix{Countries: []string{"A", "B"}, Features: []string{"f1", "empty"}, Values: [][]float64{{1, math.NaN()}, {3, math.NaN()}}}
	b := Matrix{Countries: []string{"B", "C"}, Features: []string{"f2"}, Values: [][]float64{{10}, {20}}}
	m := Merge(a, b)
	if len(m.Countries) != 3 || len(m.Features) != 3 || !math.IsNaN(m.Values[2][0]) {
		t.Fatalf("merged: %+v", m)
	}
	c, err := Clean(m)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(c.Features) != 2 || c.Features[1] != "f2" {
		t.Fatalf("empty column should be dropped: %v", c.Features)
	}
	if c.Values[2][0] != 2 || c.Values[0][1] != 15 {
		t.Fatalf("imputed means: %v", c.Values)
	}
	if _, err := Select(c, []string{"nope"}); !errors.Is(err, ErrUnknownFeature) {
		t.Fatalf("expected ErrUnknownFeature, got %v", err)
	}
	one := Matrix{Countries: []string{"A"}, Features: []string{"f"}, Values: [][]float64{{1}}}
	if _, err := Clean(one); !errors.Is(err, ErrTooFewCountries) {
		t.Fatalf("expected ErrTooFewCountries, got %v", err)
	}
}

func TestPCA2(t *testing.T) {
	x := Scale([][]float64{{1, 2, 3}, {2, 4, 6.5}, {3, 6, 9}, {4, 8, 11}})
	p, err := PCA2(x)
	if err != nil {
		t.Fatalf("pca: %v", err)
	}
	if len(p.PC1) != 4 || p.Explained[0] < 0.9 || p.Explained[0]+p.Explained[1] > 1+1e-9 {
		t.Fatalf("projection: %+v", p)
	}
	if _, err := PCA2([][]float64{{1, 2}, {3, 4}}); !errors.Is(err, ErrPCAUnavailable) {
		t.Fatalf("two features should skip PCA, got %v", err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	var pts []cpi.Point
	var pop []dataset.PopulationRow
	for i, code := range []string{"USA", "DEU", "FRA", "JPN", "BRA", "IND"} {
		scale := 1.0
		if i >= 3 {
			scale = 10
		}
		for q := 0; q < 8; q++ {
			pts = append(pts, cpi.Point{
				CountryCode: code, Country: code, Category: "Housing",
				Value: 100 * scale * (1 + float64(q)/100 + float64(i)/50), YoY: scale + float64(i)/10, Population: math.NaN(),
			})
		}
		pop = append(pop, dataset.PopulationRow{CCA3: code, Country: code, Year: 2022, Population: 1e6 * scale * (1 + float64(i)/10), Density: 50 * scale})
	}
	// Population features are named from CCA3; CPI points carry display names.
	for i := range pts {
		pts[i].Country = displayName(pts[i].CountryCode)
	}
	res, err := Run(context.Background(), Input{CPI: pts, Population: pop, Seed: 42, NInit: 5, MaxIter: 100})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.RunID == "" || res.Countries != 6 || res.K != 3 {
		t.Fatalf("result: id=%q countries=%d k=%d", res.RunID, res.Countries, res.K)
	}
	if len(res.Sweep) != res.MaxK-1 {
		t.Fatalf("sweep covers 2..%d: %d", res.MaxK, len(res.Sweep))
	}
	if res.PCA == nil || res.Assignments[0].PC1 == nil {
		t.Fatalf("expected PCA with %d features", len(res.Features))
	}
	total := 0
	for _, p := range res.Profiles {
		total += p.Count
	}
	if total != 6 {
		t.Fatalf("profile counts: %+v", res.Profiles)
	}

	if _, err := Run(context.Background(), Input{CPI: pts, Population: pop, K: 9}); !errors.Is(err, ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, Input{CPI: pts, Population: pop}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Package cluster segments countries by their CPI, health expenditure and
// demographic profiles with k-means.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/nomadcompass/internal/cpi"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

// SweepPoint scores one candidate cluster count.
type SweepPoint struct {
	K          int     `json:"k"`
	Inertia    float64 `json:"sse"`
	Silhouette float64 `json:"silhouette"`
}

// Sweep fits every K in [kMin, kMax] and records inertia and silhouette.
func Sweep(ctx context.Context, x [][]float64, kMin, kMax int, km KMeans) ([]SweepPoint, error) {
	if kMin < 2 {
		kMin = 2
	}
	if kMax < kMin {
		return nil, fmt.Errorf("%w: k range %d..%d", ErrInvalidK, kMin, kMax)
	}
	out := make([]SweepPoint, 0, kMax-kMin+1)
	for k := kMin; k <= kMax; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		km.K = k
		m, err := km.Fit(x)
		if err != nil {
			return nil, err
		}
		out = append(out, SweepPoint{K: k, Inertia: m.Inertia, Silhouette: Silhouette(x, m.Labels)})
	}
	return out, nil
}

// Profile describes one cluster by its unscaled feature means.
type Profile struct {
	Cluster int       `json:"cluster"`
	Count   int       `json:"count"`
	Means   []float64 `json:"means"`
	Members []string  `json:"members"`
}

// Profiles averages the raw features per cluster, rounded to two decimals.
func Profiles(raw Matrix, labels []int, k int) []Profile {
	out := make([]Profile, k)
	cols := make([][][]float64, k)
	for c := range out {
		out[c].Cluster = c
		cols[c] = make([][]float64, len(raw.Features))
	}
	for i, l := range labels {
		out[l].Count++
		out[l].Members = append(out[l].Members, raw.Countries[i])
		for j, v := range raw.Values[i] {
			cols[l][j] = append(cols[l][j], v)
		}
	}
	for c := range out {
		out[c].Means = make([]float64, len(raw.Features))
		for j := range raw.Features {
			out[c].Means[j] = stats.Round2(stats.Mean(cols[c][j]))
		}
		sort.Strings(out[c].Members)
	}
	return out
}

// Input holds the datasets and choices for one clustering run.
type Input struct {
	CPI           []cpi.Point
	NHA           []dataset.NHARow
	Population    []dataset.PopulationRow
	NHAIndicators []string
	Features      []string
	K             int
	KMin          int
	KMax          int
	Seed          int64
	NInit         int
	MaxIter       int
	Logger        *zap.Logger
}

// Assignment is a country's cluster label with its PCA coordinates when
// available.
type Assignment struct {
	Country string   `json:"country"`
	Cluster int      `json:"cluster"`
	PC1     *float64 `json:"pc1,omitempty"`
	PC2     *float64 `json:"pc2,omitempty"`
}

// Result is the outcome of Run.
type Result struct {
	RunID             string       `json:"run_id"`
	InitialCountries  int          `json:"initial_countries"`
	Countries         int          `json:"countries"`
	AvailableFeatures []string     `json:"available_features"`
	Features          []string     `json:"features"`
	Data              Matrix       `json:"data"`
	MaxK              int          `json:"max_k"`
	Sweep             []SweepPoint `json:"sweep"`
	K                 int          `json:"k"`
	Inertia           float64      `json:"inertia"`
	Silhouette        float64      `json:"silhouette"`
	Assignments       []Assignment `json:"assignments"`
	Profiles          []Profile    `json:"profiles"`
	PCA               *Projection  `json:"pca,omitempty"`
	Notes             []string     `json:"notes,omitempty"`
}

// Run engineers features, cleans and scales them, sweeps K and fits the
// final model.
func Run(ctx context.Context, in Input) (*Result, error) {
	log := in.Logger
	if log == nil {
		log = zap.NewNop()
	}
	res := &Result{RunID: uuid.NewString()}
	log = log.With(zap.String("run_id", res.RunID))

	merged := Merge(CPIFeatures(in.CPI), NHAFeatures(in.NHA, in.NHAIndicators), PopulationFeatures(in.Population))
	res.InitialCountries = len(merged.Countries)
	clean, err := Clean(merged)
	if err != nil {
		return nil, err
	}
	res.AvailableFeatures = clean.Features
	sel, err := Select(clean, in.Features)
	if err != nil {
		return nil, err
	}
	res.Features = sel.Features
	res.Data = sel
	res.Countries = len(sel.Countries)
	log.Debug("features ready",
		zap.Int("initial_countries", res.InitialCountries),
		zap.Int("countries", res.Countries),
		zap.Int("features", len(sel.Features)))

	maxK, err := MaxK(len(sel.Countries), len(sel.Features))
	if err != nil {
		return nil, err
	}
	res.MaxK = maxK
	kMin, kMax := in.KMin, in.KMax
	if kMin < 2 {
		kMin = 2
	}
	if kMax <= 0 {
		kMax = min(8, maxK)
	}
	if kMax > maxK {
		kMax = maxK
	}
	k := in.K
	if k <= 0 {
		k = min(3, maxK)
	}
	if k < 2 || k > maxK {
		return nil, fmt.Errorf("%w: %d (allowed 2..%d)", ErrInvalidK, k, maxK)
	}

	x := Scale(sel.Values)
	km := KMeans{Seed: in.Seed, NInit: in.NInit, MaxIter: in.MaxIter}
	if res.Sweep, err = Sweep(ctx, x, kMin, kMax, km); err != nil {
		return nil, err
	}

	km.K = k
	model, err := km.Fit(x)
	if err != nil {
		return nil, err
	}
	res.K = k
	res.Inertia = model.Inertia
	res.Silhouette = Silhouette(x, model.Labels)
	res.Profiles = Profiles(sel, model.Labels, k)

	proj, err := PCA2(x)
	switch {
	case err == nil:
		res.PCA = &proj
	case errors.Is(err, ErrPCAUnavailable):
		res.Notes = append(res.Notes, "Not enough features selected for PCA; with two features the clusters are visible directly.")
	default:
		log.Warn("pca failed", zap.Error(err))
	}
	res.Assignments = make([]Assignment, len(sel.Countries))
	for i, name := range sel.Countries {
		a := Assignment{Country: name, Cluster: model.Labels[i]}
		if res.PCA != nil {
			a.PC1, a.PC2 = stats.Nullable(res.PCA.PC1[i]), stats.Nullable(res.PCA.PC2[i])
		}
		res.Assignments[i] = a
	}
	log.Info("clustering complete",
		zap.Int("k", k),
		zap.Float64("inertia", model.Inertia),
		zap.Float64("silhouette", res.Silhouette))
	return res, nil
}

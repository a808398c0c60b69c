package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/KaramelBytes/nomadcompass/internal/chart"
	"github.com/KaramelBytes/nomadcompass/internal/cluster"
	"github.com/KaramelBytes/nomadcompass/internal/cpi"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
)

type clusterPage struct {
	*cluster.Result
	Charts []*chart.Spec `json:"charts"`
}

// clusterInputErrors are caused by the request or the loaded data, not by
// the server.
var clusterInputErrors = []error{
	cluster.ErrTooFewCountries,
	cluster.ErrTooFewForK,
	cluster.ErrInvalidK,
	cluster.ErrUnknownFeature,
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	k, err := intParam(r, "k", 0)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	kMin, err := intParam(r, "k_min", 2)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	kMax, err := intParam(r, "k_max", 0)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var warn warnings
	recs, err := s.opt.Data.CategoricalCPI(ctx)
	recs, msg := dataset.Degrade(recs, err, "Categorical CPI data")
	warn.add(msg)
	pts, err := cpi.Prepare(recs)
	if err != nil {
		warn.add("Categorical CPI data could not be prepared: " + err.Error())
		pts = nil
	}
	nhaRows, err := s.opt.Data.NHA(ctx)
	nhaRows, msg = dataset.Degrade(nhaRows, err, "NHA data")
	warn.add(msg)
	pop, err := s.opt.Data.Population(ctx)
	pop, msg = dataset.Degrade(pop, err, "Population data")
	warn.add(msg)

	res, err := cluster.Run(ctx, cluster.Input{
		CPI:           pts,
		NHA:           nhaRows,
		Population:    pop,
		NHAIndicators: listParam(r, "nha_indicators"),
		Features:      listParam(r, "features"),
		K:             k,
		KMin:          kMin,
		KMax:          kMax,
		Seed:          s.opt.ClusterSeed,
		NInit:         s.opt.ClusterNInit,
		MaxIter:       s.opt.ClusterMaxIter,
		Logger:        s.log,
	})
	if err != nil {
		for _, target := range clusterInputErrors {
			if errors.Is(err, target) {
				Error(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			Error(w, http.StatusServiceUnavailable, "clustering cancelled")
			return
		}
		s.log.Error("clustering failed", zap.String("request_id", GetRequestID(ctx)), zap.Error(err))
		Error(w, http.StatusInternalServerError, "clustering failed")
		return
	}
	JSON(w, http.StatusOK, clusterPage{Result: res, Charts: clusterCharts(res)}, warn...)
}

func clusterCharts(res *cluster.Result) []*chart.Spec {
	elbow := chart.Series{Name: "Inertia"}
	sil := chart.Series{Name: "Silhouette Score"}
	for _, p := range res.Sweep {
		elbow.Points = append(elbow.Points, chart.P(p.K, p.Inertia, ""))
		sil.Points = append(sil.Points, chart.P(p.K, p.Silhouette, ""))
	}
	out := []*chart.Spec{
		chart.Line("Elbow Method for Optimal K", "Number of Clusters (K)", "Inertia", []chart.Series{elbow}),
		chart.Line("Silhouette Score for Optimal K", "Number of Clusters (K)", "Silhouette Score", []chart.Series{sil}),
	}

	label := func(c int) string { return fmt.Sprintf("Cluster %d", c) }
	switch {
	case res.PCA != nil:
		series := chart.SeriesBy(res.Assignments,
			func(a cluster.Assignment) string { return label(a.Cluster) },
			func(a cluster.Assignment) chart.Point { return chart.Point{X: a.PC1, Y: a.PC2, Label: a.Country} })
		out = append(out, chart.Scatter(
			fmt.Sprintf("Country Clusters (PCA, %.0f%% + %.0f%% of variance)", 100*res.PCA.Explained[0], 100*res.PCA.Explained[1]),
			"Principal Component 1", "Principal Component 2", series, nil, nil))
	case len(res.Features) == 2:
		idx := map[string]int{}
		for i, c := range res.Data.Countries {
			idx[c] = i
		}
		series := chart.SeriesBy(res.Assignments,
			func(a cluster.Assignment) string { return label(a.Cluster) },
			func(a cluster.Assignment) chart.Point {
				row := res.Data.Values[idx[a.Country]]
				return chart.P(row[0], row[1], a.Country)
			})
		out = append(out, chart.Scatter("Country Clusters", res.Features[0], res.Features[1], series, nil, nil))
	}
	return out
}

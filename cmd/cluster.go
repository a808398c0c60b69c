package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/nomadcompass/internal/cluster"
	"github.com/KaramelBytes/nomadcompass/internal/cpi"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/report"
)

var (
	clusterFeatures      []string
	clusterNHAIndicators []string
	clusterK             int
	clusterKMin          int
	clusterKMax          int
	clusterXLSX          string
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Segment countries with K-Means on CPI, health spending and population features",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()

		recs, err := s.loader.CategoricalCPI(ctx)
		recs, w := dataset.Degrade(recs, err, "Categorical CPI data")
		warnAll(cmd, w)
		pts, err := cpi.Prepare(recs)
		if err != nil {
			return err
		}
		nhaRows, err := s.loader.NHA(ctx)
		nhaRows, w = dataset.Degrade(nhaRows, err, "NHA data")
		warnAll(cmd, w)
		pop, err := s.loader.Population(ctx)
		pop, w = dataset.Degrade(pop, err, "Population data")
		warnAll(cmd, w)

		res, err := cluster.Run(ctx, cluster.Input{
			CPI:           pts,
			NHA:           nhaRows,
			Population:    pop,
			NHAIndicators: clusterNHAIndicators,
			Features:      clusterFeatures,
			K:             clusterK,
			KMin:          clusterKMin,
			KMax:          clusterKMax,
			Seed:          s.cfg.ClusterSeed,
			NInit:         s.cfg.ClusterNInit,
			MaxIter:       s.cfg.ClusterMaxIter,
			Logger:        s.log,
		})
		if err != nil {
			return err
		}
		printClusterResult(cmd, res)
		warnAll(cmd, res.Notes...)

		if clusterXLSX != "" {
			if err := report.WriteXLSX(clusterXLSX, clusterSheets(res)); err != nil {
				return err
			}
			s.log.Debug("cluster workbook written", zap.String("path", clusterXLSX), zap.String("run_id", res.RunID))
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", clusterXLSX)
		}
		return nil
	},
}

func printClusterResult(cmd *cobra.Command, res *cluster.Result) {
	out := cmd.OutOrStdout()
	report.Heading(out, fmt.Sprintf("K-Means clustering of %d countries (%d before cleaning)", res.Countries, res.InitialCountries))
	fmt.Fprintf(out, "Features: %s\n\n", strings.Join(res.Features, ", "))

	report.Heading(out, "Optimal K")
	sweep := make([][]string, len(res.Sweep))
	for i, p := range res.Sweep {
		sweep[i] = []string{fmt.Sprint(p.K), report.Float(p.Inertia), report.Float(p.Silhouette)}
	}
	report.Table(out, []string{"K", "Inertia", "Silhouette"}, sweep)

	report.Heading(out, fmt.Sprintf("Clusters (K=%d, silhouette %s)", res.K, report.Float(res.Silhouette)))
	rows := make([][]string, len(res.Assignments))
	for i, a := range res.Assignments {
		rows[i] = []string{a.Country, fmt.Sprint(a.Cluster), floatPtr(a.PC1), floatPtr(a.PC2)}
	}
	report.Table(out, []string{"Country", "Cluster", "PC1", "PC2"}, rows)

	report.Heading(out, "Cluster Profiles (mean of original features)")
	header := append([]string{"Cluster", "Countries"}, res.Features...)
	profiles := make([][]string, len(res.Profiles))
	for i, p := range res.Profiles {
		row := []string{fmt.Sprint(p.Cluster), report.Int(int64(p.Count))}
		for _, m := range p.Means {
			row = append(row, report.Float(m))
		}
		profiles[i] = row
	}
	report.Table(out, header, profiles)
}

func floatPtr(v *float64) string {
	if v == nil {
		return report.Missing
	}
	return report.Float(*v)
}

func clusterSheets(res *cluster.Result) []report.Sheet {
	assign := report.Sheet{Name: "Assignments", Header: []string{"Country", "Cluster", "PC1", "PC2"}}
	for _, a := range res.Assignments {
		pc1, pc2 := math.NaN(), math.NaN()
		if a.PC1 != nil {
			pc1 = *a.PC1
		}
		if a.PC2 != nil {
			pc2 = *a.PC2
		}
		assign.Rows = append(assign.Rows, []any{a.Country, a.Cluster, pc1, pc2})
	}
	profiles := report.Sheet{Name: "Profiles", Header: append([]string{"Cluster", "Count", "Members"}, res.Features...)}
	for _, p := range res.Profiles {
		row := []any{p.Cluster, p.Count, strings.Join(p.Members, ", ")}
		for _, m := range p.Means {
			row = append(row, m)
		}
		profiles.Rows = append(profiles.Rows, row)
	}
	sweep := report.Sheet{Name: "Optimal K", Header: []string{"K", "Inertia", "Silhouette"}}
	for _, p := range res.Sweep {
		sweep.Rows = append(sweep.Rows, []any{p.K, p.Inertia, p.Silhouette})
	}
	data := report.Sheet{Name: "Features", Header: append([]string{"Country"}, res.Data.Features...)}
	for i, c := range res.Data.Countries {
		row := []any{c}
		for _, v := range res.Data.Values[i] {
			row = append(row, v)
		}
		data.Rows = append(data.Rows, row)
	}
	return []report.Sheet{assign, profiles, sweep, data}
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.Flags().StringSliceVar(&clusterFeatures, "features", nil, "features to cluster on (default all)")
	clusterCmd.Flags().StringSliceVar(&clusterNHAIndicators, "nha-indicators", nil, "NHA indicators turned into features (default all)")
	clusterCmd.Flags().IntVar(&clusterK, "k", 0, "number of clusters (default min(3, max K))")
	clusterCmd.Flags().IntVar(&clusterKMin, "k-min", 2, "smallest K in the elbow/silhouette sweep")
	clusterCmd.Flags().IntVar(&clusterKMax, "k-max", 0, "largest K in the sweep (default min(8, max K))")
	clusterCmd.Flags().StringVar(&clusterXLSX, "xlsx", "", "write assignments, profiles and the K sweep to this workbook")
}

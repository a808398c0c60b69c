package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/population"
	"github.com/KaramelBytes/nomadcompass/internal/report"
)

var (
	popExclude   []string
	popTop       int
	popYear      int
	popThreshold float64
	popCountries []string
	popFuture    []int
	popBackcast  []int
)

var populationCmd = &cobra.Command{
	Use:     "population",
	Aliases: []string{"pop"},
	Short:   "World population views",
}

// loadPopulation returns the rows without the excluded countries and the
// title suffix naming them.
func loadPopulation(cmd *cobra.Command) ([]population.Row, string, error) {
	s, err := openSession()
	if err != nil {
		return nil, "", err
	}
	defer s.Close()
	rows, err := s.loader.Population(cmd.Context())
	rows, w := dataset.Degrade(rows, err, "Population data")
	warnAll(cmd, w)
	rows, suffix := population.Exclude(rows, popExclude)
	return rows, suffix, nil
}

var populationTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Largest countries by population in the latest year",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, suffix, err := loadPopulation(cmd)
		if err != nil {
			return err
		}
		year, top := population.TopN(rows, popTop)
		out := cmd.OutOrStdout()
		report.Heading(out, fmt.Sprintf("Top %d Countries by Population (%d)%s", len(top), year, suffix))
		table := make([][]string, len(top))
		for i, r := range top {
			table[i] = []string{report.Int(int64(i + 1)), r.Country, r.CCA3, report.Count(r.Population), report.Float(r.Density)}
		}
		report.Table(out, []string{"#", "Country", "CCA3", "Population", "Density (per km²)"}, table)
		return nil
	},
}

var populationShareCmd = &cobra.Command{
	Use:   "share",
	Short: "Share of world population, small countries folded together",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, suffix, err := loadPopulation(cmd)
		if err != nil {
			return err
		}
		year := popYear
		if year == 0 {
			year, _ = population.LatestYear(rows)
		}
		share := population.WorldShare(rows, year, popThreshold)
		out := cmd.OutOrStdout()
		report.Heading(out, fmt.Sprintf("World Population Share (%d)%s", year, suffix))
		table := make([][]string, len(share))
		for i, sl := range share {
			table[i] = []string{sl.Country, report.Float(sl.Share) + "%", report.Count(sl.Population)}
		}
		report.Table(out, []string{"Country", "Share", "Population"}, table)
		return nil
	},
}

var populationProjectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project population forward and backward with compound growth",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, _, err := loadPopulation(cmd)
		if err != nil {
			return err
		}
		projected := population.Project(population.Trends(rows, popCountries), popFuture, popBackcast)
		out := cmd.OutOrStdout()
		report.Heading(out, "Population Projections")
		table := make([][]string, len(projected))
		for i, p := range projected {
			table[i] = []string{p.Country, fmt.Sprint(p.Year), report.Count(p.Population), p.Type}
		}
		report.Table(out, []string{"Country", "Year", "Population", "Type"}, table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(populationCmd)
	populationCmd.AddCommand(populationTopCmd, populationShareCmd, populationProjectCmd)

	populationCmd.PersistentFlags().StringSliceVar(&popExclude, "exclude", nil, "countries to leave out of every view")
	populationTopCmd.Flags().IntVar(&popTop, "top", 10, "number of countries (1 to 50)")
	populationShareCmd.Flags().IntVar(&popYear, "year", 0, "year (default latest)")
	populationShareCmd.Flags().Float64Var(&popThreshold, "threshold", 1.0, "fold countries below this share (%) into Other Countries")
	populationProjectCmd.Flags().StringSliceVar(&popCountries, "countries", nil, "countries to project (default the first five)")
	populationProjectCmd.Flags().IntSliceVar(&popFuture, "future", []int{2030, 2040, 2050}, "future years")
	populationProjectCmd.Flags().IntSliceVar(&popBackcast, "backcast", []int{1950, 1960}, "past years")
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/nomadcompass/internal/cpi"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/report"
	"github.com/KaramelBytes/nomadcompass/internal/stats"
)

var (
	cpiMinPop     float64
	cpiMaxPop     float64
	cpiTop        int
	cpiCountries  []string
	cpiCategories []string
)

var cpiCmd = &cobra.Command{
	Use:   "cpi",
	Short: "Consumer Price Index views",
}

var cpiStabilityCmd = &cobra.Command{
	Use:   "stability",
	Short: "Rank countries by the stability of their year-over-year CPI change",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()

		recs, err := s.loader.AggregateCPI(ctx)
		recs, w := dataset.Degrade(recs, err, "Aggregate CPI data")
		warnAll(cmd, w)
		pts, err := cpi.Prepare(recs)
		if err != nil {
			return err
		}
		pop, err := s.loader.Population(ctx)
		pop, w = dataset.Degrade(pop, err, "Population data")
		warnAll(cmd, w)

		joined := cpi.JoinPopulation(pts, pop)
		rows := cpi.Stability(pts, cpiTop)
		title := fmt.Sprintf("Top %d Most Stable Countries by CPI YoY Change", cpiTop)
		if lo, hi, ok := cpi.PopulationBounds(joined); ok {
			f := cmd.Flags()
			if f.Changed("min-pop") {
				lo = cpiMinPop
			}
			if f.Changed("max-pop") {
				hi = cpiMaxPop
			}
			if lo > hi {
				return errors.New("--min-pop must not exceed --max-pop")
			}
			rows = cpi.Stability(cpi.FilterPopulation(joined, lo, hi), cpiTop)
			title += fmt.Sprintf(" (population %sM-%sM)", report.Count(lo), report.Count(hi))
		}

		out := cmd.OutOrStdout()
		report.Heading(out, title)
		table := make([][]string, len(rows))
		for i, r := range rows {
			table[i] = []string{report.Int(int64(i + 1)), r.Country, r.Code, report.Float(r.Score), report.Int(int64(r.Samples))}
		}
		report.Table(out, []string{"#", "Country", "Code", "Stability Score", "YoY Samples"}, table)
		return nil
	},
}

var cpiCountryCmd = &cobra.Command{
	Use:   "country [name]",
	Short: "Show the quarterly CPI of one country (default Aruba)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		recs, err := s.loader.AggregateCPI(cmd.Context())
		recs, w := dataset.Degrade(recs, err, "Aggregate CPI data")
		warnAll(cmd, w)
		pts, err := cpi.Prepare(recs)
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		name, detail := cpi.CountryDetail(pts, name)
		if len(detail) == 0 {
			return fmt.Errorf("no CPI data for %q", name)
		}

		out := cmd.OutOrStdout()
		report.Heading(out, "CPI Data for "+name)
		rows := make([][]string, len(detail))
		for i, p := range detail {
			rows[i] = []string{p.Quarter.String(), p.Category, report.Float(p.Value), report.Float(p.YoY)}
		}
		report.Table(out, []string{"Quarter", "Category", "CPI Value", "YoY Change (%)"}, rows)
		return nil
	},
}

var cpiCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Compare the latest year-over-year change by CPI category for up to two countries",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		recs, err := s.loader.CategoricalCPI(cmd.Context())
		recs, w := dataset.Degrade(recs, err, "Categorical CPI data")
		warnAll(cmd, w)
		pts, err := cpi.Prepare(recs)
		if err != nil {
			return err
		}
		sel, countries, err := cpi.Select(pts, cpiCountries, cpiCategories)
		if err != nil {
			return err
		}
		latest, yoy := cpi.LatestYoY(sel)

		out := cmd.OutOrStdout()
		if latest.IsZero() {
			report.Warn(cmd.ErrOrStderr(), "no year-over-year data for the selection")
			return nil
		}
		report.Heading(out, fmt.Sprintf("Year-over-Year CPI Change by Category (%s)", latest))
		rows := make([][]string, len(yoy))
		for i, r := range yoy {
			rows[i] = []string{r.Category, r.Country, report.Float(stats.Round2(r.YoY))}
		}
		report.Table(out, []string{"Category", "Country", "YoY Change (%)"}, rows)
		fmt.Fprintf(out, "Countries: %v\n", countries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpiCmd)
	cpiCmd.AddCommand(cpiStabilityCmd, cpiCountryCmd, cpiCategoriesCmd)

	cpiStabilityCmd.Flags().Float64Var(&cpiMinPop, "min-pop", 0, "minimum population in millions")
	cpiStabilityCmd.Flags().Float64Var(&cpiMaxPop, "max-pop", 0, "maximum population in millions")
	cpiStabilityCmd.Flags().IntVar(&cpiTop, "top", 10, "number of countries to list")
	cpiCategoriesCmd.Flags().StringSliceVar(&cpiCountries, "countries", nil, "countries to compare (max 2)")
	cpiCategoriesCmd.Flags().StringSliceVar(&cpiCategories, "categories", nil, "categories to include (default all)")
}

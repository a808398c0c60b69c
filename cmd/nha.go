package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/nha"
	"github.com/KaramelBytes/nomadcompass/internal/report"
)

var (
	nhaIndicator string
	nhaCountries []string
	nhaYear      int
	nhaN         int
	nhaBottom    bool
)

var nhaCmd = &cobra.Command{
	Use:   "nha",
	Short: "National Health Accounts indicator views",
}

// loadNHA returns the rows and the validated indicator, defaulting to the
// preferred indicator when none is given.
func loadNHA(cmd *cobra.Command) ([]dataset.NHARow, string, error) {
	s, err := openSession()
	if err != nil {
		return nil, "", err
	}
	defer s.Close()
	rows, err := s.loader.NHA(cmd.Context())
	rows, w := dataset.Degrade(rows, err, "NHA data")
	warnAll(cmd, w)
	if len(rows) == 0 {
		return nil, "", nil
	}
	ind := nhaIndicator
	if ind == "" {
		return rows, nha.Pick(nha.Indicators(rows), nha.DefaultIndicator), nil
	}
	return rows, ind, nha.Validate(rows, ind)
}

var nhaIndicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "List available indicators",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, _, err := loadNHA(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, ind := range nha.Indicators(rows) {
			fmt.Fprintf(out, "- %s (%s)\n", ind, nha.UnitClass(ind))
		}
		return nil
	},
}

var nhaTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show an indicator over time for selected countries (default the first five)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, ind, err := loadNHA(cmd)
		if err != nil || len(rows) == 0 {
			return err
		}
		countries := nhaCountries
		if len(countries) == 0 {
			countries = nha.FirstN(nha.Countries(rows), 5)
		}
		trend := nha.Trend(rows, ind, countries)
		out := cmd.OutOrStdout()
		report.Heading(out, ind+" Over Time")
		table := make([][]string, len(trend))
		for i, r := range trend {
			table[i] = []string{r.Country, fmt.Sprint(r.Year), report.Float(r.Value)}
		}
		report.Table(out, []string{"Country", "Year", "Value"}, table)
		return nil
	},
}

var nhaTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Rank countries by an indicator in one year",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, ind, err := loadNHA(cmd)
		if err != nil || len(rows) == 0 {
			return err
		}
		year := nhaYear
		if year == 0 {
			years := nha.Years(rows)
			year = years[len(years)-1]
		}
		ranked := nha.TopBottom(rows, ind, year, nhaN, !nhaBottom)
		label := "Top"
		if nhaBottom {
			label = "Bottom"
		}
		out := cmd.OutOrStdout()
		report.Heading(out, fmt.Sprintf("%s %d Countries: %s (%d)", label, len(ranked), ind, year))
		table := make([][]string, len(ranked))
		for i, r := range ranked {
			table[i] = []string{report.Int(int64(i + 1)), r.Country, report.Float(r.Value)}
		}
		report.Table(out, []string{"#", "Country", "Value"}, table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nhaCmd)
	nhaCmd.AddCommand(nhaIndicatorsCmd, nhaTrendCmd, nhaTopCmd)

	nhaCmd.PersistentFlags().StringVarP(&nhaIndicator, "indicator", "i", "", "indicator name (default: CHE as % of GDP when present)")
	nhaTrendCmd.Flags().StringSliceVar(&nhaCountries, "countries", nil, "countries to plot")
	nhaTopCmd.Flags().IntVar(&nhaYear, "year", 0, "year (default latest)")
	nhaTopCmd.Flags().IntVarP(&nhaN, "count", "n", 10, "number of countries (5 to 20)")
	nhaTopCmd.Flags().BoolVar(&nhaBottom, "bottom", false, "list the lowest values instead of the highest")
}

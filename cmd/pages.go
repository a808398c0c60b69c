package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/nomadcompass/internal/pages"
	"github.com/KaramelBytes/nomadcompass/internal/report"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List dashboard pages and what each dataset contains",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		home, warnings := pages.Home(cmd.Context(), s.loader)
		warnAll(cmd, warnings...)

		out := cmd.OutOrStdout()
		report.Heading(out, home.Title)
		fmt.Fprintln(out, home.Subtitle)
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(home.Pages))
		for _, p := range home.Pages {
			rows = append(rows, []string{p.Title, p.Route, p.Description})
		}
		report.Table(out, []string{"Page", "Route", "Description"}, rows)

		fmt.Fprintln(out)
		for _, info := range home.Info {
			report.Heading(out, info.Category)
			fmt.Fprintf(out, "%s\nSource: %s\n\n", info.Summary, info.Source)
		}
		c := home.Counts
		report.Table(out, []string{"Dataset", "Rows", "Countries", "Indicators/Categories"}, [][]string{
			{"Population", report.Int(int64(c.PopulationRows)), report.Int(int64(c.PopulationCountries)), report.Missing},
			{"NHA", report.Int(int64(c.NHARows)), report.Int(int64(c.NHACountries)), report.Int(int64(c.NHAIndicators))},
			{"Categorical CPI", report.Int(int64(c.CPIRows)), report.Int(int64(c.CPICountries)), report.Int(int64(c.CPICategories))},
		})
		fmt.Fprintln(out, home.Note)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}

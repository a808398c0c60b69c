package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/nomadcompass/internal/dataset"
)

var fetchOut string

var fetchCmd = &cobra.Command{
	Use:       "fetch <aggregate|categorical>",
	Short:     "Download a CPI series from the IMF SDMX API and save it as CSV",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"aggregate", "categorical"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := args[0]
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		out := fetchOut
		if out == "" {
			switch kind {
			case "aggregate":
				out = s.cfg.Path("imf_cpi_all_countries_quarterly_data.csv")
			default:
				out = s.cfg.Path(s.cfg.CategoricalCPIFile)
			}
		}
		obs, err := s.loader.FetchObservations(cmd.Context(), kind)
		if err != nil {
			return fmt.Errorf("fetch %s CPI: %w", kind, err)
		}
		if err := dataset.WriteSnapshot(out, obs); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		s.log.Info("snapshot written", zap.String("series", kind), zap.Int("observations", len(obs)), zap.String("path", out))
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %d observations to %s\n", len(obs), filepath.Clean(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "output CSV path (default: inside data_dir)")
}

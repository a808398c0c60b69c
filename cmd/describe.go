package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/nomadcompass/internal/analysis"
	"github.com/KaramelBytes/nomadcompass/internal/utils"
)

var (
	describeJSON    bool
	describeSamples int
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Profile a CSV or XLSX dataset: schema, missing values and numeric summaries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := analysis.DefaultOptions()
		opt.SampleRows = describeSamples
		rep, err := analysis.ProfileFile(args[0], opt)
		if err != nil {
			return fmt.Errorf("describe %s: %w", args[0], err)
		}
		if describeJSON {
			s, err := utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(s))
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), rep.Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().BoolVar(&describeJSON, "json", false, "print the profile as JSON")
	describeCmd.Flags().IntVar(&describeSamples, "samples", 5, "number of sample rows to include")
}

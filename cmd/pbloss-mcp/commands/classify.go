package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pbloss-mcp/internal/importer"
	"pbloss-mcp/internal/simulation"
)

var classifySamples []string

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Count concordant and discordant spots per sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, imports, err := loadSettings()
		if err != nil {
			return err
		}
		res, err := importer.ReadFile(args[0], imports)
		if err != nil {
			return err
		}
		samples, err := pickSamples(res.Samples, classifySamples)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "SAMPLE\tCONCORDANT\tDISCORDANT\tINVALID\t(%s, %s)\n", settings.System, settings.ClassificationMethod)
		for _, s := range samples {
			snap := s.Snapshot()
			results, err := simulation.Classify(snap.Spots, &settings, snap.Name, simulation.CancelFromContext(cmd.Context()), nil)
			if err != nil {
				return err
			}
			concordant := 0
			for _, c := range results {
				if c.Concordant {
					concordant++
				}
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t\n", s.Name, concordant, len(results)-concordant, len(s.InvalidSpots()))
		}
		return tw.Flush()
	},
}

func init() {
	classifyCmd.Flags().StringSliceVar(&classifySamples, "sample", nil, "only classify these samples")
}

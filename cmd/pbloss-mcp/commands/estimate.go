package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/export"
	"pbloss-mcp/internal/importer"
	"pbloss-mcp/internal/model"
	"pbloss-mcp/internal/runlog"
	"pbloss-mcp/internal/simulation"
	"pbloss-mcp/internal/store"
)

var (
	estimateSamples []string
	estimateCSV     string
	estimateXLSX    string
	estimateNoStore bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <file>",
	Short: "Estimate the Pb-loss age of every sample in a CSV or XLSX file",
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
		samples, err := pickSamples(res.Samples, estimateSamples)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runs := runlog.New()
		sink := simulation.MultiProgress{simulation.LogProgress{}, runs}
		opts := simulation.Options{AggregateEvery: cfg.AggregateEvery, AggregateInterval: cfg.AggregateInterval, TaskDelay: cfg.TaskDelay}
		outcomes, err := simulation.RunBatch(ctx, samples, &settings, opts, sink)
		if err != nil {
			return err
		}

		if err := runs.SaveAll(cfg.RunLogDir); err != nil {
			log.Warn().Err(err).Msg("Failed to save run logs")
		}
		if !estimateNoStore {
			persist(cmd, samples, outcomes)
		}
		if estimateCSV != "" {
			if err := writeRunsCSV(estimateCSV, samples); err != nil {
				return err
			}
		}
		if estimateXLSX != "" {
			if err := export.WriteWorkbook(estimateXLSX, samples); err != nil {
				return err
			}
		}

		printOutcomes(cmd.OutOrStdout(), outcomes)
		return nil
	},
}

func init() {
	estimateCmd.Flags().StringSliceVar(&estimateSamples, "sample", nil, "only process these samples")
	estimateCmd.Flags().StringVar(&estimateCSV, "runs-csv", "", "write every run's optimal age to this CSV file")
	estimateCmd.Flags().StringVar(&estimateXLSX, "xlsx", "", "write a summary workbook to this XLSX file")
	estimateCmd.Flags().BoolVar(&estimateNoStore, "no-store", false, "do not persist estimates")
}

func pickSamples(all []*model.Sample, names []string) ([]*model.Sample, error) {
	if len(names) == 0 {
		return all, nil
	}
	var out []*model.Sample
	for _, name := range names {
		found := false
		for _, s := range all {
			if s.Name == name {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sample %q not found", name)
		}
	}
	return out, nil
}

func persist(cmd *cobra.Command, samples []*model.Sample, outcomes []simulation.Outcome) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DBPath).Msg("Result store unavailable")
		return
	}
	defer db.Close()
	for i, o := range outcomes {
		if _, err := db.SaveSample(cmd.Context(), samples[i], o.StatusText, o.Reason); err != nil {
			log.Warn().Err(err).Str("sample", o.SampleName).Msg("Failed to store estimate")
		}
	}
}

func writeRunsCSV(path string, samples []*model.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteRunsCSV(f, export.RunRows(samples)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printOutcomes(w io.Writer, outcomes []simulation.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tSTATUS\tRUNS\tPB-LOSS AGE (MA)\t95% INTERVAL (MA)\tNOTE")
	for _, o := range outcomes {
		age, interval := "-", "-"
		if opt := o.Optimal; opt != nil {
			age = fmt.Sprintf("%.1f", opt.Age/concordia.Ma)
			interval = fmt.Sprintf("%.1f-%.1f", opt.LowerBound/concordia.Ma, opt.UpperBound/concordia.Ma)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", o.SampleName, o.StatusText, o.Runs, age, interval, o.Reason)
	}
	tw.Flush()
}

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"effpred/internal/registry"
)

var runsFlags struct {
	limit int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent training runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 10, "Number of runs to show")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	reg, err := registry.Open(cmd.Context(), cfg.Registry.Driver, cfg.Registry.DSN)
	if err != nil {
		return err
	}
	defer reg.Close()

	runs, err := reg.Recent(cmd.Context(), runsFlags.limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No training runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSCHEMA\tMODEL\tTRAIN\tTEST\tACCURACY\tF1")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.4f\t%.4f\n",
			r.CreatedAt().Format(time.RFC3339), r.SchemaVersion, r.ModelKind,
			r.TrainRows, r.TestRows, r.Accuracy, r.F1)
	}
	return tw.Flush()
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"effpred/internal/logging"
	"effpred/pkg/pipeline"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Preprocess the raw CSV, fit the scaler and write the train/test split",
	RunE:  runPrepare,
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	store := newStore()
	p := pipeline.NewTrainingPipeline(cfg.Pipeline(), store, logging.New("pipeline"))
	if err := p.Prepare(); err != nil {
		return err
	}
	sp := p.Split()
	fmt.Fprintf(cmd.OutOrStdout(), "Prepared %d train and %d test rows in %s (schema %s)\n",
		len(sp.XTrain), len(sp.XTest), store.ProcessedDir(), p.Schema().Version)
	return nil
}

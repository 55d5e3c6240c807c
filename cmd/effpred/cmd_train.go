package main

import (
	"github.com/spf13/cobra"

	"effpred/internal/logging"
	"effpred/pkg/pipeline"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and evaluate the model from previously prepared data",
	RunE:  runTrain,
}

func runTrain(cmd *cobra.Command, _ []string) error {
	store := newStore()
	p := pipeline.NewTrainingPipeline(cfg.Pipeline(), store, logging.New("pipeline"))
	if err := p.Resume(); err != nil {
		return err
	}
	if err := p.Train(); err != nil {
		return err
	}
	rep, err := p.Evaluate()
	if err != nil {
		return err
	}
	return finishTraining(cmd, store, p, rep)
}

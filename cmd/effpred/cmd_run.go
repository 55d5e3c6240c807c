package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"effpred/internal/artifact"
	"effpred/internal/logging"
	"effpred/internal/registry"
	"effpred/internal/report"
	"effpred/pkg/model"
	"effpred/pkg/pipeline"
	"effpred/pkg/schema"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Prepare data, train and evaluate in one go",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	store := newStore()
	p := pipeline.NewTrainingPipeline(cfg.Pipeline(), store, logging.New("pipeline"))
	rep, err := p.Run()
	if err != nil {
		return err
	}
	return finishTraining(cmd, store, p, rep)
}

// finishTraining prints the evaluation, draws the chart and records the run.
// Only the summary can fail the command; the model is already persisted.
func finishTraining(cmd *cobra.Command, store *artifact.Store, p *pipeline.TrainingPipeline, rep *model.Report) error {
	labels := labelMap(p.Schema())
	if err := report.WriteSummary(cmd.OutOrStdout(), rep, labels); err != nil {
		return err
	}

	if err := report.SaveChart(rep, labels, store.ChartPath()); err != nil {
		logger.Warn("evaluation chart not written", zap.Error(err))
	} else {
		logger.Info("evaluation chart written", zap.String("path", store.ChartPath()))
	}

	if err := recordRun(cmd.Context(), registry.NewRun(p.Schema().Version, p.Model().Kind(), rep)); err != nil {
		logger.Warn("run not recorded", zap.Error(err))
	}
	return nil
}

func recordRun(ctx context.Context, run registry.Run) error {
	reg, err := registry.Open(ctx, cfg.Registry.Driver, cfg.Registry.DSN)
	if err != nil {
		return err
	}
	defer reg.Close()
	if err := reg.Record(ctx, run); err != nil {
		return err
	}
	logger.Info("run recorded", zap.String("id", run.ID), zap.String("driver", cfg.Registry.Driver))
	return nil
}

func labelMap(s *schema.Schema) schema.LabelMap {
	if len(cfg.Serve.Labels) > 0 {
		return schema.LabelMap(cfg.Serve.Labels)
	}
	return s.LabelMap()
}

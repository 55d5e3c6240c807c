package main

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"effpred/internal/logging"
	"effpred/internal/server"
	"effpred/pkg/pipeline"
	"effpred/pkg/schema"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	Long: `Loads the schema, scaler and model written by training and serves
an HTML form on / and a JSON API on /api/v1/predict.

The server refuses to start if the artifacts were produced by different
training runs. SIGINT or SIGTERM shuts it down gracefully.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	store := newStore()

	var labels schema.LabelMap
	if len(cfg.Serve.Labels) > 0 {
		labels = schema.LabelMap(cfg.Serve.Labels)
	}
	bundle, err := store.LoadBundle(labels)
	if err != nil {
		return err
	}
	pred, err := pipeline.NewPredictor(bundle)
	if err != nil {
		return err
	}
	means, err := store.LoadFeatureMeans()
	if err != nil {
		logger.Debug("no feature means, using built-in defaults", zap.Error(err))
		means = nil
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(pred, means, logging.New("server"))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cfg.Serve.Addr, cfg.GetShutdownTimeout())
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"effpred/internal/artifact"
	"effpred/internal/config"
	"effpred/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
}

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "effpred",
	Short: "Machine efficiency status prediction",
	Long: `effpred prepares manufacturing telemetry, trains a classifier for the
machine efficiency status (High, Medium, Low) and serves predictions.

Training writes the feature schema, scaler and model under the artifacts
directory; serving reads them back so every prediction is preprocessed
exactly like the training data.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(rootFlags.configPath)
		if err != nil {
			return err
		}
		if rootFlags.logLevel != "" {
			cfg.Logging.Level = rootFlags.logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if _, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.New("cli")
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "effpred.yaml", "YAML config file (missing file means defaults)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.Version = version
}

func newStore() *artifact.Store {
	return artifact.New(cfg.Data.ArtifactsDir, logging.New("artifact"))
}

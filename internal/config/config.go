package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"effpred/pkg/model"
	"effpred/pkg/pipeline"
)

// Config holds all effpred configuration.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Training TrainingConfig `yaml:"training"`
	Serve    ServeConfig    `yaml:"serve"`
	Registry RegistryConfig `yaml:"registry"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DataConfig struct {
	RawPath      string `yaml:"raw_path"`
	ArtifactsDir string `yaml:"artifacts_dir"`
}

type TrainingConfig struct {
	TestSize float64       `yaml:"test_size"`
	Seed     int64         `yaml:"seed"`
	Model    string        `yaml:"model"`
	Options  model.Options `yaml:"options"`
}

type ServeConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	// Labels overrides the class names stored with the schema.
	Labels map[int]string `yaml:"labels"`
}

// RegistryConfig selects the SQL database that records training runs.
type RegistryConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	DSN    string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			RawPath:      "artifacts/raw/data.csv",
			ArtifactsDir: "artifacts",
		},
		Training: TrainingConfig{
			TestSize: 0.2,
			Seed:     42,
			Model:    model.KindLogistic,
			Options:  model.DefaultOptions(),
		},
		Serve: ServeConfig{
			Addr:            ":5000",
			ShutdownTimeout: "10s",
		},
		Registry: RegistryConfig{
			Driver: "sqlite",
			DSN:    "artifacts/runs.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EFFPRED_RAW_DATA"); v != "" {
		c.Data.RawPath = v
	}
	if v := os.Getenv("EFFPRED_ARTIFACTS"); v != "" {
		c.Data.ArtifactsDir = v
	}
	if v := os.Getenv("EFFPRED_ADDR"); v != "" {
		c.Serve.Addr = v
	}
	if v := os.Getenv("EFFPRED_REGISTRY_DRIVER"); v != "" {
		c.Registry.Driver = v
	}
	if v := os.Getenv("EFFPRED_REGISTRY_DSN"); v != "" {
		c.Registry.DSN = v
	}
	if v := os.Getenv("EFFPRED_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

var (
	ValidDrivers    = []string{"sqlite", "postgres"}
	ValidLogLevels  = []string{"debug", "info", "warn", "error"}
	ValidLogFormats = []string{"console", "json"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Data.RawPath == "" || c.Data.ArtifactsDir == "" {
		return fmt.Errorf("data.raw_path and data.artifacts_dir are required")
	}
	if c.Training.TestSize <= 0 || c.Training.TestSize >= 1 {
		return fmt.Errorf("training.test_size must be in (0, 1), got %v", c.Training.TestSize)
	}
	if _, ok := model.Makers[c.Training.Model]; !ok {
		return fmt.Errorf("unknown training.model %q", c.Training.Model)
	}
	if c.Training.Options.MaxIter <= 0 || c.Training.Options.LearningRate <= 0 {
		return fmt.Errorf("training.options.max_iter and learning_rate must be positive")
	}
	if c.Serve.Addr == "" {
		return fmt.Errorf("serve.addr is required")
	}
	if _, err := time.ParseDuration(c.Serve.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid serve.shutdown_timeout: %w", err)
	}
	if !contains(ValidDrivers, c.Registry.Driver) {
		return fmt.Errorf("invalid registry driver: %s (valid: %v)", c.Registry.Driver, ValidDrivers)
	}
	if !contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if !contains(ValidLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidLogFormats)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// GetShutdownTimeout returns the graceful shutdown window.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Serve.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Pipeline returns the training pipeline settings.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		InputPath:    c.Data.RawPath,
		TestSize:     c.Training.TestSize,
		Seed:         c.Training.Seed,
		ModelKind:    c.Training.Model,
		ModelOptions: c.Training.Options,
	}
}

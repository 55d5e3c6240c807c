package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effpred.yaml")
	yml := `
data:
  raw_path: /data/in.csv
training:
  test_size: 0.25
  options:
    max_iter: 50
    learning_rate: 0.5
    class_weight: balanced
serve:
  addr: ":8080"
  labels:
    0: Top
    2: Bottom
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/in.csv", cfg.Data.RawPath)
	assert.Equal(t, "artifacts", cfg.Data.ArtifactsDir, "unset keys keep defaults")
	assert.Equal(t, 0.25, cfg.Training.TestSize)
	assert.Equal(t, 50, cfg.Training.Options.MaxIter)
	assert.Equal(t, "balanced", cfg.Training.Options.ClassWeight)
	assert.Equal(t, ":8080", cfg.Serve.Addr)
	assert.Equal(t, map[int]string{0: "Top", 2: "Bottom"}, cfg.Serve.Labels)
	assert.Equal(t, "json", cfg.Logging.Format)
	require.NoError(t, cfg.Validate())

	p := cfg.Pipeline()
	assert.Equal(t, "/data/in.csv", p.InputPath)
	assert.Equal(t, int64(42), p.Seed)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("each variable overrides its key", func(t *testing.T) {
		t.Setenv("EFFPRED_RAW_DATA", "/x.csv")
		t.Setenv("EFFPRED_ARTIFACTS", "/art")
		t.Setenv("EFFPRED_ADDR", ":9")
		t.Setenv("EFFPRED_REGISTRY_DRIVER", "postgres")
		t.Setenv("EFFPRED_REGISTRY_DSN", "postgres://localhost/runs")
		t.Setenv("EFFPRED_LOG_LEVEL", "debug")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "/x.csv", cfg.Data.RawPath)
		assert.Equal(t, "/art", cfg.Data.ArtifactsDir)
		assert.Equal(t, ":9", cfg.Serve.Addr)
		assert.Equal(t, "postgres", cfg.Registry.Driver)
		assert.Equal(t, "postgres://localhost/runs", cfg.Registry.DSN)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("empty variables are ignored", func(t *testing.T) {
		t.Setenv("EFFPRED_ADDR", "")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, ":5000", cfg.Serve.Addr)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"test size", func(c *Config) { c.Training.TestSize = 1 }},
		{"model kind", func(c *Config) { c.Training.Model = "forest" }},
		{"max iter", func(c *Config) { c.Training.Options.MaxIter = 0 }},
		{"addr", func(c *Config) { c.Serve.Addr = "" }},
		{"shutdown timeout", func(c *Config) { c.Serve.ShutdownTimeout = "soon" }},
		{"driver", func(c *Config) { c.Registry.Driver = "mysql" }},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"log format", func(c *Config) { c.Logging.Format = "text" }},
		{"raw path", func(c *Config) { c.Data.RawPath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "effpred.yaml")
	cfg := DefaultConfig()
	cfg.Serve.Labels = map[int]string{1: "Mid"}
	require.NoError(t, cfg.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 10*time.Second, back.GetShutdownTimeout())
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRawCSV(t *testing.T, path string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Timestamp,Machine_ID,Operation_Mode,Temperature_C,Vibration_Hz,Power_Consumption_kW," +
		"Network_Latency_ms,Packet_Loss_%,Quality_Control_Defect_Rate_%,Production_Speed_units_per_hr," +
		"Predictive_Maintenance_Score,Error_Rate_%,Efficiency_Status\n")
	statuses := []string{"Medium", "High", "Low"}
	modes := []string{"Active", "Idle", "Maintenance"}
	for i := 0; i < 30; i++ {
		c := i % 3
		fmt.Fprintf(&b, "2024-02-%02d %02d:00:00,%d,%s,%d,50,35,15,0.5,1,120,55,%d,%s\n",
			1+i%28, i%24, i, modes[i%3], 60+10*c, 1+2*c, statuses[c])
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "effpred %s", strings.Join(args, " "))
	return out.String()
}

func TestCLI_TrainingFlow(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw", "data.csv")
	writeRawCSV(t, raw)
	t.Setenv("EFFPRED_RAW_DATA", raw)
	t.Setenv("EFFPRED_ARTIFACTS", filepath.Join(dir, "artifacts"))
	t.Setenv("EFFPRED_REGISTRY_DSN", filepath.Join(dir, "runs.db"))
	configPath := filepath.Join(dir, "missing.yaml")

	out := execute(t, "run", "--config", configPath, "--log-level", "warn")
	assert.Contains(t, out, "accuracy")
	for _, name := range []string{"processed/schema.json", "processed/scaler.json", "models/model.json", "models/evaluation.png"} {
		assert.FileExists(t, filepath.Join(dir, "artifacts", name))
	}

	out = execute(t, "prepare", "--config", configPath)
	assert.Contains(t, out, "Prepared 24 train and 6 test rows")

	out = execute(t, "train", "--config", configPath)
	assert.Contains(t, out, "f1 (weighted)")

	out = execute(t, "runs", "--config", configPath, "--limit", "5")
	assert.Contains(t, out, "SCHEMA")
	assert.Equal(t, 2, strings.Count(out, "logistic"), "run and train each record one run:\n%s", out)
}

func TestCLI_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry:\n  driver: mysql\n"), 0o644))
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"runs", "--config", path})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestCLI_Init(t *testing.T) {
	dir := t.TempDir()
	artifacts := filepath.Join(dir, "store")
	t.Setenv("EFFPRED_ARTIFACTS", artifacts)
	path := filepath.Join(dir, "conf", "effpred.yaml")

	out := execute(t, "init", "--config", path)
	assert.Contains(t, out, "Wrote config to "+path)
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "artifacts_dir: "+artifacts)

	rootCmd.SetArgs([]string{"init", "--config", path})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out = execute(t, "init", "--config", path, "--force")
	assert.Contains(t, out, "Wrote config")
}

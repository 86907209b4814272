package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/stockrnn/internal/series"
)

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 1, cfg.InputSize)
	assert.Equal(t, 2, cfg.NumSteps)
	assert.Equal(t, 128, cfg.HiddenSize)
	assert.Equal(t, 0.8, cfg.KeepProb)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 30, cfg.MaxEpoch)
	assert.Equal(t, series.Bounds{Min: 10, Max: 2000}, cfg.Bounds())
	assert.Equal(t, "checkpoints_stock", cfg.CheckpointDir)
	assert.Equal(t, "Tanh", cfg.Architecture().CellActivation)

	// Only the input file is missing.
	assert.EqualError(t, cfg.Validate(), "config: file not set")
	cfg.File = "prices.csv"
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeJSON(t, `{"file": "x.csv", "hidden_size": 16, "max_epoch": 4}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x.csv", cfg.File)
	assert.Equal(t, 16, cfg.HiddenSize)
	assert.Equal(t, 4, cfg.MaxEpoch)
	assert.Equal(t, 64, cfg.BatchSize)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(writeJSON(t, `{"hidden": 16}`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFlagsOverrideFile(t *testing.T) {
	cfg := Defaults()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs, &cfg)
	args := []string{"-hidden_size", "32", "-column", "Open"}

	require.NoError(t, fs.Parse(args))
	require.NoError(t, LoadInto(writeJSON(t, `{"hidden_size": 16, "batch_size": 8}`), &cfg))
	require.NoError(t, fs.Parse(args))

	assert.Equal(t, 32, cfg.HiddenSize)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, "Open", cfg.Column)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"input_size", func(c *Config) { c.InputSize = 0 }},
		{"keep_prob", func(c *Config) { c.KeepProb = 0 }},
		{"cell_activation", func(c *Config) { c.CellActivation = "Softmax" }},
		{"batch_size", func(c *Config) { c.BatchSize = 0 }},
		{"learning_rate", func(c *Config) { c.InitLearningRate = 0 }},
		{"decay", func(c *Config) { c.LearningRateDecay = 1.5 }},
		{"init_epoch", func(c *Config) { c.InitEpoch = -1 }},
		{"max_epoch", func(c *Config) { c.MaxEpoch = 0 }},
		{"test_ratio", func(c *Config) { c.TestRatio = 1 }},
		{"column", func(c *Config) { c.Column = " " }},
		{"log_level", func(c *Config) { c.LogLevel = "loud" }},
		{"log_format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.File = "prices.csv"
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateEqualBounds(t *testing.T) {
	cfg := Defaults()
	cfg.File = "prices.csv"
	cfg.Max = cfg.Min
	assert.ErrorIs(t, cfg.Validate(), series.ErrDivisionByZero)
}

func TestSchedule(t *testing.T) {
	cfg := Defaults()
	rates := cfg.Schedule()
	require.Len(t, rates, 30)
	assert.Equal(t, 0.001, rates[0])
	assert.Equal(t, 0.001, rates[1])
	assert.InDelta(t, 0.001*0.99, rates[3], 1e-15)
}

// Package config holds the run configuration: model shape, training
// schedule, data source and output locations.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/stockrnn/internal/net"
	"github.com/FlavioCFOliveira/stockrnn/internal/opt"
	"github.com/FlavioCFOliveira/stockrnn/internal/series"
)

// Config is the full configuration surface. JSON names match the flag names.
type Config struct {
	InputSize         int     `json:"input_size"`
	NumSteps          int     `json:"num_steps"`
	HiddenSize        int     `json:"hidden_size"`
	NumLayers         int     `json:"num_layers"`
	CellActivation    string  `json:"cell_activation"`
	KeepProb          float64 `json:"keep_prob"`
	BatchSize         int     `json:"batch_size"`
	InitLearningRate  float64 `json:"init_learning_rate"`
	LearningRateDecay float64 `json:"learning_rate_decay"`
	InitEpoch         int     `json:"init_epoch"`
	MaxEpoch          int     `json:"max_epoch"`
	TestRatio         float64 `json:"test_ratio"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Column            string  `json:"column"`

	File          string `json:"file"`
	CheckpointDir string `json:"checkpoint_dir"`
	Seed          uint64 `json:"seed"`
	LogEvery      int    `json:"log_every"`
	Plot          string `json:"plot"`
	SeriesPlot    string `json:"series_plot"`
	TrainLog      string `json:"train_log"`
	Report        string `json:"report"`
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`
}

// Defaults returns the configuration used when nothing is overridden.
// File has no default.
func Defaults() Config {
	return Config{
		InputSize:         1,
		NumSteps:          2,
		HiddenSize:        128,
		NumLayers:         1,
		CellActivation:    "Tanh",
		KeepProb:          0.8,
		BatchSize:         64,
		InitLearningRate:  0.001,
		LearningRateDecay: 0.99,
		InitEpoch:         3,
		MaxEpoch:          30,
		TestRatio:         0.2,
		Min:               10,
		Max:               2000,
		Column:            "Close",

		CheckpointDir: "checkpoints_stock",
		Seed:          1,
		LogEvery:      5,
		Plot:          "prediction_vs_truth.png",
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load reads a JSON file over Defaults. Unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if err := LoadInto(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadInto decodes the JSON file at path onto cfg. Fields absent from the
// file keep their current value.
func LoadInto(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// RegisterFlags binds every field of cfg to a flag on fs, using the current
// values as flag defaults.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.InputSize, "input_size", cfg.InputSize, "values per time step")
	fs.IntVar(&cfg.NumSteps, "num_steps", cfg.NumSteps, "time steps per window")
	fs.IntVar(&cfg.HiddenSize, "hidden_size", cfg.HiddenSize, "recurrent cell width")
	fs.IntVar(&cfg.NumLayers, "num_layers", cfg.NumLayers, "stacked recurrent layers")
	fs.StringVar(&cfg.CellActivation, "cell_activation", cfg.CellActivation, "recurrent non-linearity: Tanh|Sigmoid|ReLU|Linear")
	fs.Float64Var(&cfg.KeepProb, "keep_prob", cfg.KeepProb, "output dropout keep probability")
	fs.IntVar(&cfg.BatchSize, "batch_size", cfg.BatchSize, "windows per batch")
	fs.Float64Var(&cfg.InitLearningRate, "init_learning_rate", cfg.InitLearningRate, "initial learning rate")
	fs.Float64Var(&cfg.LearningRateDecay, "learning_rate_decay", cfg.LearningRateDecay, "per-epoch learning rate decay")
	fs.IntVar(&cfg.InitEpoch, "init_epoch", cfg.InitEpoch, "epochs before the decay starts")
	fs.IntVar(&cfg.MaxEpoch, "max_epoch", cfg.MaxEpoch, "training epochs")
	fs.Float64Var(&cfg.TestRatio, "test_ratio", cfg.TestRatio, "fraction of the series held out")
	fs.Float64Var(&cfg.Min, "min", cfg.Min, "lower scaling bound")
	fs.Float64Var(&cfg.Max, "max", cfg.Max, "upper scaling bound")
	fs.StringVar(&cfg.Column, "column", cfg.Column, "CSV column holding the series")

	fs.StringVar(&cfg.File, "file", cfg.File, "input CSV file")
	fs.StringVar(&cfg.CheckpointDir, "checkpoint_dir", cfg.CheckpointDir, "checkpoint directory")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	fs.IntVar(&cfg.LogEvery, "log_every", cfg.LogEvery, "log the batch loss every n iterations")
	fs.StringVar(&cfg.Plot, "plot", cfg.Plot, "prediction plot (PNG), empty to skip")
	fs.StringVar(&cfg.SeriesPlot, "series_plot", cfg.SeriesPlot, "raw series plot (PNG), empty to skip")
	fs.StringVar(&cfg.TrainLog, "train_log", cfg.TrainLog, "per-epoch CSV log, empty to skip")
	fs.StringVar(&cfg.Report, "report", cfg.Report, "JSON evaluation report, empty to skip")
	fs.StringVar(&cfg.LogLevel, "log_level", cfg.LogLevel, "panic|fatal|error|warn|info|debug|trace")
	fs.StringVar(&cfg.LogFormat, "log_format", cfg.LogFormat, "text|json")
}

// Validate checks the static bounds of every field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.File) == "" {
		return errors.New("config: file not set")
	}
	if err := c.Architecture().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.BatchSize < 1 {
		return errors.New("config: batch_size must be >= 1")
	}
	if c.InitLearningRate <= 0 {
		return errors.New("config: init_learning_rate must be > 0")
	}
	if c.LearningRateDecay <= 0 || c.LearningRateDecay > 1 {
		return errors.New("config: learning_rate_decay must be in (0, 1]")
	}
	if c.InitEpoch < 0 {
		return errors.New("config: init_epoch must be >= 0")
	}
	if c.MaxEpoch < 1 {
		return errors.New("config: max_epoch must be >= 1")
	}
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		return errors.New("config: test_ratio must be in (0, 1)")
	}
	if err := c.Bounds().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(c.Column) == "" {
		return errors.New("config: column not set")
	}
	if strings.TrimSpace(c.CheckpointDir) == "" {
		return errors.New("config: checkpoint_dir not set")
	}
	if c.LogEvery < 0 {
		return errors.New("config: log_every must be >= 0")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("config: log_format %q must be text or json", c.LogFormat)
	}
	return nil
}

// Bounds returns the fixed scaling bounds.
func (c Config) Bounds() series.Bounds {
	return series.Bounds{Min: c.Min, Max: c.Max}
}

// Architecture returns the network dimensions.
func (c Config) Architecture() net.Architecture {
	return net.Architecture{
		InputSize:  c.InputSize,
		NumSteps:   c.NumSteps,
		HiddenSize: c.HiddenSize,
		NumLayers:  c.NumLayers,
		KeepProb:   c.KeepProb,

		CellActivation: c.CellActivation,
	}
}

// Schedule returns the per-epoch learning rates.
func (c Config) Schedule() []float64 {
	return opt.Schedule(c.InitLearningRate, c.LearningRateDecay, c.InitEpoch, c.MaxEpoch)
}

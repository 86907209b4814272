// Package stockrnn forecasts a univariate price series with a stacked basic
// recurrent network. It re-exports the pieces needed to train, restore and
// score a model without reaching into internal packages.
package stockrnn

import (
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/stockrnn/internal/config"
	"github.com/FlavioCFOliveira/stockrnn/internal/layer"
	"github.com/FlavioCFOliveira/stockrnn/internal/metrics"
	"github.com/FlavioCFOliveira/stockrnn/internal/net"
	"github.com/FlavioCFOliveira/stockrnn/internal/opt"
	"github.com/FlavioCFOliveira/stockrnn/internal/pipeline"
	"github.com/FlavioCFOliveira/stockrnn/internal/series"
	"github.com/FlavioCFOliveira/stockrnn/internal/train"
)

// Re-export common types for easier access
type (
	Config    = config.Config
	Bounds    = series.Bounds
	Window    = series.Window
	Batch     = series.Batch
	Report    = metrics.Report
	Result    = pipeline.Result
	Trainer   = train.Trainer
	Predictor = train.Predictor
	Callback  = net.Callback
	Header    = net.Header
)

// Errors
var (
	ErrData              = series.ErrData
	ErrShapeMismatch     = series.ErrShapeMismatch
	ErrDivisionByZero    = series.ErrDivisionByZero
	ErrCheckpointMissing = net.ErrCheckpointMissing
	ErrClosed            = train.ErrClosed
)

// Configuration
func DefaultConfig() Config {
	return config.Defaults()
}

func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// Data preparation
func LoadCSV(filename, column string) ([]float64, error) {
	return series.LoadCSV(filename, column)
}

func Split(values []float64, testRatio float64) (trainValues, testValues []float64) {
	return series.Split(values, testRatio)
}

func Scale(values []float64, b Bounds) ([]float64, error) {
	return series.Scale(values, b)
}

func Unscale(values []float64, b Bounds) ([]float64, error) {
	return series.Unscale(values, b)
}

func Windows(values []float64, numSteps, inputSize int) ([]Window, [][]float64) {
	return series.Windows(values, numSteps, inputSize)
}

func NewBatchGenerator(windows []Window, targets [][]float64, batchSize, numSteps int) (*series.BatchGenerator, error) {
	return series.NewBatchGenerator(windows, targets, batchSize, numSteps)
}

// Schedule returns the per-epoch learning rate table.
func Schedule(initRate, decay float64, initEpoch, maxEpoch int) []float64 {
	return opt.Schedule(initRate, decay, initEpoch, maxEpoch)
}

// Sessions
func NewTrainer(cfg Config, rng *rand.Rand, logger logrus.FieldLogger) (*Trainer, error) {
	return train.NewTrainer(cfg, rng, logger)
}

func NewPredictor(dir string, logger logrus.FieldLogger) (*Predictor, error) {
	return train.NewPredictor(dir, logger)
}

// Evaluation
func Evaluate(truth, pred []float64) (Report, error) {
	return metrics.Evaluate(truth, pred)
}

// End-to-end runs
func Run(cfg Config, logger logrus.FieldLogger) (Result, error) {
	return pipeline.Run(cfg, logger)
}

func Train(cfg Config, logger logrus.FieldLogger) ([]float64, error) {
	return pipeline.Train(cfg, logger)
}

func EvaluateCheckpoint(cfg Config, logger logrus.FieldLogger) (Result, error) {
	return pipeline.Evaluate(cfg, logger)
}

// Devices
func GetDefaultDevice() layer.Device {
	return layer.GetDefaultDevice()
}

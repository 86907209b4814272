// Package pipeline runs the end-to-end flow: load, split, scale, window,
// train, restore, predict, unscale and score.
package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/stockrnn/internal/config"
	"github.com/FlavioCFOliveira/stockrnn/internal/metrics"
	"github.com/FlavioCFOliveira/stockrnn/internal/plot"
	"github.com/FlavioCFOliveira/stockrnn/internal/series"
	"github.com/FlavioCFOliveira/stockrnn/internal/train"
)

// Result is the outcome of an evaluation.
type Result struct {
	RunID  string
	Report metrics.Report
	Truth  []float64
	Pred   []float64
}

// Run trains a model on the training split, writes its checkpoint, then
// restores it and scores it on the test split.
func Run(cfg config.Config, logger logrus.FieldLogger) (Result, error) {
	if _, err := Train(cfg, logger); err != nil {
		return Result{}, err
	}
	return Evaluate(cfg, logger)
}

// Train fits a model on the training split and saves it to
// cfg.CheckpointDir. It returns the training losses per epoch.
func Train(cfg config.Config, logger logrus.FieldLogger) ([]float64, error) {
	if logger == nil {
		logger = logrus.New()
	}
	values, trainValues, _, err := load(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.SeriesPlot != "" {
		if err := plot.Series(cfg.SeriesPlot, values); err != nil {
			return nil, err
		}
	}

	scaled, err := series.Scale(trainValues, cfg.Bounds())
	if err != nil {
		return nil, err
	}
	windows, targets := series.Windows(scaled, cfg.NumSteps, cfg.InputSize)
	if len(windows) == 0 {
		return nil, fmt.Errorf("training split of %d values is too short for %d steps: %w",
			len(trainValues), cfg.NumSteps, series.ErrData)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	trainer, err := train.NewTrainer(cfg, rng, logger)
	if err != nil {
		return nil, err
	}
	defer trainer.Close()

	log := logger.WithField("run", trainer.RunID())
	log.WithFields(logrus.Fields{
		"windows": len(windows),
		"epochs":  cfg.MaxEpoch,
	}).Info("training")

	if err := trainer.Fit(windows, targets); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if err := trainer.Save(cfg.CheckpointDir); err != nil {
		return nil, err
	}
	return trainer.EpochLosses(), nil
}

// Evaluate restores the checkpoint in cfg.CheckpointDir, predicts the test
// split and scores the predictions against the raw test values. The report
// is written before the plot, and a plot failure still returns the scores.
func Evaluate(cfg config.Config, logger logrus.FieldLogger) (Result, error) {
	if logger == nil {
		logger = logrus.New()
	}
	_, _, testValues, err := load(cfg, logger)
	if err != nil {
		return Result{}, err
	}

	scaled, err := series.Scale(testValues, cfg.Bounds())
	if err != nil {
		return Result{}, err
	}
	windows, _ := series.Windows(scaled, cfg.NumSteps, cfg.InputSize)
	_, rawTargets := series.Windows(testValues, cfg.NumSteps, cfg.InputSize)
	if len(windows) == 0 {
		return Result{}, fmt.Errorf("test split of %d values is too short for %d steps: %w",
			len(testValues), cfg.NumSteps, series.ErrData)
	}

	predictor, err := train.NewPredictor(cfg.CheckpointDir, logger)
	if err != nil {
		return Result{}, err
	}
	defer predictor.Close()

	pred, err := predictor.Predict(windows)
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	predValues, err := series.Unscale(series.Flatten(pred), cfg.Bounds())
	if err != nil {
		return Result{}, err
	}
	truth := series.Flatten(rawTargets)

	report, err := metrics.Evaluate(truth, predValues)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		RunID:  predictor.Header().RunID,
		Report: report,
		Truth:  truth,
		Pred:   predValues,
	}

	logger.WithFields(logrus.Fields{
		"run":  res.RunID,
		"rmse": report.RMSE,
		"mae":  report.MAE,
		"mape": report.MAPE,
	}).Info("evaluation")

	if cfg.Report != "" {
		if err := writeReport(cfg.Report, res); err != nil {
			return res, err
		}
	}
	if cfg.Plot != "" {
		if err := plot.PredictionVsTruth(cfg.Plot, truth, predValues); err != nil {
			return res, err
		}
		logger.WithField("file", cfg.Plot).Debug("prediction plot written")
	}
	return res, nil
}

func load(cfg config.Config, logger logrus.FieldLogger) (values, trainValues, testValues []float64, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	values, err = series.LoadCSV(cfg.File, cfg.Column)
	if err != nil {
		return nil, nil, nil, err
	}

	trainValues, testValues = series.Split(values, cfg.TestRatio)
	logger.WithFields(logrus.Fields{
		"file":  cfg.File,
		"rows":  len(values),
		"train": len(trainValues),
		"test":  len(testValues),
	}).Debug("series loaded")
	return values, trainValues, testValues, nil
}

type reportFile struct {
	RunID     string    `json:"run_id"`
	Evaluated time.Time `json:"evaluated"`
	Count     int       `json:"count"`
	RMSE      *float64  `json:"rmse"`
	MAE       *float64  `json:"mae"`
	MAPE      *float64  `json:"mape"`
}

// finite maps NaN and Inf to a JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeReport(path string, res Result) error {
	data, err := json.MarshalIndent(reportFile{
		RunID:     res.RunID,
		Evaluated: time.Now().UTC(),
		Count:     res.Report.Count,
		RMSE:      finite(res.Report.RMSE),
		MAE:       finite(res.Report.MAE),
		MAPE:      finite(res.Report.MAPE),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

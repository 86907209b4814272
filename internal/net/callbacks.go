package net

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/stockrnn/internal/opt"
)

// Callback defines the interface for training callbacks. Epochs are 0-based,
// iterations count optimisation steps across the whole run starting at 1.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, lr float64, n *Network)
	OnEpochEnd(epoch int, loss float64, n *Network)
	OnBatchEnd(epoch, iteration int, loss float64, n *Network)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                                   {}
func (c BaseCallback) OnTrainEnd(n *Network)                                     {}
func (c BaseCallback) OnEpochBegin(epoch int, lr float64, n *Network)            {}
func (c BaseCallback) OnEpochEnd(epoch int, loss float64, n *Network)            {}
func (c BaseCallback) OnBatchEnd(epoch, iteration int, loss float64, n *Network) {}

// SchedulerCallback is a callback that wraps a learning rate scheduler.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(epoch int, loss float64, n *Network) {
	c.scheduler.Step()
}

// ProgressLogger reports the batch loss every Every iterations and a summary
// at the end of each epoch.
type ProgressLogger struct {
	BaseCallback
	Logger   logrus.FieldLogger
	Every    int
	MaxEpoch int

	lr    float64
	start time.Time
}

func NewProgressLogger(logger logrus.FieldLogger, every, maxEpoch int) *ProgressLogger {
	return &ProgressLogger{Logger: logger, Every: every, MaxEpoch: maxEpoch}
}

func (c *ProgressLogger) OnTrainBegin(n *Network) {
	c.start = time.Now()
	arch := n.Architecture()
	c.Logger.WithFields(logrus.Fields{
		"input_size":  arch.InputSize,
		"num_steps":   arch.NumSteps,
		"hidden_size": arch.HiddenSize,
		"num_layers":  arch.NumLayers,
		"keep_prob":   arch.KeepProb,
		"activation":  arch.CellActivation,
		"params":      len(n.Params()),
	}).Info("training started")
}

func (c *ProgressLogger) OnEpochBegin(epoch int, lr float64, n *Network) {
	c.lr = lr
}

func (c *ProgressLogger) OnBatchEnd(epoch, iteration int, loss float64, n *Network) {
	if c.Every <= 0 || iteration%c.Every != 0 {
		return
	}
	c.Logger.WithFields(logrus.Fields{
		"step":          iteration,
		"epoch":         epoch,
		"max_epoch":     c.MaxEpoch,
		"learning_rate": c.lr,
		"loss":          loss,
	}).Info("training progress")
}

func (c *ProgressLogger) OnEpochEnd(epoch int, loss float64, n *Network) {
	c.Logger.WithFields(logrus.Fields{
		"epoch":     epoch,
		"mean_loss": loss,
	}).Debug("epoch done")
}

func (c *ProgressLogger) OnTrainEnd(n *Network) {
	c.Logger.WithField("elapsed", time.Since(c.start).Round(time.Millisecond)).Info("training finished")
}

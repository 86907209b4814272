// Package train holds the two model sessions: a Trainer that fits a fresh
// network and writes its checkpoint, and a Predictor that restores one.
package train

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/stockrnn/internal/config"
	"github.com/FlavioCFOliveira/stockrnn/internal/layer"
	"github.com/FlavioCFOliveira/stockrnn/internal/net"
	"github.com/FlavioCFOliveira/stockrnn/internal/opt"
	"github.com/FlavioCFOliveira/stockrnn/internal/series"
)

var (
	// ErrClosed is returned by any call on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrNotFitted is returned by Save before a successful Fit.
	ErrNotFitted = errors.New("model not fitted")
)

// Trainer owns a network, its Adam optimizer and the learning rate table for
// one training run.
type Trainer struct {
	cfg       config.Config
	network   *net.Network
	adam      *opt.Adam
	scheduler *opt.TableScheduler
	callbacks []net.Callback
	logger    logrus.FieldLogger
	device    layer.Device
	runID     string

	losses []float64
	fitted bool
	closed bool
}

// NewTrainer builds a freshly initialised network from cfg. rng drives the
// weight initialisation and the dropout masks; when nil one is seeded from
// cfg.Seed.
func NewTrainer(cfg config.Config, rng *rand.Rand, logger logrus.FieldLogger) (*Trainer, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size %d must be >= 1", cfg.BatchSize)
	}
	if cfg.MaxEpoch < 1 {
		return nil, fmt.Errorf("max epoch %d must be >= 1", cfg.MaxEpoch)
	}

	rates := cfg.Schedule()
	adam := opt.NewAdam(rates[0])
	network, err := net.New(cfg.Architecture(), adam, rng)
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}

	t := &Trainer{
		cfg:       cfg,
		network:   network,
		adam:      adam,
		scheduler: opt.NewTableScheduler(adam, rates),
		device:    layer.GetDefaultDevice(),
		runID:     uuid.NewString(),
	}
	t.logger = logger.WithField("run", t.runID)

	t.callbacks = append(t.callbacks, net.NewProgressLogger(t.logger, cfg.LogEvery, cfg.MaxEpoch))
	if cfg.TrainLog != "" {
		t.callbacks = append(t.callbacks, net.NewCSVLogger(cfg.TrainLog, false, t.logger))
	}
	// The scheduler runs last so every other callback sees the rate of the
	// epoch that just ended.
	t.callbacks = append(t.callbacks, net.NewSchedulerCallback(t.scheduler))

	t.logger.WithField("device", t.device.String()).Debug("trainer ready")
	return t, nil
}

// AddCallback registers an extra observer. It runs before the scheduler.
func (t *Trainer) AddCallback(cb net.Callback) {
	last := len(t.callbacks) - 1
	t.callbacks = append(t.callbacks[:last], cb, t.callbacks[last])
}

// RunID identifies this run in logs and in the checkpoint header.
func (t *Trainer) RunID() string {
	return t.runID
}

// Network returns the network being trained.
func (t *Trainer) Network() *net.Network {
	return t.network
}

// EpochLosses returns the mean batch loss of every completed epoch.
func (t *Trainer) EpochLosses() []float64 {
	return append([]float64(nil), t.losses...)
}

// Fit trains for cfg.MaxEpoch full passes over windows in order. Each batch
// gets one Adam update at the epoch's scheduled rate. Every call starts from
// the first scheduled rate with fresh Adam moments and continues from the
// current weights. Any error aborts the run and leaves the trainer unfitted.
func (t *Trainer) Fit(windows []series.Window, targets [][]float64) error {
	if t.closed {
		return ErrClosed
	}
	t.fitted = false

	gen, err := series.NewBatchGenerator(windows, targets, t.cfg.BatchSize, t.cfg.NumSteps)
	if err != nil {
		return err
	}
	if gen.Len() == 0 {
		return fmt.Errorf("no training windows: %w", series.ErrData)
	}

	t.scheduler.Reset()
	t.adam.Reset()
	t.network.SetTraining(true)
	defer t.network.SetTraining(false)

	for _, cb := range t.callbacks {
		cb.OnTrainBegin(t.network)
	}
	defer func() {
		for _, cb := range t.callbacks {
			cb.OnTrainEnd(t.network)
		}
	}()

	t.losses = t.losses[:0]
	iteration := 0
	for epoch := 0; epoch < t.cfg.MaxEpoch; epoch++ {
		lr := t.scheduler.GetLR()
		for _, cb := range t.callbacks {
			cb.OnEpochBegin(epoch, lr, t.network)
		}

		var sum float64
		var seen int
		for batch, err := range gen.Epoch() {
			if err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
			loss, err := t.network.TrainBatch(batch.Inputs, batch.Targets)
			if err != nil {
				return fmt.Errorf("epoch %d batch %d: %w", epoch, batch.Index, err)
			}
			iteration++
			sum += loss * float64(batch.Size())
			seen += batch.Size()

			for _, cb := range t.callbacks {
				cb.OnBatchEnd(epoch, iteration, loss, t.network)
			}
		}

		mean := sum / float64(seen)
		t.losses = append(t.losses, mean)
		for _, cb := range t.callbacks {
			cb.OnEpochEnd(epoch, mean, t.network)
		}
	}

	t.fitted = true
	t.logger.WithFields(logrus.Fields{
		"updates":    t.adam.Steps(),
		"final_loss": t.losses[len(t.losses)-1],
	}).Debug("fit done")
	return nil
}

// Save writes the trained model to dir, replacing any earlier checkpoint.
func (t *Trainer) Save(dir string) error {
	if t.closed {
		return ErrClosed
	}
	if !t.fitted {
		return ErrNotFitted
	}

	h := net.Header{
		RunID:   t.runID,
		Created: time.Now().UTC(),
		Device:  t.device.String(),
	}
	if err := t.network.Save(dir, h); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	t.logger.WithField("dir", dir).Info("checkpoint saved")
	return nil
}

// Close releases the session. It is safe to call more than once.
func (t *Trainer) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.network = nil
	t.adam = nil
	t.scheduler = nil
	t.callbacks = nil
	return nil
}

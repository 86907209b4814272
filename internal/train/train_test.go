package train

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/stockrnn/internal/config"
	"github.com/FlavioCFOliveira/stockrnn/internal/net"
	"github.com/FlavioCFOliveira/stockrnn/internal/series"
)

func smallConfig() config.Config {
	cfg := config.Defaults()
	cfg.NumSteps = 4
	cfg.HiddenSize = 8
	cfg.KeepProb = 1
	cfg.BatchSize = 8
	cfg.InitLearningRate = 0.01
	cfg.MaxEpoch = 25
	cfg.Plot = ""
	return cfg
}

func sineWindows(cfg config.Config, n int) ([]series.Window, [][]float64) {
	values := make([]float64, n)
	for i := range values {
		values[i] = 0.5 + 0.3*math.Sin(float64(i)/4)
	}
	return series.Windows(values, cfg.NumSteps, cfg.InputSize)
}

func newTrainer(t *testing.T, cfg config.Config) *Trainer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	tr, err := NewTrainer(cfg, rand.New(rand.NewPCG(7, 7)), logger)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestFitReducesLoss(t *testing.T) {
	cfg := smallConfig()
	tr := newTrainer(t, cfg)
	windows, targets := sineWindows(cfg, 80)

	require.NoError(t, tr.Fit(windows, targets))

	losses := tr.EpochLosses()
	require.Len(t, losses, cfg.MaxEpoch)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.False(t, tr.Network().Training())
}

func TestFitShapeMismatchWritesNoCheckpoint(t *testing.T) {
	cfg := smallConfig()
	tr := newTrainer(t, cfg)
	windows, targets := sineWindows(cfg, 40)
	windows[len(windows)-1] = windows[len(windows)-1][:2]

	err := tr.Fit(windows, targets)
	require.ErrorIs(t, err, series.ErrShapeMismatch)

	dir := filepath.Join(t.TempDir(), "ckpt")
	assert.ErrorIs(t, tr.Save(dir), ErrNotFitted)
	assert.NoDirExists(t, dir)
}

func TestFitEmpty(t *testing.T) {
	tr := newTrainer(t, smallConfig())
	assert.ErrorIs(t, tr.Fit(nil, nil), series.ErrData)
}

func TestFitTrainLog(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxEpoch = 3
	cfg.TrainLog = filepath.Join(t.TempDir(), "train.csv")
	tr := newTrainer(t, cfg)
	windows, targets := sineWindows(cfg, 30)

	require.NoError(t, tr.Fit(windows, targets))

	data, err := os.ReadFile(cfg.TrainLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), "epoch,loss,learning_rate,time_seconds")
}

type countingCallback struct {
	net.BaseCallback
	lrs     []float64
	batches int
}

func (c *countingCallback) OnEpochBegin(epoch int, lr float64, n *net.Network) {
	c.lrs = append(c.lrs, lr)
}

func (c *countingCallback) OnBatchEnd(epoch, iteration int, loss float64, n *net.Network) {
	c.batches = iteration
}

func TestFitFollowsSchedule(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxEpoch = 6
	cfg.InitEpoch = 2
	cfg.LearningRateDecay = 0.5
	tr := newTrainer(t, cfg)
	cb := &countingCallback{}
	tr.AddCallback(cb)

	windows, targets := sineWindows(cfg, 24) // 20 windows, 3 batches
	require.NoError(t, tr.Fit(windows, targets))

	assert.InDeltaSlice(t, cfg.Schedule(), cb.lrs, 1e-15)
	assert.Equal(t, 3*cfg.MaxEpoch, cb.batches)
}

func TestFitTwiceRestartsSchedule(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxEpoch = 4
	cfg.InitEpoch = 1
	cfg.LearningRateDecay = 0.5
	tr := newTrainer(t, cfg)
	windows, targets := sineWindows(cfg, 24)

	require.NoError(t, tr.Fit(windows, targets))

	cb := &countingCallback{}
	tr.AddCallback(cb)
	require.NoError(t, tr.Fit(windows, targets))

	assert.InDeltaSlice(t, []float64{0.01, 0.005, 0.0025, 0.00125}, cb.lrs, 1e-15)
	assert.Len(t, tr.EpochLosses(), cfg.MaxEpoch)
}

func TestSaveAndPredict(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxEpoch = 3
	tr := newTrainer(t, cfg)
	windows, targets := sineWindows(cfg, 40)
	require.NoError(t, tr.Fit(windows, targets))

	want, err := tr.Network().Predict(windows)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "ckpt")
	require.NoError(t, tr.Save(dir))

	logger, _ := test.NewNullLogger()
	p, err := NewPredictor(dir, logger)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, tr.RunID(), p.Header().RunID)

	first, err := p.Predict(windows)
	require.NoError(t, err)
	second, err := p.Predict(windows)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, want, first)
}

func TestPredictorMissingCheckpoint(t *testing.T) {
	_, err := NewPredictor(t.TempDir(), nil)
	assert.ErrorIs(t, err, net.ErrCheckpointMissing)
}

func TestClose(t *testing.T) {
	cfg := smallConfig()
	tr := newTrainer(t, cfg)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	windows, targets := sineWindows(cfg, 20)
	assert.ErrorIs(t, tr.Fit(windows, targets), ErrClosed)
	assert.ErrorIs(t, tr.Save(t.TempDir()), ErrClosed)
}

package net

import (
	"bytes"
	"encoding/gob"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/stockrnn/internal/opt"
	"github.com/FlavioCFOliveira/stockrnn/internal/series"
)

func testArch() Architecture {
	return Architecture{InputSize: 2, NumSteps: 3, HiddenSize: 8, NumLayers: 2, KeepProb: 1}
}

func newTestNetwork(t *testing.T, arch Architecture) *Network {
	t.Helper()
	n, err := New(arch, opt.NewAdam(0.01), rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	return n
}

func toyData(arch Architecture, count int) ([]series.Window, [][]float64) {
	values := make([]float64, arch.InputSize*(arch.NumSteps+count))
	for i := range values {
		values[i] = 0.1 + 0.8*float64(i%7)/7
	}
	return series.Windows(values, arch.NumSteps, arch.InputSize)
}

func TestArchitectureValidate(t *testing.T) {
	assert.NoError(t, testArch().Validate())

	bad := []Architecture{
		{InputSize: 0, NumSteps: 1, HiddenSize: 1, NumLayers: 1, KeepProb: 1},
		{InputSize: 1, NumSteps: 0, HiddenSize: 1, NumLayers: 1, KeepProb: 1},
		{InputSize: 1, NumSteps: 1, HiddenSize: 0, NumLayers: 1, KeepProb: 1},
		{InputSize: 1, NumSteps: 1, HiddenSize: 1, NumLayers: 0, KeepProb: 1},
		{InputSize: 1, NumSteps: 1, HiddenSize: 1, NumLayers: 1, KeepProb: 0},
		{InputSize: 1, NumSteps: 1, HiddenSize: 1, NumLayers: 1, KeepProb: 1.5},
		{InputSize: 1, NumSteps: 1, HiddenSize: 1, NumLayers: 1, KeepProb: 1, CellActivation: "Softmax"},
	}
	for _, a := range bad {
		assert.Error(t, a.Validate(), "%+v", a)
	}
}

func TestNetworkPredictShape(t *testing.T) {
	arch := testArch()
	n := newTestNetwork(t, arch)
	windows, _ := toyData(arch, 5)

	pred, err := n.Predict(windows)
	require.NoError(t, err)
	require.Len(t, pred, len(windows))
	for _, p := range pred {
		assert.Len(t, p, arch.InputSize)
	}
	assert.False(t, n.Training())
}

func TestNetworkParamLayout(t *testing.T) {
	arch := testArch()
	n := newTestNetwork(t, arch)

	// Two recurrent cells plus the head.
	require.Len(t, n.Layers(), 3)
	want := (2+8)*8 + 8 + (8+8)*8 + 8 + 8*2 + 2
	assert.Len(t, n.Params(), want)
	assert.Len(t, n.Gradients(), want)

	p := n.Params()
	for i := range p {
		p[i] = float64(i)
	}
	n.SetParams(p)
	assert.Equal(t, p, n.Params())
}

func TestTrainBatchReducesLoss(t *testing.T) {
	arch := testArch()
	n := newTestNetwork(t, arch)
	n.SetTraining(true)
	windows, targets := toyData(arch, 8)

	first, err := n.TrainBatch(windows, targets)
	require.NoError(t, err)

	var last float64
	for i := 0; i < 200; i++ {
		last, err = n.TrainBatch(windows, targets)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
}

func TestTrainBatchShapeMismatch(t *testing.T) {
	arch := testArch()
	n := newTestNetwork(t, arch)
	windows, targets := toyData(arch, 4)

	_, err := n.TrainBatch(windows, targets[:3])
	assert.ErrorIs(t, err, series.ErrShapeMismatch)

	short := append([]series.Window{windows[0][:2]}, windows[1:]...)
	_, err = n.TrainBatch(short, targets)
	assert.ErrorIs(t, err, series.ErrShapeMismatch)

	_, err = n.TrainBatch(windows, [][]float64{{1}, {1}, {1}, {1}})
	assert.ErrorIs(t, err, series.ErrShapeMismatch)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	arch := testArch()
	n := newTestNetwork(t, arch)
	windows, _ := toyData(arch, 4)
	want, err := n.Predict(windows)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, n.Encode(&buf, Header{RunID: "run-1", Device: "cpu"}))

	restored, h, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.RunID)
	assert.Equal(t, arch, h.Architecture)
	assert.Equal(t, n.Params(), restored.Params())

	got, err := restored.Predict(windows)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCellActivationSurvivesCheckpoint(t *testing.T) {
	arch := testArch()
	arch.CellActivation = "Sigmoid"
	n := newTestNetwork(t, arch)
	windows, _ := toyData(arch, 3)
	want, err := n.Predict(windows)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, n.Encode(&buf, Header{}))
	restored, h, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Sigmoid", h.Architecture.CellActivation)

	got, err := restored.Predict(windows)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ckpt")
	n := newTestNetwork(t, testArch())

	require.NoError(t, n.Save(dir, Header{RunID: "abc"}))
	assert.FileExists(t, filepath.Join(dir, CheckpointFile))

	restored, h, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc", h.RunID)
	assert.Equal(t, n.Params(), restored.Params())
}

func TestLoadMissing(t *testing.T) {
	_, _, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrCheckpointMissing)
}

func TestDecodeRejectsBadLayerCount(t *testing.T) {
	for _, count := range []int32{-1, 0, 1 << 30} {
		var buf bytes.Buffer
		enc := gob.NewEncoder(&buf)
		require.NoError(t, enc.Encode(Header{Version: checkpointVersion, Architecture: testArch()}))
		require.NoError(t, enc.Encode(count))

		var err error
		require.NotPanics(t, func() { _, _, err = Decode(&buf) })
		assert.ErrorContains(t, err, "layers", "count %d", count)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("not a checkpoint")))
	assert.Error(t, err)
}

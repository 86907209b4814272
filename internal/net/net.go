// Package net assembles the recurrent stack and the projection head into a
// trainable network, and owns its checkpoint format and training callbacks.
package net

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/stockrnn/internal/activations"
	"github.com/FlavioCFOliveira/stockrnn/internal/layer"
	"github.com/FlavioCFOliveira/stockrnn/internal/loss"
	"github.com/FlavioCFOliveira/stockrnn/internal/opt"
	"github.com/FlavioCFOliveira/stockrnn/internal/series"
)

// Architecture is everything needed to rebuild a network with the same
// parameter layout.
type Architecture struct {
	InputSize  int
	NumSteps   int
	HiddenSize int
	NumLayers  int
	KeepProb   float64

	// CellActivation names the recurrent non-linearity. Empty means Tanh.
	CellActivation string
}

// cellActivation resolves CellActivation.
func (a Architecture) cellActivation() (activations.Activation, error) {
	if a.CellActivation == "" {
		return activations.Tanh{}, nil
	}
	return activations.ByName(a.CellActivation)
}

// Validate checks that every dimension is usable.
func (a Architecture) Validate() error {
	switch {
	case a.InputSize < 1:
		return fmt.Errorf("input size %d must be >= 1", a.InputSize)
	case a.NumSteps < 1:
		return fmt.Errorf("num steps %d must be >= 1", a.NumSteps)
	case a.HiddenSize < 1:
		return fmt.Errorf("hidden size %d must be >= 1", a.HiddenSize)
	case a.NumLayers < 1:
		return fmt.Errorf("num layers %d must be >= 1", a.NumLayers)
	case !(a.KeepProb > 0 && a.KeepProb <= 1):
		return fmt.Errorf("keep prob %g must be in (0, 1]", a.KeepProb)
	}
	if _, err := a.cellActivation(); err != nil {
		return fmt.Errorf("cell activation: %w", err)
	}
	return nil
}

// Network is a stack of dropout-wrapped recurrent cells read at the last
// time step and projected linearly to InputSize outputs.
type Network struct {
	arch     Architecture
	rnn      *layer.SequenceUnroller
	head     *layer.Dense
	loss     loss.Loss
	opt      opt.Optimizer
	training bool
}

// New creates a freshly initialised network. rng drives weight
// initialisation and, later, the dropout masks.
func New(arch Architecture, optimizer opt.Optimizer, rng *rand.Rand) (*Network, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}

	act, err := arch.cellActivation()
	if err != nil {
		return nil, err
	}

	rnn := layer.NewSequenceUnroller(arch.InputSize, arch.HiddenSize, arch.NumLayers, arch.NumSteps, arch.KeepProb, act, rng)
	head := layer.NewDense(arch.HiddenSize, arch.InputSize, activations.Linear{}, layer.TruncatedNormal(1.0), 0.1, rng)

	n := &Network{
		arch: arch,
		rnn:  rnn,
		head: head,
		loss: loss.MSE{},
		opt:  optimizer,
	}
	n.SetTraining(false)
	return n, nil
}

// Architecture returns the network dimensions.
func (n *Network) Architecture() Architecture {
	return n.arch
}

// SetTraining toggles dropout.
func (n *Network) SetTraining(training bool) {
	n.training = training
	n.rnn.SetTraining(training)
}

// Training reports whether dropout is active.
func (n *Network) Training() bool {
	return n.training
}

// Forward runs a batch of windows through the network and returns a
// [batch, InputSize] matrix of predictions.
func (n *Network) Forward(windows []series.Window) (*mat.Dense, error) {
	steps, err := n.stepMatrices(windows)
	if err != nil {
		return nil, err
	}
	return n.head.Forward(n.rnn.Forward(steps)), nil
}

// Predict is Forward returning one prediction vector per window.
func (n *Network) Predict(windows []series.Window) ([][]float64, error) {
	if len(windows) == 0 {
		return nil, nil
	}
	pred, err := n.Forward(windows)
	if err != nil {
		return nil, err
	}

	rows, _ := pred.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = mat.Row(nil, i, pred)
	}
	return out, nil
}

// TrainBatch performs one optimisation step on a batch: forward, MSE over
// every element of the batch, backpropagation through time and a single
// optimizer update. It returns the batch loss before the update.
func (n *Network) TrainBatch(batchX []series.Window, batchY [][]float64) (float64, error) {
	if len(batchX) == 0 {
		return 0, nil
	}
	if len(batchX) != len(batchY) {
		return 0, fmt.Errorf("%d windows but %d targets: %w", len(batchX), len(batchY), series.ErrShapeMismatch)
	}

	y, err := n.targetMatrix(batchY)
	if err != nil {
		return 0, err
	}

	n.ClearGradients()
	pred, err := n.Forward(batchX)
	if err != nil {
		return 0, err
	}

	yPred := pred.RawMatrix().Data
	yTrue := y.RawMatrix().Data
	l := n.loss.Forward(yPred, yTrue)

	rows, cols := pred.Dims()
	grad := mat.NewDense(rows, cols, nil)
	if backwardInPlace, ok := n.loss.(loss.BackwardInPlacer); ok {
		backwardInPlace.BackwardInPlace(yPred, yTrue, grad.RawMatrix().Data)
	} else {
		copy(grad.RawMatrix().Data, n.loss.Backward(yPred, yTrue))
	}

	n.rnn.Backward(n.head.Backward(grad))
	n.Step()

	return l, nil
}

// Step applies one optimizer update to every trainable parameter.
func (n *Network) Step() {
	params := n.Params()
	n.opt.StepInPlace(params, n.Gradients())
	n.SetParams(params)
}

// Params returns all network parameters flattened (copy): recurrent layers
// bottom first, then the projection head.
func (n *Network) Params() []float64 {
	return append(n.rnn.Params(), n.head.Params()...)
}

// SetParams distributes a vector laid out like Params.
func (n *Network) SetParams(params []float64) {
	split := len(params) - len(n.head.Params())
	n.rnn.SetParams(params[:split])
	n.head.SetParams(params[split:])
}

// Gradients returns all network gradients flattened (copy).
func (n *Network) Gradients() []float64 {
	return append(n.rnn.Gradients(), n.head.Gradients()...)
}

// ClearGradients zeroes every accumulated gradient.
func (n *Network) ClearGradients() {
	n.rnn.ClearGradients()
	n.head.ClearGradients()
}

// Layers returns the trainable layers in parameter order.
func (n *Network) Layers() []layer.Layer {
	layers := make([]layer.Layer, 0, n.arch.NumLayers+1)
	for _, c := range n.rnn.Cells() {
		layers = append(layers, c)
	}
	return append(layers, n.head)
}

// stepMatrices transposes a batch of windows into one [batch, InputSize]
// matrix per time step.
func (n *Network) stepMatrices(windows []series.Window) ([]*mat.Dense, error) {
	batch := len(windows)
	if batch == 0 {
		return nil, fmt.Errorf("empty batch: %w", series.ErrShapeMismatch)
	}

	steps := make([]*mat.Dense, n.arch.NumSteps)
	for t := range steps {
		steps[t] = mat.NewDense(batch, n.arch.InputSize, nil)
	}
	for b, w := range windows {
		if len(w) != n.arch.NumSteps {
			return nil, fmt.Errorf("window %d has %d steps, want %d: %w", b, len(w), n.arch.NumSteps, series.ErrShapeMismatch)
		}
		for t, vec := range w {
			if len(vec) != n.arch.InputSize {
				return nil, fmt.Errorf("window %d step %d has %d features, want %d: %w",
					b, t, len(vec), n.arch.InputSize, series.ErrShapeMismatch)
			}
			steps[t].SetRow(b, vec)
		}
	}
	return steps, nil
}

func (n *Network) targetMatrix(targets [][]float64) (*mat.Dense, error) {
	y := mat.NewDense(len(targets), n.arch.InputSize, nil)
	for i, v := range targets {
		if len(v) != n.arch.InputSize {
			return nil, fmt.Errorf("target %d has %d features, want %d: %w", i, len(v), n.arch.InputSize, series.ErrShapeMismatch)
		}
		y.SetRow(i, v)
	}
	return y, nil
}

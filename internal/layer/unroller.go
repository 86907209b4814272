package layer

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/stockrnn/internal/activations"
)

// SequenceUnroller runs a stack of recurrent cells over timeSteps inputs and
// returns the last output of the top cell. Every cell has its own output
// dropout; the state carried to the next step is the cell's un-dropped state.
type SequenceUnroller struct {
	cells     []*RNN
	drops     []*Dropout
	timeSteps int
}

// NewSequenceUnroller builds numLayers independently initialised cells using
// act as their non-linearity. The first cell reads inSize features per step,
// the rest read the hidden state of the cell below.
func NewSequenceUnroller(inSize, hiddenSize, numLayers, timeSteps int, keepProb float64, act activations.Activation, rng *rand.Rand) *SequenceUnroller {
	s := &SequenceUnroller{timeSteps: timeSteps}
	in := inSize
	for i := 0; i < numLayers; i++ {
		s.cells = append(s.cells, NewRNN(in, hiddenSize, act, rng))
		s.drops = append(s.drops, NewDropout(keepProb, rng))
		in = hiddenSize
	}
	return s
}

// SetTraining toggles dropout in every layer.
func (s *SequenceUnroller) SetTraining(training bool) {
	for _, d := range s.drops {
		d.SetTraining(training)
	}
}

// Forward consumes one [batch, inSize] matrix per time step and returns the
// [batch, hiddenSize] output of the top layer at the final step.
func (s *SequenceUnroller) Forward(steps []*mat.Dense) *mat.Dense {
	if len(steps) != s.timeSteps {
		panic(fmt.Sprintf("SequenceUnroller: expected %d time steps, got %d", s.timeSteps, len(steps)))
	}
	s.Reset()

	curr := steps
	for l, cell := range s.cells {
		next := make([]*mat.Dense, s.timeSteps)
		for t := 0; t < s.timeSteps; t++ {
			next[t] = s.drops[l].Forward(cell.Forward(curr[t]))
		}
		curr = next
	}
	return curr[s.timeSteps-1]
}

// Backward propagates the gradient of the final output back through time
// and through every layer, accumulating parameter gradients. It returns the
// gradient w.r.t. each input step.
func (s *SequenceUnroller) Backward(grad *mat.Dense) []*mat.Dense {
	batch, _ := grad.Dims()

	// gradients w.r.t. the (dropped) outputs of the current layer, per step
	dOut := make([]*mat.Dense, s.timeSteps)
	dOut[s.timeSteps-1] = grad

	for l := len(s.cells) - 1; l >= 0; l-- {
		cell, drop := s.cells[l], s.drops[l]
		dIn := make([]*mat.Dense, s.timeSteps)
		dhNext := mat.NewDense(batch, cell.OutSize(), nil)

		for t := s.timeSteps - 1; t >= 0; t-- {
			g := dOut[t]
			if g == nil {
				g = mat.NewDense(batch, cell.OutSize(), nil)
			}
			dh := mat.DenseCopyOf(drop.Backward(g))
			dh.Add(dh, dhNext)

			var dx *mat.Dense
			dx, dhNext = cell.Backward(dh)
			dIn[t] = dx
		}
		dOut = dIn
	}
	return dOut
}

// Reset clears the per-sequence state of every layer.
func (s *SequenceUnroller) Reset() {
	for i := range s.cells {
		s.cells[i].Reset()
		s.drops[i].Reset()
	}
}

// Cells returns the stacked cells, bottom first.
func (s *SequenceUnroller) Cells() []*RNN {
	return s.cells
}

// Params returns the parameters of every cell, bottom first.
func (s *SequenceUnroller) Params() []float64 {
	var params []float64
	for _, c := range s.cells {
		params = append(params, c.Params()...)
	}
	return params
}

// SetParams distributes a flattened vector produced by Params.
func (s *SequenceUnroller) SetParams(params []float64) {
	offset := 0
	for _, c := range s.cells {
		n := c.NumParams()
		c.SetParams(params[offset : offset+n])
		offset += n
	}
}

// Gradients returns the accumulated gradients of every cell, bottom first.
func (s *SequenceUnroller) Gradients() []float64 {
	var grads []float64
	for _, c := range s.cells {
		grads = append(grads, c.Gradients()...)
	}
	return grads
}

// ClearGradients zeroes every cell's gradients.
func (s *SequenceUnroller) ClearGradients() {
	for _, c := range s.cells {
		c.ClearGradients()
	}
}

// InSize returns the feature count of one input step.
func (s *SequenceUnroller) InSize() int {
	return s.cells[0].InSize()
}

// OutSize returns the hidden size of the top cell.
func (s *SequenceUnroller) OutSize() int {
	return s.cells[len(s.cells)-1].OutSize()
}

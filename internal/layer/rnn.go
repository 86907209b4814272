package layer

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/stockrnn/internal/activations"
)

// RNN is a basic recurrent cell, h_t = act(x_t·Wx + h_{t-1}·Wh + b),
// processed one time step per Forward call for a whole batch.
type RNN struct {
	inSize  int
	outSize int
	act     activations.Activation

	inputWeights     *mat.Dense // [inSize, outSize]
	recurrentWeights *mat.Dense // [outSize, outSize]
	biases           []float64  // outSize

	gradInputWeights     *mat.Dense
	gradRecurrentWeights *mat.Dense
	gradBiases           []float64

	// Saved per time step for BPTT
	storedInputs  []*mat.Dense
	storedPreActs []*mat.Dense
	storedStates  []*mat.Dense

	// Current time step
	timeStep int
}

// NewRNN creates a recurrent cell with non-linearity act (tanh for the
// classic cell). Both kernels are Glorot-uniform over the fused
// [inSize+outSize, outSize] kernel shape and biases start at zero.
func NewRNN(inSize, outSize int, act activations.Activation, rng *rand.Rand) *RNN {
	fanIn := inSize + outSize

	inputWeights := make([]float64, inSize*outSize)
	fill(inputWeights, fanIn, outSize, GlorotUniform, rng)
	recurrentWeights := make([]float64, outSize*outSize)
	fill(recurrentWeights, fanIn, outSize, GlorotUniform, rng)

	return &RNN{
		inSize:  inSize,
		outSize: outSize,
		act:     act,

		inputWeights:     mat.NewDense(inSize, outSize, inputWeights),
		recurrentWeights: mat.NewDense(outSize, outSize, recurrentWeights),
		biases:           make([]float64, outSize),

		gradInputWeights:     mat.NewDense(inSize, outSize, nil),
		gradRecurrentWeights: mat.NewDense(outSize, outSize, nil),
		gradBiases:           make([]float64, outSize),
	}
}

// Reset clears the stored sequence so the next Forward starts from a zero
// hidden state.
func (r *RNN) Reset() {
	r.timeStep = 0
	r.storedInputs = r.storedInputs[:0]
	r.storedPreActs = r.storedPreActs[:0]
	r.storedStates = r.storedStates[:0]
}

// Forward performs one time step for a [batch, inSize] input and returns the
// [batch, outSize] hidden state.
func (r *RNN) Forward(x *mat.Dense) *mat.Dense {
	batch, _ := x.Dims()

	z := mat.NewDense(batch, r.outSize, nil)
	z.Mul(x, r.inputWeights)
	if r.timeStep > 0 {
		var rec mat.Dense
		rec.Mul(r.storedStates[r.timeStep-1], r.recurrentWeights)
		z.Add(z, &rec)
	}
	addBias(z, r.biases)

	h := mat.NewDense(batch, r.outSize, nil)
	h.Apply(func(_, _ int, v float64) float64 { return r.act.Activate(v) }, z)

	r.storedInputs = append(r.storedInputs[:r.timeStep], mat.DenseCopyOf(x))
	r.storedPreActs = append(r.storedPreActs[:r.timeStep], z)
	r.storedStates = append(r.storedStates[:r.timeStep], h)
	r.timeStep++

	return h
}

// Backward runs backpropagation through time for the most recent un-popped
// step. dh is the full gradient w.r.t. that step's hidden state (from the
// output and from the following step). It accumulates parameter gradients and
// returns the gradients w.r.t. the step input and the previous hidden state.
func (r *RNN) Backward(dh *mat.Dense) (dx, dhPrev *mat.Dense) {
	ts := r.timeStep - 1
	if ts < 0 {
		panic("RNN: Backward called without a matching Forward")
	}
	batch, _ := dh.Dims()
	z := r.storedPreActs[ts]

	dz := mat.NewDense(batch, r.outSize, nil)
	dz.Apply(func(i, j int, v float64) float64 {
		return v * r.act.Derivative(z.At(i, j))
	}, dh)

	var gx mat.Dense
	gx.Mul(r.storedInputs[ts].T(), dz)
	r.gradInputWeights.Add(r.gradInputWeights, &gx)

	// h_{-1} is zero, so the first step contributes nothing to Wh
	if ts > 0 {
		var gh mat.Dense
		gh.Mul(r.storedStates[ts-1].T(), dz)
		r.gradRecurrentWeights.Add(r.gradRecurrentWeights, &gh)
	}
	addColumnSums(r.gradBiases, dz)

	dx = mat.NewDense(batch, r.inSize, nil)
	dx.Mul(dz, r.inputWeights.T())
	dhPrev = mat.NewDense(batch, r.outSize, nil)
	dhPrev.Mul(dz, r.recurrentWeights.T())

	r.timeStep--
	return dx, dhPrev
}

// Params returns all RNN parameters flattened (copy).
// Layout: input weights, recurrent weights, biases.
func (r *RNN) Params() []float64 {
	wx := r.inputWeights.RawMatrix().Data
	wh := r.recurrentWeights.RawMatrix().Data
	params := make([]float64, 0, len(wx)+len(wh)+len(r.biases))
	params = append(params, wx...)
	params = append(params, wh...)
	return append(params, r.biases...)
}

// SetParams updates weights and biases from a flattened slice.
func (r *RNN) SetParams(params []float64) {
	wx := r.inputWeights.RawMatrix().Data
	wh := r.recurrentWeights.RawMatrix().Data

	copy(wx, params[:len(wx)])
	copy(wh, params[len(wx):len(wx)+len(wh)])
	copy(r.biases, params[len(wx)+len(wh):])
}

// Gradients returns all RNN gradients flattened (copy).
func (r *RNN) Gradients() []float64 {
	gx := r.gradInputWeights.RawMatrix().Data
	gh := r.gradRecurrentWeights.RawMatrix().Data
	grads := make([]float64, 0, len(gx)+len(gh)+len(r.gradBiases))
	grads = append(grads, gx...)
	grads = append(grads, gh...)
	return append(grads, r.gradBiases...)
}

// ClearGradients zeroes out the accumulated gradients.
func (r *RNN) ClearGradients() {
	r.gradInputWeights.Zero()
	r.gradRecurrentWeights.Zero()
	for i := range r.gradBiases {
		r.gradBiases[i] = 0
	}
}

// NumParams returns the number of trainable values.
func (r *RNN) NumParams() int {
	return r.inSize*r.outSize + r.outSize*r.outSize + r.outSize
}

// InSize returns the input size of the cell.
func (r *RNN) InSize() int {
	return r.inSize
}

// OutSize returns the hidden state size.
func (r *RNN) OutSize() int {
	return r.outSize
}

// Activation returns the cell non-linearity.
func (r *RNN) Activation() activations.Activation {
	return r.act
}

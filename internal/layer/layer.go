// Package layer provides the building blocks of the forecaster: a basic
// recurrent cell, output dropout, the stacked unroller and the dense
// projection head. Every layer works on whole batches stored as gonum
// matrices with one sample per row.
package layer

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/stockrnn/internal/activations"
)

// Layer is the parameter surface shared by every trainable layer.
type Layer interface {
	Params() []float64
	SetParams([]float64)
	Gradients() []float64
	ClearGradients()
	InSize() int
	OutSize() int
}

// Dense is a fully connected layer: act(x·W + b).
type Dense struct {
	// Shape: [in, out], row-major
	weights *mat.Dense
	biases  []float64
	act     activations.Activation
	inSize  int
	outSize int

	gradW *mat.Dense
	gradB []float64

	// saved for Backward
	input  *mat.Dense
	preAct *mat.Dense
}

// NewDense creates a dense layer. Weights are drawn with init from rng and
// every bias starts at bias.
func NewDense(in, out int, act activations.Activation, init Initializer, bias float64, rng *rand.Rand) *Dense {
	weights := make([]float64, in*out)
	fill(weights, in, out, init, rng)

	biases := make([]float64, out)
	for i := range biases {
		biases[i] = bias
	}

	return &Dense{
		weights: mat.NewDense(in, out, weights),
		biases:  biases,
		act:     act,
		inSize:  in,
		outSize: out,
		gradW:   mat.NewDense(in, out, nil),
		gradB:   make([]float64, out),
	}
}

// Forward computes act(x·W + b) for a [batch, in] input.
func (d *Dense) Forward(x *mat.Dense) *mat.Dense {
	batch, _ := x.Dims()

	d.input = mat.DenseCopyOf(x)
	z := mat.NewDense(batch, d.outSize, nil)
	z.Mul(x, d.weights)
	addBias(z, d.biases)
	d.preAct = z

	out := mat.NewDense(batch, d.outSize, nil)
	out.Apply(func(_, _ int, v float64) float64 { return d.act.Activate(v) }, z)
	return out
}

// Backward accumulates weight and bias gradients for the last Forward and
// returns the gradient with respect to its input.
func (d *Dense) Backward(grad *mat.Dense) *mat.Dense {
	if d.input == nil {
		panic("Dense: Backward called before Forward")
	}
	batch, _ := grad.Dims()

	dz := mat.NewDense(batch, d.outSize, nil)
	dz.Apply(func(i, j int, v float64) float64 {
		return v * d.act.Derivative(d.preAct.At(i, j))
	}, grad)

	var gw mat.Dense
	gw.Mul(d.input.T(), dz)
	d.gradW.Add(d.gradW, &gw)
	addColumnSums(d.gradB, dz)

	gradIn := mat.NewDense(batch, d.inSize, nil)
	gradIn.Mul(dz, d.weights.T())
	return gradIn
}

// Params returns all dense layer parameters flattened (copy).
func (d *Dense) Params() []float64 {
	w := d.weights.RawMatrix().Data
	params := make([]float64, 0, len(w)+len(d.biases))
	params = append(params, w...)
	return append(params, d.biases...)
}

// SetParams updates weights and biases from a flattened slice (in-place).
func (d *Dense) SetParams(params []float64) {
	w := d.weights.RawMatrix().Data
	copy(w, params[:len(w)])
	copy(d.biases, params[len(w):])
}

// Gradients returns all dense layer gradients flattened (copy).
func (d *Dense) Gradients() []float64 {
	w := d.gradW.RawMatrix().Data
	grads := make([]float64, 0, len(w)+len(d.gradB))
	grads = append(grads, w...)
	return append(grads, d.gradB...)
}

// ClearGradients zeroes out the accumulated gradients.
func (d *Dense) ClearGradients() {
	d.gradW.Zero()
	for i := range d.gradB {
		d.gradB[i] = 0
	}
}

// Weights returns the [in, out] weight matrix.
func (d *Dense) Weights() *mat.Dense {
	return d.weights
}

// Biases returns the bias vector.
func (d *Dense) Biases() []float64 {
	return d.biases
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int {
	return d.inSize
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation {
	return d.act
}

// addBias adds b to every row of m.
func addBias(m *mat.Dense, b []float64) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		floats.Add(m.RawRowView(i), b)
	}
}

// addColumnSums adds the column sums of m into dst.
func addColumnSums(dst []float64, m *mat.Dense) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		floats.Add(dst, m.RawRowView(i))
	}
}

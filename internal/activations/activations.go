// Package activations provides the element-wise activation functions used by
// the recurrent cell and the output projection.
package activations

import (
	"fmt"
	"math"
)

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) from the pre-activation x
	Derivative(x float64) float64
}

// Tanh activation function. Default non-linearity of the basic recurrent cell.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// Linear is the identity activation used by the regression head.
type Linear struct{}

// Activate returns x unchanged.
func (l Linear) Activate(x float64) float64 {
	return x
}

// Derivative is always 1.
func (l Linear) Derivative(x float64) float64 {
	return 1
}

// Name returns the stable name of an activation, used when a model is
// written to a checkpoint.
func Name(act Activation) string {
	switch act.(type) {
	case Tanh, *Tanh:
		return "Tanh"
	case Sigmoid, *Sigmoid:
		return "Sigmoid"
	case ReLU, *ReLU:
		return "ReLU"
	case Linear, *Linear:
		return "Linear"
	default:
		return ""
	}
}

// ByName is the inverse of Name.
func ByName(name string) (Activation, error) {
	switch name {
	case "Tanh":
		return Tanh{}, nil
	case "Sigmoid":
		return Sigmoid{}, nil
	case "ReLU":
		return ReLU{}, nil
	case "Linear":
		return Linear{}, nil
	default:
		return nil, fmt.Errorf("unsupported activation: %q", name)
	}
}

// Package opt provides optimization algorithms and learning-rate schedules.
package opt

import "math"

// Optimizer updates network parameters based on gradients.
type Optimizer interface {
	// Step computes updated parameters: params - lr * gradients
	// Returns a new slice with updated values
	Step(params, gradients []float64) []float64

	// StepInPlace updates params in-place.
	StepInPlace(params, gradients []float64)

	// State exposes tunable hyper-parameters, keyed by name.
	State() map[string]interface{}

	// SetState overwrites the hyper-parameters present in state.
	SetState(state map[string]interface{})
}

// Adam is adaptive moment estimation with bias-corrected first and second
// moments. Moments are kept per parameter index, so every call must pass the
// same flattened parameter vector layout.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	m []float64
	v []float64
	t int
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Step computes updated parameters using Adam. Moment state advances exactly
// as it does for StepInPlace.
func (a *Adam) Step(params, gradients []float64) []float64 {
	result := make([]float64, len(params))
	copy(result, params)
	a.StepInPlace(result, gradients)
	return result
}

// StepInPlace updates params in-place using Adam.
func (a *Adam) StepInPlace(params, gradients []float64) {
	if len(a.m) != len(params) {
		a.m = make([]float64, len(params))
		a.v = make([]float64, len(params))
		a.t = 0
	}
	a.t++

	b1, b2 := a.Beta1, a.Beta2
	bc1 := 1 - math.Pow(b1, float64(a.t))
	bc2 := 1 - math.Pow(b2, float64(a.t))

	for i, g := range gradients {
		a.m[i] = b1*a.m[i] + (1-b1)*g
		a.v[i] = b2*a.v[i] + (1-b2)*g*g
		mHat := a.m[i] / bc1
		vHat := a.v[i] / bc2
		params[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

// Steps returns how many updates have been applied.
func (a *Adam) Steps() int {
	return a.t
}

// Reset drops the accumulated moments.
func (a *Adam) Reset() {
	a.m, a.v, a.t = nil, nil, 0
}

// State returns the hyper-parameters and the step counter.
func (a *Adam) State() map[string]interface{} {
	return map[string]interface{}{
		"LearningRate": a.LearningRate,
		"Beta1":        a.Beta1,
		"Beta2":        a.Beta2,
		"Epsilon":      a.Epsilon,
		"Steps":        a.t,
	}
}

// SetState updates the hyper-parameters present in state.
func (a *Adam) SetState(state map[string]interface{}) {
	if lr, ok := state["LearningRate"].(float64); ok {
		a.LearningRate = lr
	}
	if b1, ok := state["Beta1"].(float64); ok {
		a.Beta1 = b1
	}
	if b2, ok := state["Beta2"].(float64); ok {
		a.Beta2 = b2
	}
	if eps, ok := state["Epsilon"].(float64); ok {
		a.Epsilon = eps
	}
}

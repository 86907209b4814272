// Package loss provides the regression loss minimised by the trainer.
package loss

// BackwardInPlacer is an optional interface for loss functions that support
// in-place gradient computation to avoid allocations.
type BackwardInPlacer interface {
	BackwardInPlace(yPred, yTrue, grad []float64)
}

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	// This creates a new slice and should be avoided in hot loops.
	Backward(yPred, yTrue []float64) []float64
}

// MSE (Mean Squared Error) loss.
//
// Batched predictions are passed as the flat row-major storage of a
// [batch, outputs] matrix, so the mean runs over every element of the batch.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (m MSE) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("MSE: prediction and target must have same length")
	}
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yPred[i] - yTrue[i]
		sum += diff * diff
	}
	return sum / float64(n)
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	m.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes gradient and stores it in the grad slice.
func (m MSE) BackwardInPlace(yPred, yTrue, grad []float64) {
	n := len(yPred)
	if n != len(yTrue) || n != len(grad) {
		panic("MSE: slices must have same length")
	}
	if n == 0 {
		return
	}

	factor := 2.0 / float64(n)
	for i := 0; i < n; i++ {
		grad[i] = factor * (yPred[i] - yTrue[i])
	}
}

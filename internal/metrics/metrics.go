// Package metrics scores predictions against ground truth on the original
// price scale.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmpty is returned when there is nothing to score.
var ErrEmpty = errors.New("metrics: empty input")

// Report holds the error measures of one evaluation.
type Report struct {
	RMSE  float64
	MAE   float64
	MAPE  float64 // percent
	Count int
}

// Evaluate compares truth and pred element-wise. MAPE divides by the truth
// values, so a zero truth value makes it +Inf or NaN.
func Evaluate(truth, pred []float64) (Report, error) {
	if len(truth) != len(pred) {
		return Report{}, fmt.Errorf("metrics: %d truth values but %d predictions", len(truth), len(pred))
	}
	n := len(truth)
	if n == 0 {
		return Report{}, ErrEmpty
	}

	diff := make([]float64, n)
	floats.SubTo(diff, truth, pred)

	pct := make([]float64, n)
	for i, d := range diff {
		pct[i] = math.Abs(d / truth[i])
	}

	return Report{
		RMSE:  floats.Norm(diff, 2) / math.Sqrt(float64(n)),
		MAE:   floats.Norm(diff, 1) / float64(n),
		MAPE:  stat.Mean(pct, nil) * 100,
		Count: n,
	}, nil
}

package layer

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Dropout implements inverted output dropout.
// During training every element is kept with probability keepProb and scaled
// by 1/keepProb, otherwise zeroed. During inference inputs pass through
// unchanged. One mask is saved per Forward call and consumed in reverse order
// by Backward, so a single instance can serve every step of a sequence.
type Dropout struct {
	// Probability of keeping a unit
	keepProb float64

	// Training mode
	training bool

	// RNG for dropout masks
	rng *rand.Rand

	// Saved masks, one per Forward call; nil when the call was a pass-through
	masks []*mat.Dense
}

// NewDropout creates a dropout layer that keeps units with probability
// keepProb, drawing masks from rng.
func NewDropout(keepProb float64, rng *rand.Rand) *Dropout {
	return &Dropout{
		keepProb: keepProb,
		training: true,
		rng:      rng,
	}
}

// SetTraining sets whether the layer should be in training or inference mode.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}

// Forward applies dropout to a [batch, n] matrix.
func (d *Dropout) Forward(x *mat.Dense) *mat.Dense {
	if !d.training || d.keepProb >= 1 {
		d.masks = append(d.masks, nil)
		return x
	}

	rows, cols := x.Dims()
	scale := 1.0 / d.keepProb
	mask := mat.NewDense(rows, cols, nil)
	maskData := mask.RawMatrix().Data
	for i := range maskData {
		if d.rng.Float64() < d.keepProb {
			maskData[i] = scale
		}
	}
	d.masks = append(d.masks, mask)

	out := mat.NewDense(rows, cols, nil)
	out.MulElem(x, mask)
	return out
}

// Backward routes the gradient through the mask of the most recent
// un-consumed Forward call.
func (d *Dropout) Backward(grad *mat.Dense) *mat.Dense {
	n := len(d.masks)
	if n == 0 {
		panic("Dropout: Backward called without a matching Forward")
	}
	mask := d.masks[n-1]
	d.masks = d.masks[:n-1]

	if mask == nil {
		return grad
	}
	rows, cols := grad.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.MulElem(grad, mask)
	return out
}

// Reset drops any saved masks.
func (d *Dropout) Reset() {
	d.masks = d.masks[:0]
}

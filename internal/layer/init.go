package layer

import (
	"math"
	"math/rand/v2"
)

// Initializer draws one initial weight for a matrix with the given fan-in and
// fan-out.
type Initializer func(fanIn, fanOut int, rng *rand.Rand) float64

// GlorotUniform samples from U(-l, l) with l = sqrt(6 / (fanIn + fanOut)).
func GlorotUniform(fanIn, fanOut int, rng *rand.Rand) float64 {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return (rng.Float64()*2 - 1) * limit
}

// TruncatedNormal samples from N(0, stddev²), redrawing anything further than
// two standard deviations from the mean.
func TruncatedNormal(stddev float64) Initializer {
	return func(_, _ int, rng *rand.Rand) float64 {
		for {
			v := rng.NormFloat64()
			if math.Abs(v) <= 2 {
				return v * stddev
			}
		}
	}
}

func fill(data []float64, fanIn, fanOut int, init Initializer, rng *rand.Rand) {
	for i := range data {
		data[i] = init(fanIn, fanOut, rng)
	}
}

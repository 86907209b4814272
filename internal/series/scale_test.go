package series

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale(t *testing.T) {
	b := Bounds{Min: 10, Max: 2000}
	scaled, err := Scale([]float64{10, 2000, 1005}, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 0.5}, scaled, 1e-12)
}

func TestScaleDoesNotModifyInput(t *testing.T) {
	in := []float64{20, 30}
	_, err := Scale(in, Bounds{Min: 10, Max: 2000})
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 30}, in)
}

func TestScaleRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))
	bounds := []Bounds{{10, 2000}, {-5, 5}, {0.001, 0.002}, {100, -100}}

	for _, b := range bounds {
		values := make([]float64, 100)
		for i := range values {
			values[i] = rng.NormFloat64() * 1000
		}

		scaled, err := Scale(values, b)
		require.NoError(t, err)
		back, err := Unscale(scaled, b)
		require.NoError(t, err)
		for i := range values {
			assert.InDelta(t, values[i], back[i], 1e-9*(1+abs(values[i])), "bounds %v value %d", b, i)
		}
	}
}

func TestScaleDegenerateBounds(t *testing.T) {
	b := Bounds{Min: 7, Max: 7}

	_, err := Scale([]float64{1}, b)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = Unscale([]float64{1}, b)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	assert.ErrorIs(t, b.Validate(), ErrDivisionByZero)
}

func TestBoundsValidate(t *testing.T) {
	assert.NoError(t, Bounds{Min: 10, Max: 2000}.Validate())
	assert.Error(t, Bounds{Min: 2000, Max: 10}.Validate())
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

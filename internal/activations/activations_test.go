package activations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTanh(t *testing.T) {
	tanh := Tanh{}

	tests := []struct {
		input float64
		want  float64
	}{
		{0, 0},
		{1, math.Tanh(1)},
		{-2, math.Tanh(-2)},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, tanh.Activate(tt.input), 1e-12, "Tanh(%v)", tt.input)
	}
}

// TestDerivativesMatchFiniteDifferences checks every activation against a
// central difference away from the ReLU kink.
func TestDerivativesMatchFiniteDifferences(t *testing.T) {
	const h = 1e-6
	acts := []Activation{Tanh{}, Sigmoid{}, ReLU{}, Linear{}}
	points := []float64{-1.7, -0.3, 0.4, 2.1}

	for _, act := range acts {
		for _, x := range points {
			numeric := (act.Activate(x+h) - act.Activate(x-h)) / (2 * h)
			assert.InDelta(t, numeric, act.Derivative(x), 1e-6, "%s'(%v)", Name(act), x)
		}
	}
}

func TestLinearIsIdentity(t *testing.T) {
	lin := Linear{}
	for _, x := range []float64{-3, 0, 0.25, 1e6} {
		assert.Equal(t, x, lin.Activate(x))
		assert.Equal(t, 1.0, lin.Derivative(x))
	}
}

func TestNameRoundTrip(t *testing.T) {
	for _, act := range []Activation{Tanh{}, Sigmoid{}, ReLU{}, Linear{}} {
		got, err := ByName(Name(act))
		require.NoError(t, err)
		assert.Equal(t, act, got)
	}

	_, err := ByName("Softmax")
	assert.Error(t, err)
	assert.Empty(t, Name(nil))
}

package series

import "fmt"

// Bounds are the fixed global min/max used to scale every split. They are
// configuration constants, never fitted to the data.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Validate enforces Max > Min.
func (b Bounds) Validate() error {
	if !(b.Max > b.Min) {
		return fmt.Errorf("bounds [%g, %g]: max must be greater than min: %w", b.Min, b.Max, ErrDivisionByZero)
	}
	return nil
}

// Scale maps values to (x - min) / (max - min). The input is not modified.
func Scale(values []float64, b Bounds) ([]float64, error) {
	span := b.Max - b.Min
	if span == 0 {
		return nil, fmt.Errorf("scale with min == max == %g: %w", b.Min, ErrDivisionByZero)
	}

	scaled := make([]float64, len(values))
	for i, v := range values {
		scaled[i] = (v - b.Min) / span
	}
	return scaled, nil
}

// Unscale is the inverse of Scale: x * (max - min) + min.
func Unscale(values []float64, b Bounds) ([]float64, error) {
	span := b.Max - b.Min
	if span == 0 {
		return nil, fmt.Errorf("unscale with min == max == %g: %w", b.Min, ErrDivisionByZero)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v*span + b.Min
	}
	return out, nil
}

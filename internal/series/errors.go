// Package series turns a raw price column into the scaled, windowed and
// batched form consumed by the trainer and predictor.
package series

import "errors"

var (
	// ErrData reports a malformed or too-short input series.
	ErrData = errors.New("invalid series data")
	// ErrShapeMismatch reports a batch whose windows do not have the configured step count.
	ErrShapeMismatch = errors.New("window shape mismatch")
	// ErrDivisionByZero reports degenerate scale bounds.
	ErrDivisionByZero = errors.New("division by zero")
)

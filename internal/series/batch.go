package series

import (
	"fmt"
	"iter"
)

// Batch is a contiguous, non-overlapping slice of the windowed training set.
type Batch struct {
	Index   int
	Inputs  []Window
	Targets [][]float64
}

// Size returns the number of windows in the batch.
func (b Batch) Size() int {
	return len(b.Inputs)
}

// BatchGenerator partitions windowed training data into fixed-size batches
// in their original order.
type BatchGenerator struct {
	windows   []Window
	targets   [][]float64
	batchSize int
	numSteps  int
}

// NewBatchGenerator validates the layout and returns a generator. Window
// lengths are checked lazily, as each batch is built.
func NewBatchGenerator(windows []Window, targets [][]float64, batchSize, numSteps int) (*BatchGenerator, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size %d must be positive", batchSize)
	}
	if len(windows) != len(targets) {
		return nil, fmt.Errorf("%d windows but %d targets: %w", len(windows), len(targets), ErrShapeMismatch)
	}
	return &BatchGenerator{
		windows:   windows,
		targets:   targets,
		batchSize: batchSize,
		numSteps:  numSteps,
	}, nil
}

// Len returns the total number of windows.
func (g *BatchGenerator) Len() int {
	return len(g.windows)
}

// NumBatches returns ceil(total / batchSize).
func (g *BatchGenerator) NumBatches() int {
	return (len(g.windows) + g.batchSize - 1) / g.batchSize
}

// Epoch returns a lazy pass over every batch. Each call starts a new pass.
// If a window in the batch being built does not have exactly numSteps steps
// the pass yields an ErrShapeMismatch and stops.
func (g *BatchGenerator) Epoch() iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		numBatches := g.NumBatches()
		for j := 0; j < numBatches; j++ {
			start := j * g.batchSize
			end := min(start+g.batchSize, len(g.windows))

			b := Batch{
				Index:   j,
				Inputs:  g.windows[start:end],
				Targets: g.targets[start:end],
			}
			for i, w := range b.Inputs {
				if len(w) != g.numSteps {
					err := fmt.Errorf("batch %d window %d has %d steps, want %d: %w",
						j, start+i, len(w), g.numSteps, ErrShapeMismatch)
					yield(Batch{}, err)
					return
				}
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

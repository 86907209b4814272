package series

// Window is one model input: numSteps feature vectors of inputSize values.
type Window [][]float64

// Windows groups values into feature vectors of inputSize (a trailing
// partial group is dropped) and slides a window of numSteps vectors over them
// with stride 1. Each window is paired with the vector that immediately
// follows it. A series too short to produce a single pair yields empty
// results, not an error. Windows and targets never alias values.
func Windows(values []float64, numSteps, inputSize int) ([]Window, [][]float64) {
	if numSteps <= 0 || inputSize <= 0 {
		return nil, nil
	}

	count := len(values) / inputSize
	n := count - numSteps
	if n <= 0 {
		return nil, nil
	}

	vectors := make([][]float64, count)
	for i := range vectors {
		v := make([]float64, inputSize)
		copy(v, values[i*inputSize:(i+1)*inputSize])
		vectors[i] = v
	}

	windows := make([]Window, n)
	targets := make([][]float64, n)
	for start := 0; start < n; start++ {
		w := make(Window, numSteps)
		for s := 0; s < numSteps; s++ {
			w[s] = append([]float64(nil), vectors[start+s]...)
		}
		windows[start] = w
		targets[start] = append([]float64(nil), vectors[start+numSteps]...)
	}
	return windows, targets
}

// Flatten concatenates per-window target or prediction vectors.
func Flatten(vectors [][]float64) []float64 {
	var out []float64
	for _, v := range vectors {
		out = append(out, v...)
	}
	return out
}

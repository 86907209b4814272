package series

// Split keeps the first int(len * (1 - testRatio)) values for training and
// holds out the rest, preserving chronological order. Neither side is copied.
func Split(values []float64, testRatio float64) (train, test []float64) {
	if testRatio <= 0 {
		return values, nil
	}
	if testRatio >= 1 {
		return nil, values
	}

	trainSize := int(float64(len(values)) * (1.0 - testRatio))
	return values[:trainSize], values[trainSize:]
}

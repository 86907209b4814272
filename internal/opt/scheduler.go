package opt

import "math"

// Scheduler defines the interface for learning rate schedulers.
type Scheduler interface {
	Step()
	GetLR() float64
}

// Schedule returns one learning rate per epoch: the rate stays at initRate
// for the first initEpoch epochs and then decays geometrically,
//
//	rate[i] = initRate * decay^max(i+1-initEpoch, 0)
func Schedule(initRate, decay float64, initEpoch, maxEpoch int) []float64 {
	if maxEpoch <= 0 {
		return nil
	}
	rates := make([]float64, maxEpoch)
	for i := range rates {
		rates[i] = initRate * math.Pow(decay, math.Max(float64(i+1-initEpoch), 0))
	}
	return rates
}

// TableScheduler replays a precomputed per-epoch rate table into an optimizer.
// Past the end of the table the last rate is kept.
type TableScheduler struct {
	optimizer Optimizer
	rates     []float64
	epoch     int
}

// NewTableScheduler creates a scheduler positioned at epoch 0 and pushes the
// first rate into the optimizer.
func NewTableScheduler(optimizer Optimizer, rates []float64) *TableScheduler {
	s := &TableScheduler{
		optimizer: optimizer,
		rates:     rates,
	}
	s.apply()
	return s
}

// Step advances to the next epoch.
func (s *TableScheduler) Step() {
	s.epoch++
	s.apply()
}

// Reset rewinds to epoch 0 and pushes the first rate again.
func (s *TableScheduler) Reset() {
	s.epoch = 0
	s.apply()
}

// Epoch returns the current 0-based epoch index.
func (s *TableScheduler) Epoch() int {
	return s.epoch
}

// GetLR returns the rate of the current epoch.
func (s *TableScheduler) GetLR() float64 {
	if len(s.rates) == 0 {
		return 0
	}
	if s.epoch >= len(s.rates) {
		return s.rates[len(s.rates)-1]
	}
	return s.rates[s.epoch]
}

func (s *TableScheduler) apply() {
	if len(s.rates) == 0 {
		return
	}
	state := s.optimizer.State()
	state["LearningRate"] = s.GetLR()
	s.optimizer.SetState(state)
}

package train

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/stockrnn/internal/net"
	"github.com/FlavioCFOliveira/stockrnn/internal/series"
)

// Predictor is a read-only inference session over a restored checkpoint.
type Predictor struct {
	network *net.Network
	header  net.Header
	closed  bool
}

// NewPredictor restores the checkpoint in dir. A directory without one
// yields net.ErrCheckpointMissing.
func NewPredictor(dir string, logger logrus.FieldLogger) (*Predictor, error) {
	if logger == nil {
		logger = logrus.New()
	}

	network, h, err := net.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("restore model: %w", err)
	}
	network.SetTraining(false)

	logger.WithFields(logrus.Fields{
		"run":     h.RunID,
		"created": h.Created,
		"device":  h.Device,
	}).Info("checkpoint restored")
	return &Predictor{network: network, header: h}, nil
}

// Header returns the restored checkpoint header.
func (p *Predictor) Header() net.Header {
	return p.header
}

// Predict runs one forward pass over every window with dropout disabled.
func (p *Predictor) Predict(windows []series.Window) ([][]float64, error) {
	if p.closed {
		return nil, ErrClosed
	}
	return p.network.Predict(windows)
}

// Close releases the session. It is safe to call more than once.
func (p *Predictor) Close() error {
	p.closed = true
	p.network = nil
	return nil
}

package net

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/FlavioCFOliveira/stockrnn/internal/activations"
	"github.com/FlavioCFOliveira/stockrnn/internal/layer"
	"github.com/FlavioCFOliveira/stockrnn/internal/opt"
)

// CheckpointFile is the snapshot name inside a checkpoint directory.
const CheckpointFile = "model.ckpt"

const checkpointVersion = 1

// ErrCheckpointMissing is returned when a checkpoint directory holds no snapshot.
var ErrCheckpointMissing = errors.New("checkpoint missing")

// Header describes a snapshot.
type Header struct {
	Version      int
	RunID        string
	Created      time.Time
	Device       string
	Architecture Architecture
}

// LayerConfig holds the configuration needed to reconstruct a layer.
type LayerConfig struct {
	Type       string
	InSize     int
	OutSize    int
	Activation string
	Params     []float64
}

// ExtractLayerConfig extracts the configuration from a layer.
func ExtractLayerConfig(l layer.Layer) LayerConfig {
	cfg := LayerConfig{
		InSize:  l.InSize(),
		OutSize: l.OutSize(),
		Params:  l.Params(),
	}

	switch v := l.(type) {
	case *layer.RNN:
		cfg.Type = "RNN"
		cfg.Activation = activations.Name(v.Activation())
	case *layer.Dense:
		cfg.Type = "Dense"
		cfg.Activation = activations.Name(v.Activation())
	}
	return cfg
}

// Save writes a snapshot to dir/CheckpointFile, replacing any previous one.
// The file is written to a temporary name first so a failed save never
// leaves a truncated snapshot behind.
func (n *Network) Save(dir string, h Header) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, CheckpointFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := n.Encode(tmp, h); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, CheckpointFile)); err != nil {
		return fmt.Errorf("failed to publish checkpoint: %w", err)
	}
	return nil
}

// Load restores the snapshot in dir. The returned network is in inference
// mode and carries a fresh Adam optimizer.
func Load(dir string) (*Network, Header, error) {
	file, err := os.Open(filepath.Join(dir, CheckpointFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Header{}, fmt.Errorf("no %s in %q: %w", CheckpointFile, dir, ErrCheckpointMissing)
	}
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Encode writes the network to an io.Writer using gob encoding: header,
// layer count, one LayerConfig per layer, then the flat parameter vector.
func (n *Network) Encode(w io.Writer, h Header) error {
	encoder := gob.NewEncoder(w)

	h.Version = checkpointVersion
	h.Architecture = n.arch
	if err := encoder.Encode(h); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}

	layers := n.Layers()
	if err := encoder.Encode(int32(len(layers))); err != nil {
		return fmt.Errorf("failed to encode layer count: %w", err)
	}
	for _, l := range layers {
		if err := encoder.Encode(ExtractLayerConfig(l)); err != nil {
			return fmt.Errorf("failed to encode layer: %w", err)
		}
	}

	if err := encoder.Encode(n.Params()); err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	return nil
}

// Decode reads a network written by Encode.
func Decode(r io.Reader) (*Network, Header, error) {
	decoder := gob.NewDecoder(r)

	var h Header
	if err := decoder.Decode(&h); err != nil {
		return nil, Header{}, fmt.Errorf("failed to read header: %w", err)
	}
	if h.Version != checkpointVersion {
		return nil, Header{}, fmt.Errorf("unsupported checkpoint version %d", h.Version)
	}

	var numLayers int32
	if err := decoder.Decode(&numLayers); err != nil {
		return nil, Header{}, fmt.Errorf("failed to read layer count: %w", err)
	}
	// Recurrent layers plus the projection head.
	if want := h.Architecture.NumLayers + 1; numLayers < 0 || int(numLayers) != want {
		return nil, Header{}, fmt.Errorf("checkpoint has %d layers, architecture needs %d", numLayers, want)
	}
	// Grown while decoding so a corrupt header cannot force a large allocation.
	configs := make([]LayerConfig, 0, min(int(numLayers), 16))
	for i := 0; i < int(numLayers); i++ {
		var cfg LayerConfig
		if err := decoder.Decode(&cfg); err != nil {
			return nil, Header{}, fmt.Errorf("failed to read layer %d: %w", i, err)
		}
		configs = append(configs, cfg)
	}

	var params []float64
	if err := decoder.Decode(&params); err != nil {
		return nil, Header{}, fmt.Errorf("failed to read parameters: %w", err)
	}

	// Parameters are overwritten below, the seed only fixes buffer shapes.
	n, err := New(h.Architecture, opt.NewAdam(0.001), rand.New(rand.NewPCG(0, 0)))
	if err != nil {
		return nil, Header{}, fmt.Errorf("invalid architecture in checkpoint: %w", err)
	}
	if err := n.checkLayout(configs, len(params)); err != nil {
		return nil, Header{}, err
	}
	n.SetParams(params)
	return n, h, nil
}

// checkLayout verifies that the stored layer configs describe the network
// rebuilt from the header.
func (n *Network) checkLayout(configs []LayerConfig, numParams int) error {
	layers := n.Layers()
	if len(configs) != len(layers) {
		return fmt.Errorf("checkpoint has %d layers, architecture needs %d", len(configs), len(layers))
	}
	total := 0
	for i, l := range layers {
		want := ExtractLayerConfig(l)
		got := configs[i]
		if _, err := activations.ByName(got.Activation); err != nil {
			return fmt.Errorf("checkpoint layer %d: %w", i, err)
		}
		if got.Type != want.Type || got.InSize != want.InSize || got.OutSize != want.OutSize ||
			got.Activation != want.Activation || len(got.Params) != len(want.Params) {
			return fmt.Errorf("checkpoint layer %d is %s(%d->%d, %s), want %s(%d->%d, %s)",
				i, got.Type, got.InSize, got.OutSize, got.Activation,
				want.Type, want.InSize, want.OutSize, want.Activation)
		}
		total += len(got.Params)
	}
	if total != numParams {
		return fmt.Errorf("checkpoint has %d parameters, layers need %d", numParams, total)
	}
	return nil
}

package layer

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// DeviceType represents the hardware device used for computation.
type DeviceType int

const (
	CPU DeviceType = iota
)

// Device describes the hardware the matrices are computed on.
type Device interface {
	Type() DeviceType
	IsAvailable() bool
	String() string
}

// CPUDevice handles computations on the host CPU.
type CPUDevice struct {
	Brand    string
	Cores    int
	Threads  int
	Features []string
}

// NewCPUDevice inspects the host CPU.
func NewCPUDevice() *CPUDevice {
	d := &CPUDevice{
		Brand:   strings.TrimSpace(cpuid.CPU.BrandName),
		Cores:   cpuid.CPU.PhysicalCores,
		Threads: cpuid.CPU.LogicalCores,
	}
	if d.Brand == "" {
		d.Brand = runtime.GOARCH
	}
	if d.Threads == 0 {
		d.Threads = runtime.NumCPU()
	}

	known := []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX512F, "avx512f"},
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.ASIMD, "asimd"},
	}
	for _, p := range known {
		if cpuid.CPU.Supports(p.id) {
			d.Features = append(d.Features, p.name)
		}
	}
	return d
}

func (d *CPUDevice) Type() DeviceType  { return CPU }
func (d *CPUDevice) IsAvailable() bool { return true }

// String returns a one-line description suitable for logs and checkpoints.
func (d *CPUDevice) String() string {
	features := "none"
	if len(d.Features) > 0 {
		features = strings.Join(d.Features, ",")
	}
	return fmt.Sprintf("%s (%d cores, %d threads, simd: %s)", d.Brand, d.Cores, d.Threads, features)
}

// GetDefaultDevice returns the device used for training and inference.
func GetDefaultDevice() Device {
	return NewCPUDevice()
}

// Package cpu implements the pure-Go CPU compute backend.
package cpu

import (
	"fmt"

	"github.com/dream-go/trainer/internal/parallel"
	"github.com/dream-go/trainer/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host. Reduced-precision inputs
// are widened to float32 on read and every accumulation is done in float32
// (float64 for batch statistics).
type CPUBackend struct {
	cfg parallel.Config
}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend using every available core.
func New() *CPUBackend {
	return &CPUBackend{
		cfg: parallel.DefaultConfig(),
	}
}

// NewWithConfig creates a CPU backend with an explicit parallelism config.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{cfg: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// floatInput checks that x holds floating point activations.
func floatInput(op string, x *tensor.Tensor) {
	if !x.DType().IsFloat() {
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, x.DType()))
	}
}

// channelVector checks that v is a Float32 vector of length c.
func channelVector(op, name string, v *tensor.Tensor, c int) {
	if v.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: %s must be float32, got %s", op, name, v.DType()))
	}
	if len(v.Shape()) != 1 || v.Shape()[0] != c {
		panic(fmt.Sprintf("%s: %s must have shape [%d], got %v", op, name, c, v.Shape()))
	}
}

// newLike allocates a result tensor, panicking like the other ops on failure.
func newLike(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.Tensor {
	out, err := tensor.New(shape, dtype)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return out
}

// store writes float32 results into out, narrowing to out's dtype.
func store(out *tensor.Tensor, values []float32) {
	if out.DType() == tensor.Float32 {
		copy(out.AsFloat32(), values)
		return
	}
	out.SetFloat32s(values)
}

package dump

import (
	"sync"

	"github.com/dream-go/trainer/internal/quant"
	"github.com/dream-go/trainer/internal/tensor"
)

// Source produces the value of an export. It is evaluated when the registry
// is flushed, not when it is emitted.
type Source interface {
	Tensor() (*tensor.Tensor, error)
}

// Scaled is a Source of quantized values. Scale is valid after Tensor
// returned without error; real values are element * Scale().
type Scaled interface {
	Source
	Scale() float32
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (*tensor.Tensor, error)

// Tensor calls f.
func (f SourceFunc) Tensor() (*tensor.Tensor, error) {
	return f()
}

// Const returns a Source that always yields t.
func Const(t *tensor.Tensor) Source {
	return SourceFunc(func() (*tensor.Tensor, error) {
		return t, nil
	})
}

// Quantized returns a Scaled source producing the int8 quantization of src.
func Quantized(src Source) Scaled {
	return &quantized{src: src}
}

type quantized struct {
	src Source

	mu    sync.Mutex
	scale float32
}

func (q *quantized) Tensor() (*tensor.Tensor, error) {
	t, err := q.src.Tensor()
	if err != nil {
		return nil, err
	}
	out, scale, err := quant.Tensor(t)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	q.scale = scale
	q.mu.Unlock()
	return out, nil
}

func (q *quantized) Scale() float32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.scale
}

// Snapped returns a Source rounding every value of src to the quantized
// activation grid.
func Snapped(src Source) Source {
	return SourceFunc(func() (*tensor.Tensor, error) {
		t, err := src.Tensor()
		if err != nil {
			return nil, err
		}
		return tensor.FromFloat32(quant.SnapOffset(t.Float32s()), t.Shape())
	})
}

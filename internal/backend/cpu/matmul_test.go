package cpu

import (
	"testing"

	"github.com/dream-go/trainer/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatMul(t *testing.T) {
	backend := New()
	a := tensor.MustFromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := tensor.MustFromFloat32([]float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	c := backend.MatMul(a, b)
	require.Equal(t, tensor.Shape{2, 2}, c.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, c.AsFloat32())
}

func TestMatMul_Float16(t *testing.T) {
	backend := New()
	a := tensor.Full(tensor.Shape{3, 4}, 1, tensor.Float16)
	b := tensor.Full(tensor.Shape{4, 2}, 0.25, tensor.Float32)

	c := backend.MatMul(a, b)
	assert.Equal(t, tensor.Float16, c.DType())
	assert.Equal(t, []float32{1, 1, 1, 1, 1, 1}, c.Float32s())
}

func TestMatMul_ShapeMismatch(t *testing.T) {
	backend := New()
	assert.Panics(t, func() {
		backend.MatMul(tensor.Zeros(tensor.Shape{2, 3}, tensor.Float32), tensor.Zeros(tensor.Shape{2, 3}, tensor.Float32))
	})
	assert.Panics(t, func() {
		backend.MatMul(tensor.Zeros(tensor.Shape{2, 3, 1}, tensor.Float32), tensor.Zeros(tensor.Shape{3, 1}, tensor.Float32))
	})
}

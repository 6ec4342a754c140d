package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReshape(t *testing.T) {
	x := MustFromFloat32([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	y, err := x.Reshape(3, -1)
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, y.Shape())

	// Views share the buffer.
	y.AsFloat32()[0] = 9
	assert.Equal(t, float32(9), x.AsFloat32()[0])

	_, err = x.Reshape(4, -1)
	assert.Error(t, err)
	_, err = x.Reshape(-1, -1)
	assert.Error(t, err)
	_, err = x.Reshape(7)
	assert.Error(t, err)
}

func TestPermute_2D(t *testing.T) {
	x := MustFromFloat32([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	y, err := x.Permute(1, 0)
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, y.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, y.AsFloat32())
}

// TestPermute_HWIOToOIHW checks the kernel layout change used when
// exporting convolution weights.
func TestPermute_HWIOToOIHW(t *testing.T) {
	const kh, kw, in, out = 3, 2, 4, 5
	data := make([]float32, kh*kw*in*out)
	for i := range data {
		data[i] = float32(i)
	}
	x := MustFromFloat32(data, Shape{kh, kw, in, out})

	y, err := x.Permute(3, 2, 0, 1)
	require.NoError(t, err)
	require.Equal(t, Shape{out, in, kh, kw}, y.Shape())

	src := x.AsFloat32()
	dst := y.AsFloat32()
	for h := 0; h < kh; h++ {
		for w := 0; w < kw; w++ {
			for i := 0; i < in; i++ {
				for o := 0; o < out; o++ {
					want := src[((h*kw+w)*in+i)*out+o]
					got := dst[((o*in+i)*kh+h)*kw+w]
					require.Equal(t, want, got, "h=%d w=%d i=%d o=%d", h, w, i, o)
				}
			}
		}
	}
}

func TestPermute_InvalidAxes(t *testing.T) {
	x := Zeros(Shape{2, 3, 4}, Float32)
	_, err := x.Permute(0, 1)
	assert.Error(t, err)
	_, err = x.Permute(0, 1, 1)
	assert.Error(t, err)
	_, err = x.Permute(0, 1, 3)
	assert.Error(t, err)
	assert.Panics(t, func() { x.MustPermute(2, 2, 2) })
}

func TestPermute_Float16(t *testing.T) {
	x := MustFromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2}).Cast(Float16)
	y := x.MustPermute(1, 0)
	assert.Equal(t, Float16, y.DType())
	assert.Equal(t, []float32{1, 3, 2, 4}, y.Float32s())
}

func TestCast(t *testing.T) {
	x := MustFromFloat32([]float32{1, -2.5, 300, -300}, Shape{4})

	h := x.Cast(Float16)
	assert.Equal(t, Float16, h.DType())
	assert.Equal(t, []float32{1, -2.5, 300, -300}, h.Float32s())

	q := x.Cast(Int8)
	assert.Equal(t, []int8{1, -2, 127, -128}, q.AsInt8())

	same := x.Cast(Float32)
	same.AsFloat32()[0] = 7
	assert.Equal(t, float32(1), x.AsFloat32()[0])
}

func TestSetFloat32s(t *testing.T) {
	x := Zeros(Shape{2}, Float16)
	x.SetFloat32s([]float32{0.5, 2})
	assert.Equal(t, []float32{0.5, 2}, x.Float32s())
	assert.Panics(t, func() { x.SetFloat32s([]float32{1}) })
}

package cpu

import (
	"math/rand/v2"
	"testing"

	"github.com/dream-go/trainer/internal/parallel"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// naiveConv2D is a direct SAME convolution used as the reference.
func naiveConv2D(in []float32, n, h, w, cin int, k []float32, kh, kw, cout int) []float32 {
	out := make([]float32, n*h*w*cout)
	for b := 0; b < n; b++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for o := 0; o < cout; o++ {
					var sum float32
					for dy := 0; dy < kh; dy++ {
						for dx := 0; dx < kw; dx++ {
							yi, xi := y+dy-(kh-1)/2, x+dx-(kw-1)/2
							if yi < 0 || yi >= h || xi < 0 || xi >= w {
								continue
							}
							for i := 0; i < cin; i++ {
								sum += in[((b*h+yi)*w+xi)*cin+i] * k[((dy*kw+dx)*cin+i)*cout+o]
							}
						}
					}
					out[((b*h+y)*w+x)*cout+o] = sum
				}
			}
		}
	}
	return out
}

func randomTensor(rng *rand.Rand, shape tensor.Shape) *tensor.Tensor {
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return tensor.MustFromFloat32(data, shape)
}

// TestConv2D_SameSmall checks SAME padding on a hand-computed 3x3 case.
func TestConv2D_SameSmall(t *testing.T) {
	backend := New()

	// 1 2 3
	// 4 5 6
	// 7 8 9
	x := tensor.MustFromFloat32([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 3, 3, 1})
	k := tensor.MustFromFloat32([]float32{1, 1, 1, 1, 1, 1, 1, 1, 1}, tensor.Shape{3, 3, 1, 1})

	y := backend.Conv2D(x, k)
	require.Equal(t, tensor.Shape{1, 3, 3, 1}, y.Shape())

	// Box sums with zero padding.
	assert.Equal(t, []float32{12, 21, 16, 27, 45, 33, 24, 39, 28}, y.AsFloat32())
}

func TestConv2D_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tests := []struct {
		name           string
		n, h, w, cin   int
		kh, kw, cout   int
		parallelConfig parallel.Config
	}{
		{"1x1", 2, 5, 5, 3, 1, 1, 4, parallel.Sequential()},
		{"3x3", 2, 19, 19, 4, 3, 3, 6, parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 2}},
		{"2x2 even kernel", 1, 4, 6, 2, 2, 2, 3, parallel.Sequential()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewWithConfig(tt.parallelConfig)
			x := randomTensor(rng, tensor.Shape{tt.n, tt.h, tt.w, tt.cin})
			k := randomTensor(rng, tensor.Shape{tt.kh, tt.kw, tt.cin, tt.cout})

			got := backend.Conv2D(x, k)
			want := naiveConv2D(x.AsFloat32(), tt.n, tt.h, tt.w, tt.cin, k.AsFloat32(), tt.kh, tt.kw, tt.cout)

			require.Equal(t, tensor.Shape{tt.n, tt.h, tt.w, tt.cout}, got.Shape())
			assert.InDeltaSlice(t, want, got.AsFloat32(), 1e-4)
		})
	}
}

func TestConv2D_Float16KeepsComputeType(t *testing.T) {
	backend := New()
	x := tensor.Full(tensor.Shape{1, 2, 2, 2}, 0.5, tensor.Float16)
	k := tensor.Full(tensor.Shape{1, 1, 2, 3}, 2, tensor.Float32)

	y := backend.Conv2D(x, k)
	assert.Equal(t, tensor.Float16, y.DType())
	for _, v := range y.Float32s() {
		assert.Equal(t, float32(2), v)
	}
}

func TestConv2D_InvalidShapes(t *testing.T) {
	backend := New()
	assert.Panics(t, func() {
		backend.Conv2D(tensor.Zeros(tensor.Shape{1, 3, 3}, tensor.Float32), tensor.Zeros(tensor.Shape{3, 3, 1, 1}, tensor.Float32))
	})
	assert.Panics(t, func() {
		backend.Conv2D(tensor.Zeros(tensor.Shape{1, 3, 3, 2}, tensor.Float32), tensor.Zeros(tensor.Shape{3, 3, 1, 1}, tensor.Float32))
	})
	assert.Panics(t, func() {
		backend.Conv2D(tensor.Zeros(tensor.Shape{1, 3, 3, 1}, tensor.Int8), tensor.Zeros(tensor.Shape{3, 3, 1, 1}, tensor.Float32))
	})
}

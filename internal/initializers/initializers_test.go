package initializers

import (
	"testing"

	"github.com/dream-go/trainer/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gram returns the product of the matrix view with its transpose along the
// shorter side, which must be the identity for an orthogonal init.
func gram(data []float32, rows, cols int) [][]float64 {
	k := min(rows, cols)
	g := make([][]float64, k)
	for a := 0; a < k; a++ {
		g[a] = make([]float64, k)
		for b := 0; b < k; b++ {
			var sum float64
			if rows >= cols {
				for i := 0; i < rows; i++ {
					sum += float64(data[i*cols+a]) * float64(data[i*cols+b])
				}
			} else {
				for j := 0; j < cols; j++ {
					sum += float64(data[a*cols+j]) * float64(data[b*cols+j])
				}
			}
			g[a][b] = sum
		}
	}
	return g
}

func TestOrthogonal(t *testing.T) {
	tests := []struct {
		name  string
		shape tensor.Shape
	}{
		{"dense tall", tensor.Shape{16, 4}},
		{"dense wide", tensor.Shape{4, 16}},
		{"square", tensor.Shape{8, 8}},
		{"conv kernel", tensor.Shape{3, 3, 4, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Orthogonal(7)(tt.shape)
			require.Equal(t, tt.shape, w.Shape())

			cols := tt.shape.Last()
			rows := tt.shape.NumElements() / cols
			g := gram(w.AsFloat32(), rows, cols)
			for a := range g {
				for b := range g[a] {
					want := 0.0
					if a == b {
						want = 1.0
					}
					assert.InDelta(t, want, g[a][b], 1e-5, "gram[%d][%d]", a, b)
				}
			}
		})
	}
}

func TestOrthogonal_Deterministic(t *testing.T) {
	a := Orthogonal(42)(tensor.Shape{6, 3})
	b := Orthogonal(42)(tensor.Shape{6, 3})
	c := Orthogonal(43)(tensor.Shape{6, 3})

	assert.Equal(t, a.AsFloat32(), b.AsFloat32())
	assert.NotEqual(t, a.AsFloat32(), c.AsFloat32())
}

func TestConstantInitializers(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, Zeros(tensor.Shape{2}).AsFloat32())
	assert.Equal(t, []float32{1, 1}, Ones(tensor.Shape{2}).AsFloat32())
	assert.Equal(t, []float32{0.5, 0.5, 0.5}, Constant(0.5)(tensor.Shape{3}).AsFloat32())
}

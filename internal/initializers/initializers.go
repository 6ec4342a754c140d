// Package initializers provides the variable initializers used by the
// parameter store.
package initializers

import (
	"math/rand/v2"
	"sync"

	"github.com/dream-go/trainer/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Initializer returns a new Float32 tensor of the given shape.
type Initializer func(shape tensor.Shape) *tensor.Tensor

// Zeros initializes every element to 0. Used for offsets and means.
func Zeros(shape tensor.Shape) *tensor.Tensor {
	return tensor.Zeros(shape, tensor.Float32)
}

// Ones initializes every element to 1. Used for scales and variances.
func Ones(shape tensor.Shape) *tensor.Tensor {
	return tensor.Ones(shape, tensor.Float32)
}

// Constant returns an initializer filling every element with value.
func Constant(value float32) Initializer {
	return func(shape tensor.Shape) *tensor.Tensor {
		return tensor.Full(shape, value, tensor.Float32)
	}
}

// Orthogonal returns an initializer producing (semi-)orthogonal matrices.
//
// The tensor is viewed as a matrix of shape [prod(shape[:-1]), shape[-1]]:
// for an HWIO convolution kernel that is [h*w*in, out], for a dense layer
// [in, out]. The matrix is the Q factor of the QR decomposition of a
// standard normal matrix, with column signs fixed by diag(R) so the result
// is uniformly distributed. Its columns are orthonormal when rows >= cols,
// its rows otherwise.
//
// Reference: "Exact solutions to the nonlinear dynamics of learning in deep
// linear neural networks" (Saxe et al., 2013).
func Orthogonal(seed uint64) Initializer {
	var mu sync.Mutex
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	return func(shape tensor.Shape) *tensor.Tensor {
		mu.Lock()
		defer mu.Unlock()

		cols := shape.Last()
		rows := shape.NumElements() / cols
		m, k := max(rows, cols), min(rows, cols)

		a := mat.NewDense(m, k, nil)
		for i := 0; i < m; i++ {
			for j := 0; j < k; j++ {
				a.Set(i, j, rng.NormFloat64())
			}
		}

		var qr mat.QR
		qr.Factorize(a)
		var q, r mat.Dense
		qr.QTo(&q)
		qr.RTo(&r)

		out := tensor.Zeros(shape, tensor.Float32)
		data := out.AsFloat32()
		for j := 0; j < k; j++ {
			sign := 1.0
			if r.At(j, j) < 0 {
				sign = -1.0
			}
			for i := 0; i < m; i++ {
				v := float32(sign * q.At(i, j))
				if rows >= cols {
					data[i*cols+j] = v
				} else {
					data[j*cols+i] = v
				}
			}
		}
		return out
	}
}

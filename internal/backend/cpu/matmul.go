package cpu

import (
	"fmt"

	"github.com/dream-go/trainer/internal/parallel"
	"github.com/dream-go/trainer/internal/tensor"
)

// MatMul performs matrix multiplication (M, K) @ (K, N) -> (M, N).
// The result has a's dtype; accumulation is float32.
func (cpu *CPUBackend) MatMul(a, b *tensor.Tensor) *tensor.Tensor {
	floatInput("matmul", a)
	floatInput("matmul", b)

	aShape := a.Shape()
	bShape := b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	av := a.Float32s()
	bv := b.Float32s()
	c := make([]float32, m*n)

	parallel.For(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for kIdx := 0; kIdx < k; kIdx++ {
			aik := av[i*k+kIdx]
			if aik == 0 {
				continue
			}
			bRow := bv[kIdx*n : (kIdx+1)*n]
			for j, bkj := range bRow {
				row[j] += aik * bkj
			}
		}
	}, cpu.cfg)

	result := newLike("matmul", tensor.Shape{m, n}, a.DType())
	store(result, c)
	return result
}

package cpu

import (
	"fmt"

	"github.com/dream-go/trainer/internal/parallel"
	"github.com/dream-go/trainer/internal/tensor"
)

// Conv2D performs a stride-1 2D convolution with SAME padding.
//
// Input shape:  [N, H, W, C_in]
// Kernel shape: [K_h, K_w, C_in, C_out]
// Output shape: [N, H, W, C_out]
//
// Padding follows the usual SAME convention: (K-1)/2 rows before and the
// remainder after, so even kernels pad one more row at the bottom.
//
// Each output row (n, y) is computed independently, which is the unit of
// parallel work. The innermost loop walks C_out, contiguous in both the
// kernel and the output.
func (cpu *CPUBackend) Conv2D(x, kernel *tensor.Tensor) *tensor.Tensor {
	floatInput("conv2d", x)
	floatInput("conv2d", kernel)

	xShape := x.Shape()
	kShape := kernel.Shape()
	if len(xShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,H,W,C], got %dD", len(xShape)))
	}
	if len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [K_h,K_w,C_in,C_out], got %dD", len(kShape)))
	}

	N, H, W, CIn := xShape[0], xShape[1], xShape[2], xShape[3]
	KH, KW, CInK, COut := kShape[0], kShape[1], kShape[2], kShape[3]
	if CIn != CInK {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", CIn, CInK))
	}

	padTop := (KH - 1) / 2
	padLeft := (KW - 1) / 2

	in := x.Float32s()
	k := kernel.Float32s()
	out := make([]float32, N*H*W*COut)

	parallel.ForBatch(N, H, func(n, y int) {
		for xo := 0; xo < W; xo++ {
			acc := out[((n*H+y)*W+xo)*COut : ((n*H+y)*W+xo+1)*COut]
			for kh := 0; kh < KH; kh++ {
				yi := y + kh - padTop
				if yi < 0 || yi >= H {
					continue
				}
				for kw := 0; kw < KW; kw++ {
					xi := xo + kw - padLeft
					if xi < 0 || xi >= W {
						continue
					}
					pixel := in[((n*H+yi)*W+xi)*CIn : ((n*H+yi)*W+xi+1)*CIn]
					taps := k[(kh*KW+kw)*CIn*COut : (kh*KW+kw+1)*CIn*COut]
					for i, v := range pixel {
						if v == 0 {
							continue
						}
						row := taps[i*COut : (i+1)*COut]
						for o, w := range row {
							acc[o] += v * w
						}
					}
				}
			}
		}
	}, cpu.cfg)

	result := newLike("conv2d", tensor.Shape{N, H, W, COut}, x.DType())
	store(result, out)
	return result
}

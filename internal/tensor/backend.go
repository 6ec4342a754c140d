package tensor

// Backend is the compute engine the layers run on.
//
// It carries only the operations the layers need. All methods accept
// Float32 or Float16 activations, accumulate in float32, and return results
// in the dtype of their first argument unless documented otherwise.
// Shape violations are programmer errors and panic.
type Backend interface {
	// Conv2D convolves NHWC input x with an HWIO kernel using SAME padding
	// and stride 1. Output shape is [N, H, W, O].
	Conv2D(x, kernel *Tensor) *Tensor

	// MatMul multiplies [M, K] by [K, N].
	MatMul(a, b *Tensor) *Tensor

	// Moments returns the Float32 mean and (biased) variance of x over
	// every axis but the last.
	Moments(x *Tensor) (mean, variance *Tensor)

	// Normalize computes scale*(x-mean)/sqrt(variance+epsilon)+offset per
	// channel of the last axis. The per-channel vectors are Float32.
	Normalize(x, scale, offset, mean, variance *Tensor, epsilon float32) *Tensor

	// BiasAdd adds a per-channel Float32 bias along the last axis.
	BiasAdd(x, bias *Tensor) *Tensor

	// Name returns the backend name.
	Name() string
}

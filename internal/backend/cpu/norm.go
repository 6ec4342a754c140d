package cpu

import (
	"fmt"
	"math"

	"github.com/dream-go/trainer/internal/parallel"
	"github.com/dream-go/trainer/internal/tensor"
)

// Moments computes the per-channel mean and biased variance of x over every
// axis but the last. Sums are accumulated in float64 so large NHWC batches
// (2048×19×19 positions) do not lose precision.
func (cpu *CPUBackend) Moments(x *tensor.Tensor) (mean, variance *tensor.Tensor) {
	floatInput("moments", x)
	c := x.Shape().Last()
	values := x.Float32s()
	count := len(values) / c

	sum := make([]float64, c)
	for i, v := range values {
		sum[i%c] += float64(v)
	}
	mu := make([]float64, c)
	for ch := range mu {
		mu[ch] = sum[ch] / float64(count)
	}

	sq := make([]float64, c)
	for i, v := range values {
		d := float64(v) - mu[i%c]
		sq[i%c] += d * d
	}

	mean = newLike("moments", tensor.Shape{c}, tensor.Float32)
	variance = newLike("moments", tensor.Shape{c}, tensor.Float32)
	m, s := mean.AsFloat32(), variance.AsFloat32()
	for ch := 0; ch < c; ch++ {
		m[ch] = float32(mu[ch])
		s[ch] = float32(sq[ch] / float64(count))
	}
	return mean, variance
}

// Normalize applies scale*(x-mean)/sqrt(variance+epsilon)+offset along the
// last axis of x.
func (cpu *CPUBackend) Normalize(x, scale, offset, mean, variance *tensor.Tensor, epsilon float32) *tensor.Tensor {
	floatInput("normalize", x)
	c := x.Shape().Last()
	channelVector("normalize", "scale", scale, c)
	channelVector("normalize", "offset", offset, c)
	channelVector("normalize", "mean", mean, c)
	channelVector("normalize", "variance", variance, c)

	// y = x*mul + add with mul = scale/std and add = offset - mean*mul.
	mul := make([]float32, c)
	add := make([]float32, c)
	sc, off, mu, v := scale.AsFloat32(), offset.AsFloat32(), mean.AsFloat32(), variance.AsFloat32()
	for ch := 0; ch < c; ch++ {
		if v[ch] < 0 {
			panic(fmt.Sprintf("normalize: negative variance %g in channel %d", v[ch], ch))
		}
		mul[ch] = sc[ch] / float32(math.Sqrt(float64(v[ch]+epsilon)))
		add[ch] = off[ch] - mu[ch]*mul[ch]
	}

	values := x.Float32s()
	rows := len(values) / c
	parallel.For(rows, func(r int) {
		row := values[r*c : (r+1)*c]
		for ch := range row {
			row[ch] = row[ch]*mul[ch] + add[ch]
		}
	}, cpu.cfg)

	result := newLike("normalize", x.Shape(), x.DType())
	store(result, values)
	return result
}

// BiasAdd adds a per-channel bias along the last axis of x.
func (cpu *CPUBackend) BiasAdd(x, bias *tensor.Tensor) *tensor.Tensor {
	floatInput("bias_add", x)
	c := x.Shape().Last()
	channelVector("bias_add", "bias", bias, c)

	b := bias.AsFloat32()
	values := x.Float32s()
	for i := range values {
		values[i] += b[i%c]
	}

	result := newLike("bias_add", x.Shape(), x.DType())
	store(result, values)
	return result
}

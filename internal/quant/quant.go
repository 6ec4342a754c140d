// Package quant implements the symmetric int8 quantization of folded
// convolution weights.
package quant

import (
	"math"

	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
)

const (
	// Three is the relu3 activation ceiling. Post-activation values are
	// assumed to lie in [0, Three].
	Three = 3.09023

	// ActivationStep is the resolution of a quantized activation.
	ActivationStep = Three / 127

	// MaxStepError bounds the round-trip error of Quantize followed by
	// Dequantize when max|w| <= Three. Larger weights keep the step at
	// max|w|/127, so their error is bounded by max|w|/254 instead.
	MaxStepError = 2 * Three / 255

	qMax = 127
)

// Quantize maps w to signed 8-bit integers in [-127, 127]. The largest
// magnitude maps to ±127, values are rounded half away from zero. scale is
// the dequantization factor, w[i] ≈ float32(q[i]) * scale.
//
// An all-zero input quantizes to zeros with scale 1.
func Quantize(w []float32) (q []int8, scale float32) {
	var maxAbs float64
	for _, v := range w {
		maxAbs = math.Max(maxAbs, math.Abs(float64(v)))
	}
	q = make([]int8, len(w))
	if maxAbs == 0 {
		return q, 1
	}

	lo, hi := 0, 0
	for i, v := range w {
		r := math.Round(float64(v) * qMax / maxAbs)
		r = math.Max(-qMax, math.Min(qMax, r))
		q[i] = int8(r)
		lo, hi = min(lo, int(q[i])), max(hi, int(q[i]))
	}
	return q, float32(maxAbs / float64(max(-lo, hi)))
}

// Dequantize reverses Quantize.
func Dequantize(q []int8, scale float32) []float32 {
	out := make([]float32, len(q))
	for i, v := range q {
		out[i] = float32(v) * scale
	}
	return out
}

// SnapOffset rounds every value to the nearest multiple of ActivationStep,
// so a bias lands exactly on the quantized activation grid.
func SnapOffset(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(math.Round(float64(x)/ActivationStep) * ActivationStep)
	}
	return out
}

// Tensor quantizes t into an Int8 tensor of the same shape. It fails on
// non-finite input, which would otherwise poison the scale.
func Tensor(t *tensor.Tensor) (*tensor.Tensor, float32, error) {
	w := t.Float32s()
	for i, v := range w {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, 0, errors.Errorf("quantize: non-finite value %g at index %d", v, i)
		}
	}
	q, scale := Quantize(w)
	out, err := tensor.FromInt8(q, t.Shape())
	if err != nil {
		return nil, 0, errors.Wrap(err, "quantize")
	}
	return out, scale, nil
}

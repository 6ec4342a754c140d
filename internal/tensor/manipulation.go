package tensor

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Reshape returns a view of the tensor with a new shape. The view shares the
// element buffer with t. One dimension may be -1, in which case it is
// inferred from the number of elements.
func (t *Tensor) Reshape(newShape ...int) (*Tensor, error) {
	totalElements := t.NumElements()
	inferIdx := -1
	product := 1
	for i, dim := range newShape {
		switch {
		case dim == -1:
			if inferIdx >= 0 {
				return nil, errors.New("reshape: can only have one -1 dimension")
			}
			inferIdx = i
		case dim <= 0:
			return nil, errors.Errorf("reshape: dimensions must be positive, got %d", dim)
		default:
			product *= dim
		}
	}

	actualShape := make(Shape, len(newShape))
	copy(actualShape, newShape)
	if inferIdx >= 0 {
		if totalElements%product != 0 {
			return nil, errors.Errorf("reshape: cannot infer dimension for shape %v from %d elements", newShape, totalElements)
		}
		actualShape[inferIdx] = totalElements / product
	}
	if actualShape.NumElements() != totalElements {
		return nil, errors.Errorf("reshape: cannot reshape %d elements to shape %v", totalElements, actualShape)
	}

	return &Tensor{
		shape:  actualShape,
		stride: actualShape.ComputeStrides(),
		dtype:  t.dtype,
		data:   t.data,
	}, nil
}

// Permute returns a copy of the tensor with its axes reordered so that
// result.Shape()[i] == t.Shape()[axes[i]].
//
// Example, HWIO kernel to OIHW:
//
//	oihw, err := kernel.Permute(3, 2, 0, 1)
func (t *Tensor) Permute(axes ...int) (*Tensor, error) {
	newShape, err := t.shape.Permute(axes...)
	if err != nil {
		return nil, err
	}
	result, err := New(newShape, t.dtype)
	if err != nil {
		return nil, errors.Wrap(err, "permute")
	}

	ndim := len(t.shape)
	elemSize := t.dtype.Size()
	oldStrides := t.stride
	total := t.NumElements()

	// Walk the output in row-major order and gather from the input.
	idx := make([]int, ndim)
	for i := 0; i < total; i++ {
		oldFlat := 0
		for j := 0; j < ndim; j++ {
			oldFlat += idx[j] * oldStrides[axes[j]]
		}
		copy(result.data[i*elemSize:(i+1)*elemSize], t.data[oldFlat*elemSize:(oldFlat+1)*elemSize])

		for j := ndim - 1; j >= 0; j-- {
			idx[j]++
			if idx[j] < newShape[j] {
				break
			}
			idx[j] = 0
		}
	}
	return result, nil
}

// MustPermute is like Permute but panics on invalid axes.
func (t *Tensor) MustPermute(axes ...int) *Tensor {
	result, err := t.Permute(axes...)
	if err != nil {
		panic(fmt.Sprintf("permute %v of %v: %v", axes, t.shape, err))
	}
	return result
}

// Cast returns a copy of the tensor converted to dtype. Casting to the same
// dtype returns a clone. Float to Int8 truncates toward zero and saturates;
// use the quant package for real quantization.
func (t *Tensor) Cast(dtype DataType) *Tensor {
	if dtype == t.dtype {
		return t.Clone()
	}
	result := Zeros(t.shape, dtype)
	src := t.Float32s()
	switch dtype {
	case Float32:
		copy(result.AsFloat32(), src)
	case Float16:
		dst := result.AsFloat16()
		for i, v := range src {
			dst[i] = float16.Fromfloat32(v)
		}
	case Int8:
		dst := result.AsInt8()
		for i, v := range src {
			switch {
			case v > 127:
				dst[i] = 127
			case v < -128:
				dst[i] = -128
			default:
				dst[i] = int8(v)
			}
		}
	}
	return result
}

// SetFloat32s overwrites the elements from a float32 slice, converting to
// the tensor's dtype.
func (t *Tensor) SetFloat32s(values []float32) {
	if len(values) != t.NumElements() {
		panic(fmt.Sprintf("set: got %d values for tensor of %d elements", len(values), t.NumElements()))
	}
	switch t.dtype {
	case Float32:
		copy(t.AsFloat32(), values)
	case Float16:
		dst := t.AsFloat16()
		for i, v := range values {
			dst[i] = float16.Fromfloat32(v)
		}
	case Int8:
		dst := t.AsInt8()
		for i, v := range values {
			dst[i] = int8(v)
		}
	}
}

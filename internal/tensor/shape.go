package tensor

import "github.com/pkg/errors"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return errors.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Last returns the size of the innermost dimension, which is the channel
// axis for NHWC activations and the output axis for HWIO kernels.
func (s Shape) Last() int {
	if len(s) == 0 {
		return 1
	}
	return s[len(s)-1]
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Permute returns the shape obtained by reordering the dimensions so that
// result[i] = s[axes[i]].
func (s Shape) Permute(axes ...int) (Shape, error) {
	if len(axes) != len(s) {
		return nil, errors.Errorf("permute: axes length %d must match rank %d", len(axes), len(s))
	}
	seen := make([]bool, len(s))
	out := make(Shape, len(s))
	for i, ax := range axes {
		if ax < 0 || ax >= len(s) {
			return nil, errors.Errorf("permute: axis %d out of range [0, %d)", ax, len(s))
		}
		if seen[ax] {
			return nil, errors.Errorf("permute: axis %d repeated in %v", ax, axes)
		}
		seen[ax] = true
		out[i] = s[ax]
	}
	return out, nil
}

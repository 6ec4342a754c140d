// Copyright 2025 The dream-go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/dream-go/trainer/internal/tensor"
)

// Tensor is a dense host tensor.
type Tensor = tensor.Tensor

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 19, 19, 32} is an NHWC batch of two boards.
type Shape = tensor.Shape

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float16 DataType = tensor.Float16
	Int8    DataType = tensor.Int8
)

// Backend is the compute engine contract.
type Backend = tensor.Backend

// ParseDataType parses "f32", "f16", "i8" and their long forms.
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}

// New creates a zero-filled tensor.
func New(shape Shape, dtype DataType) (*Tensor, error) {
	return tensor.New(shape, dtype)
}

// FromFloat32 creates a Float32 tensor from a copy of data.
func FromFloat32(data []float32, shape Shape) (*Tensor, error) {
	return tensor.FromFloat32(data, shape)
}

// MustFromFloat32 is like FromFloat32 but panics on error.
func MustFromFloat32(data []float32, shape Shape) *Tensor {
	return tensor.MustFromFloat32(data, shape)
}

// FromInt8 creates an Int8 tensor from a copy of data.
func FromInt8(data []int8, shape Shape) (*Tensor, error) {
	return tensor.FromInt8(data, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, dtype DataType) *Tensor {
	return tensor.Zeros(shape, dtype)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType) *Tensor {
	return tensor.Ones(shape, dtype)
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float32, dtype DataType) *Tensor {
	return tensor.Full(shape, value, dtype)
}

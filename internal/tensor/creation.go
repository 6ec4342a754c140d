package tensor

import "github.com/x448/float16"

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	t := tensor.Zeros(tensor.Shape{3, 4}, tensor.Float32)
func Zeros(shape Shape, dtype DataType) *Tensor {
	t, err := New(shape, dtype)
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return t
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType) *Tensor {
	return Full(shape, 1, dtype)
}

// Full creates a tensor filled with a specific value, converted to dtype.
//
// Example:
//
//	t := tensor.Full(tensor.Shape{3, 3}, 3.14, tensor.Float16)
func Full(shape Shape, value float32, dtype DataType) *Tensor {
	t := Zeros(shape, dtype)
	switch dtype {
	case Float32:
		data := t.AsFloat32()
		for i := range data {
			data[i] = value
		}
	case Float16:
		h := float16.Fromfloat32(value)
		data := t.AsFloat16()
		for i := range data {
			data[i] = h
		}
	case Int8:
		data := t.AsInt8()
		for i := range data {
			data[i] = int8(value)
		}
	}
	return t
}

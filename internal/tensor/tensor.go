package tensor

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Tensor is a dense, row-major, host-resident tensor.
//
// The element bytes live in a single buffer that is 8-byte aligned, so it can
// be reinterpreted as []float32, []float16.Float16 or []int8 without copying.
// Reshape returns a view sharing the buffer; every other operation allocates.
type Tensor struct {
	shape  Shape
	stride []int
	dtype  DataType
	data   []byte
}

// New creates a zero-filled tensor with the given shape and type.
func New(shape Shape, dtype DataType) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}
	byteSize := shape.NumElements() * dtype.Size()
	return &Tensor{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		data:   alignedBytes(byteSize),
	}, nil
}

// alignedBytes allocates n bytes backed by 64-bit words.
func alignedBytes(n int) []byte {
	if n == 0 {
		return nil
	}
	words := make([]uint64, (n+7)/8)
	//nolint:gosec // reinterpreting a freshly allocated word slice as bytes
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

// FromFloat32 creates a Float32 tensor from a Go slice. The slice is copied.
func FromFloat32(data []float32, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t, err := New(shape, Float32)
	if err != nil {
		return nil, err
	}
	copy(t.AsFloat32(), data)
	return t, nil
}

// FromInt8 creates an Int8 tensor from a Go slice. The slice is copied.
func FromInt8(data []int8, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t, err := New(shape, Int8)
	if err != nil {
		return nil, err
	}
	copy(t.AsInt8(), data)
	return t, nil
}

// FromBytes creates a tensor from raw little-endian element bytes, as read
// back from a checkpoint or a weights file.
func FromBytes(data []byte, shape Shape, dtype DataType) (*Tensor, error) {
	want := shape.NumElements() * dtype.Size()
	if len(data) < want {
		return nil, errors.Errorf("shape %v of %s requires %d bytes, but got %d", shape, dtype, want, len(data))
	}
	t, err := New(shape, dtype)
	if err != nil {
		return nil, err
	}
	copy(t.data, data[:want])
	return t, nil
}

// MustFromFloat32 is like FromFloat32 but panics on a shape mismatch.
func MustFromFloat32(data []float32, shape Shape) *Tensor {
	t, err := FromFloat32(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's memory strides (in elements).
func (t *Tensor) Strides() []int {
	return t.stride
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (t *Tensor) ByteSize() int {
	return t.NumElements() * t.dtype.Size()
}

// Bytes returns the raw little-endian element bytes.
// WARNING: Direct access to underlying memory. Use with caution.
func (t *Tensor) Bytes() []byte {
	return t.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (t *Tensor) AsFloat32() []float32 {
	if t.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", t.dtype))
	}
	if len(t.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// AsFloat16 interprets the data as []float16.Float16.
// Panics if the tensor's dtype is not Float16.
func (t *Tensor) AsFloat16() []float16.Float16 {
	if t.dtype != Float16 {
		panic(fmt.Sprintf("tensor dtype is %s, not float16", t.dtype))
	}
	if len(t.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float16.Float16)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// AsInt8 interprets the data as []int8.
// Panics if the tensor's dtype is not Int8.
func (t *Tensor) AsInt8() []int8 {
	if t.dtype != Int8 {
		panic(fmt.Sprintf("tensor dtype is %s, not int8", t.dtype))
	}
	if len(t.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int8)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// Float32s returns a float32 copy of the elements, upcasting if needed.
func (t *Tensor) Float32s() []float32 {
	out := make([]float32, t.NumElements())
	switch t.dtype {
	case Float32:
		copy(out, t.AsFloat32())
	case Float16:
		for i, h := range t.AsFloat16() {
			out[i] = h.Float32()
		}
	case Int8:
		for i, q := range t.AsInt8() {
			out[i] = float32(q)
		}
	}
	return out
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := alignedBytes(len(t.data))
	copy(data, t.data)
	return &Tensor{
		shape:  t.shape.Clone(),
		stride: append([]int(nil), t.stride...),
		dtype:  t.dtype,
		data:   data,
	}
}

// CopyFrom overwrites the tensor's elements with those of src, which must
// have the same shape and dtype.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !t.shape.Equal(src.shape) || t.dtype != src.dtype {
		return errors.Errorf("copy: cannot copy %s%v into %s%v", src.dtype, src.shape, t.dtype, t.shape)
	}
	copy(t.data, src.data)
	return nil
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s%v)", t.dtype, []int(t.shape))
}

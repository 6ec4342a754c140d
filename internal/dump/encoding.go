package dump

import (
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
)

// Encoding is the element encoding of an export.
type Encoding string

// Supported encodings.
const (
	F2 Encoding = "f2" // IEEE half precision
	F4 Encoding = "f4" // IEEE single precision
	I1 Encoding = "i1" // signed 8-bit with a float scale
)

// ParseEncoding validates an encoding tag.
func ParseEncoding(tag string) (Encoding, error) {
	switch e := Encoding(tag); e {
	case F2, F4, I1:
		return e, nil
	default:
		return "", errors.Errorf("unknown encoding %q", tag)
	}
}

// DataType returns the tensor dtype the encoding stores.
func (e Encoding) DataType() tensor.DataType {
	switch e {
	case F4:
		return tensor.Float32
	case I1:
		return tensor.Int8
	default:
		return tensor.Float16
	}
}

// encode converts t to the encoding's element bytes.
func (e Encoding) encode(t *tensor.Tensor) ([]byte, error) {
	switch e {
	case F2, F4:
		if !t.DType().IsFloat() {
			return nil, errors.Errorf("encoding %s needs a float tensor, got %s", e, t.DType())
		}
		return t.Cast(e.DataType()).Bytes(), nil
	case I1:
		if t.DType() != tensor.Int8 {
			return nil, errors.Errorf("encoding %s needs an int8 tensor, got %s", e, t.DType())
		}
		return t.Bytes(), nil
	default:
		return nil, errors.Errorf("unknown encoding %q", string(e))
	}
}

package serialization

import (
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
)

// DType is a SafeTensors element type tag.
type DType string

// Supported SafeTensors dtypes.
const (
	F32 DType = "F32"
	F16 DType = "F16"
	I8  DType = "I8"
)

// dtypeFor converts tensor.DataType to its SafeTensors tag.
func dtypeFor(dt tensor.DataType) (DType, error) {
	switch dt {
	case tensor.Float32:
		return F32, nil
	case tensor.Float16:
		return F16, nil
	case tensor.Int8:
		return I8, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedDType, "%s", dt)
	}
}

// dataTypeFor converts a SafeTensors tag to tensor.DataType.
func dataTypeFor(dt DType) (tensor.DataType, error) {
	switch dt {
	case F32:
		return tensor.Float32, nil
	case F16:
		return tensor.Float16, nil
	case I8:
		return tensor.Int8, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedDType, "%s", dt)
	}
}

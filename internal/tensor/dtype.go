// Package tensor provides the dense tensor type and the compute backend
// contract used by the layers.
package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
//
// Float32 is the storage type of every parameter, statistic and export.
// Float16 is only used as a reduced-precision compute type for activations
// and for half-precision exports. Int8 holds quantized weights.
const (
	Float32 DataType = iota
	Float16
	Int8
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float16:
		return 2
	case Int8:
		return 1
	default:
		panic(fmt.Sprintf("unknown data type %d", int(dt)))
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case Int8:
		return "int8"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float16
}

// ParseDataType converts the short names used in configuration files
// ("f32", "float32", "f16", "float16", "i8", "int8") into a DataType.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "f32", "float32":
		return Float32, nil
	case "f16", "float16":
		return Float16, nil
	case "i8", "int8":
		return Int8, nil
	default:
		return 0, errors.Errorf("unknown data type %q", name)
	}
}

package dump

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Entry is one encoded export.
type Entry struct {
	Name     string
	Encoding Encoding
	// Count is the number of elements. Data may carry padding beyond it.
	Count int
	// Data holds little-endian element bytes.
	Data []byte
	// Scale is the dequantization factor of I1 entries, 0 otherwise.
	Scale float32
}

// Float32s decodes the entry's elements, applying Scale to I1 values.
func (e Entry) Float32s() ([]float32, error) {
	size := e.Encoding.DataType().Size()
	if len(e.Data) < e.Count*size {
		return nil, errors.Errorf("%s: %d bytes cannot hold %d %s elements", e.Name, len(e.Data), e.Count, e.Encoding)
	}
	out := make([]float32, e.Count)
	for i := range out {
		b := e.Data[i*size:]
		switch e.Encoding {
		case F2:
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()
		case F4:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case I1:
			out[i] = float32(int8(b[0])) * e.Scale
		default:
			return nil, errors.Errorf("%s: unknown encoding %q", e.Name, string(e.Encoding))
		}
	}
	return out, nil
}

// ByteSize returns the size of the unpadded element bytes.
func (e Entry) ByteSize() int {
	return e.Count * e.Encoding.DataType().Size()
}

package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
)

// SafeTensorsReader reads SafeTensors files.
type SafeTensorsReader struct {
	src        io.ReaderAt
	closer     io.Closer
	metadata   map[string]string
	tensors    map[string]TensorHeader
	dataOffset int64
	dataSize   int64
}

// OpenSafeTensors opens a SafeTensors file for reading.
func OpenSafeTensors(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for checkpoints
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to stat file")
	}
	r, err := NewSafeTensorsReader(file, info.Size())
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewSafeTensorsReader parses the header of a SafeTensors blob of the given size.
func NewSafeTensorsReader(src io.ReaderAt, size int64) (*SafeTensorsReader, error) {
	var sizeBuf [8]byte
	if _, err := src.ReadAt(sizeBuf[:], 0); err != nil {
		return nil, errors.Wrap(err, "failed to read header size")
	}
	headerSize := binary.LittleEndian.Uint64(sizeBuf[:])
	if headerSize > maxHeaderSize || int64(headerSize) > size-8 {
		return nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := src.ReadAt(headerBytes, 8); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawMap); err != nil {
		return nil, errors.Wrap(err, "failed to parse header JSON")
	}

	r := &SafeTensorsReader{
		src:        src,
		tensors:    make(map[string]TensorHeader, len(rawMap)),
		dataOffset: 8 + int64(headerSize),
	}
	r.dataSize = size - r.dataOffset

	for key, value := range rawMap {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &r.metadata); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal metadata")
			}
			continue
		}
		var info TensorHeader
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal tensor %s", key)
		}
		if info.DataOffsets[0] < 0 || info.DataOffsets[1] < info.DataOffsets[0] || info.DataOffsets[1] > r.dataSize {
			return nil, errors.Wrapf(ErrOutOfBounds, "tensor %q: [%d, %d]", key, info.DataOffsets[0], info.DataOffsets[1])
		}
		r.tensors[key] = info
	}
	return r, nil
}

// Close closes the underlying file, if any.
func (r *SafeTensorsReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Metadata returns the metadata map from the header.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.metadata
}

// TensorNames returns the sorted names of all tensors in the file.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tensor loads the named tensor.
func (r *SafeTensorsReader) Tensor(name string) (*tensor.Tensor, error) {
	info, ok := r.tensors[name]
	if !ok {
		return nil, errors.Wrapf(ErrTensorNotFound, "%q", name)
	}
	dtype, err := dataTypeFor(info.DType)
	if err != nil {
		return nil, errors.Wrapf(err, "tensor %q", name)
	}
	shape := make(tensor.Shape, len(info.Shape))
	for i, dim := range info.Shape {
		shape[i] = int(dim)
	}

	data := make([]byte, info.DataOffsets[1]-info.DataOffsets[0])
	if _, err := r.src.ReadAt(data, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, errors.Wrapf(err, "failed to read tensor %q", name)
	}
	t, err := tensor.FromBytes(data, shape, dtype)
	return t, errors.Wrapf(err, "tensor %q", name)
}

// ReadAll loads every tensor in the file.
func (r *SafeTensorsReader) ReadAll() (map[string]*tensor.Tensor, error) {
	out := make(map[string]*tensor.Tensor, len(r.tensors))
	for _, name := range r.TensorNames() {
		t, err := r.Tensor(name)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
)

// TensorHeader represents a tensor in the SafeTensors header.
type TensorHeader struct {
	DType       DType    `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// SafeTensorsWriter writes tensors in SafeTensors format.
type SafeTensorsWriter struct {
	file   *os.File
	closed bool
}

// NewSafeTensorsWriter creates a new SafeTensors file writer.
func NewSafeTensorsWriter(path string) (*SafeTensorsWriter, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for checkpoints
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file")
	}
	return &SafeTensorsWriter{file: file}, nil
}

// WriteSafeTensors writes tensors to a SafeTensors file at path.
func WriteSafeTensors(path string, tensors map[string]*tensor.Tensor, metadata map[string]string) (err error) {
	writer, err := NewSafeTensorsWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return writer.WriteStateDict(tensors, metadata)
}

// WriteStateDict writes a state dictionary to the SafeTensors file.
func (w *SafeTensorsWriter) WriteStateDict(stateDict map[string]*tensor.Tensor, metadata map[string]string) error {
	if w.closed {
		return ErrWriterClosed
	}
	buf := bufio.NewWriter(w.file)
	if err := Encode(buf, stateDict, metadata); err != nil {
		return err
	}
	return errors.Wrap(buf.Flush(), "failed to flush")
}

// Encode writes the SafeTensors encoding of stateDict to out.
//
// Tensors are written in alphabetical order by name, so equal state
// dictionaries always produce identical bytes.
func Encode(out io.Writer, stateDict map[string]*tensor.Tensor, metadata map[string]string) error {
	tensorNames := make([]string, 0, len(stateDict))
	for name := range stateDict {
		tensorNames = append(tensorNames, name)
	}
	sort.Strings(tensorNames)

	header := make(map[string]any, len(stateDict)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var currentOffset int64
	for _, name := range tensorNames {
		t := stateDict[name]
		dtype, err := dtypeFor(t.DType())
		if err != nil {
			return errors.Wrapf(err, "tensor %q", name)
		}
		shape := make([]int64, len(t.Shape()))
		for i, dim := range t.Shape() {
			shape[i] = int64(dim)
		}
		size := int64(t.ByteSize())
		header[name] = TensorHeader{
			DType:       dtype,
			Shape:       shape,
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}
	if err := binary.Write(out, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "failed to write header size")
	}
	if _, err := out.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for _, name := range tensorNames {
		if _, err := out.Write(stateDict[name].Bytes()); err != nil {
			return errors.Wrapf(err, "failed to write tensor %s", name)
		}
	}
	return nil
}

// Close closes the writer and the underlying file.
func (w *SafeTensorsWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

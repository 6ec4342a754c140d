package dump

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dream-go/trainer/internal/quant"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Emit(t *testing.T) {
	r := NewRegistry()
	w := tensor.MustFromFloat32([]float32{1, 2}, tensor.Shape{2})

	require.NoError(t, r.Emit("a:0", Const(w), F2))
	require.NoError(t, r.Emit("b:0", Const(w), F4))
	assert.Equal(t, []string{"a:0", "b:0"}, r.Names())
	assert.True(t, r.Has("a:0"))
	assert.False(t, r.Has("c:0"))

	err := r.Emit("a:0", Const(w), F4)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 2, r.Len())

	err = r.Emit("c:0", Const(w), I1)
	assert.ErrorIs(t, err, ErrMissingScale)

	err = r.Emit("d:0", Const(w), Encoding("f8"))
	assert.Error(t, err)
}

func TestRegistry_SourcesAreLazy(t *testing.T) {
	r := NewRegistry()
	value := []float32{1}
	calls := 0
	require.NoError(t, r.Emit("x:0", SourceFunc(func() (*tensor.Tensor, error) {
		calls++
		return tensor.FromFloat32(value, tensor.Shape{1})
	}), F4))
	assert.Equal(t, 0, calls)

	value[0] = 5
	entries, err := r.Flush(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	got, err := entries[0].Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, got)
}

func TestRegistry_FlushError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Emit("x:0", SourceFunc(func() (*tensor.Tensor, error) { return nil, boom }), F2))
	_, err := r.Flush(nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Quantized(t *testing.T) {
	r := NewRegistry()
	w := tensor.MustFromFloat32([]float32{0.5, -1, 0.25, 0}, tensor.Shape{4})
	require.NoError(t, r.Emit("w:0", Quantized(Const(w)), I1))
	require.NoError(t, r.Emit("b:0", Snapped(Const(tensor.MustFromFloat32([]float32{0.1}, tensor.Shape{1}))), F4))

	var progressed []string
	entries, err := r.Flush(func(e Entry) { progressed = append(progressed, e.Name) })
	require.NoError(t, err)
	assert.Equal(t, []string{"w:0", "b:0"}, progressed)

	assert.Equal(t, I1, entries[0].Encoding)
	assert.Equal(t, []byte{64, 0x81, 32, 0}, entries[0].Data) // 63.5 -> 64, -127 -> 0x81, 31.75 -> 32
	assert.InDelta(t, 1.0/127, entries[0].Scale, 1e-7)

	got, err := entries[0].Float32s()
	require.NoError(t, err)
	for i, v := range w.AsFloat32() {
		assert.InDelta(t, v, got[i], quant.MaxStepError)
	}

	bias, err := entries[1].Float32s()
	require.NoError(t, err)
	assert.InDelta(t, 4*quant.ActivationStep, bias[0], 1e-6)
}

func TestWeightsFile_RoundTrip(t *testing.T) {
	r := NewRegistry()
	half := tensor.MustFromFloat32([]float32{1, 2, 3}, tensor.Shape{3})
	full := tensor.MustFromFloat32([]float32{0.5, -1.25}, tensor.Shape{2})
	q := tensor.MustFromFloat32([]float32{1, -0.5, 0.25, 0.125, 2}, tensor.Shape{5})
	require.NoError(t, r.Emit("z/conv:0", Const(half), F2))
	require.NoError(t, r.Emit("a/linear_1:0", Const(full), F4))
	require.NoError(t, r.Emit("m/conv:0", Quantized(Const(q)), I1))

	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, r.Save(path))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "z/conv:0", entries[0].Name, "emit order is kept")
	assert.Equal(t, "a/linear_1:0", entries[1].Name)

	// fp16 entries carry no count: the zero padding of the last group
	// reads back as one extra element.
	assert.Equal(t, 4, entries[0].Count)
	got := must.M1(entries[0].Float32s())
	assert.Equal(t, []float32{1, 2, 3, 0}, got)

	got = must.M1(entries[1].Float32s())
	assert.Equal(t, []float32{0.5, -1.25}, got)

	assert.Equal(t, I1, entries[2].Encoding)
	assert.Equal(t, 5, entries[2].Count)
	assert.InDelta(t, 2.0/127, entries[2].Scale, 1e-7)
	got = must.M1(entries[2].Float32s())
	for i, v := range q.AsFloat32() {
		assert.InDelta(t, v, got[i], quant.MaxStepError)
	}
}

func TestWriteEntries_Format(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteEntries(&buf, []Entry{
		{Name: "x:0", Encoding: F2, Count: 2, Data: halfBytes(3.140625, 2.71875)},
		{Name: "y:0", Encoding: I1, Count: 1, Data: []byte{127}, Scale: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"x:0\": \"NJ4Ny\",\n  \"y:0\": {\"t\":\"i1\",\"n\":1,\"v\":\"e*gdg\",\"s\":0.5}\n}\n", buf.String())
}

// scanPairs reads a weights file the way the inference runtime does: skip to
// a quote, read the name up to the next quote, skip to a quote, read the
// value up to the next quote.
func scanPairs(file string) map[string]string {
	pairs := make(map[string]string)
	for {
		_, rest, _ := strings.Cut(file, `"`)
		name, rest, _ := strings.Cut(rest, `"`)
		if name == "" {
			return pairs
		}
		_, rest, _ = strings.Cut(rest, `"`)
		value, rest, _ := strings.Cut(rest, `"`)
		pairs[name] = value
		file = rest
	}
}

func TestWriteEntries_ReadableByRuntime(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Emit("conv_1/offset:0", Const(tensor.MustFromFloat32([]float32{3.140625, 2.71875}, tensor.Shape{2})), F2))
	require.NoError(t, r.Emit("conv_1:0", Const(tensor.MustFromFloat32([]float32{1, 2, 3}, tensor.Shape{3})), F2))

	var buf bytes.Buffer
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)

	pairs := scanPairs(buf.String())
	require.Len(t, pairs, 2)
	assert.Equal(t, "NJ4Ny", pairs["conv_1/offset:0"])
	assert.Equal(t, "06YLd073u&", pairs["conv_1:0"], "base85 digits are not escaped")

	data, err := DecodeBase85(pairs["conv_1/offset:0"])
	require.NoError(t, err)
	got := must.M1(Entry{Encoding: F2, Count: len(data) / 2, Data: data}.Float32s())
	assert.Equal(t, []float32{3.140625, 2.71875}, got)
}

func TestRead_LegacyForm(t *testing.T) {
	entries, err := Read(strings.NewReader(`{"global_step": "06YLd073vn07U>s07n1-", "pi": "NJ4Ny"}`))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "global_step", entries[0].Name)
	assert.Equal(t, F2, entries[0].Encoding)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 0}, must.M1(entries[0].Float32s()))
	assert.Equal(t, []float32{3.140625, 2.71875}, must.M1(entries[1].Float32s()))
}

func TestRead_NonFiniteIsNotAnError(t *testing.T) {
	// 0x7C00 is +Inf in half precision.
	data := []byte{0x00, 0x7C, 0x00, 0x3C}
	var buf bytes.Buffer
	_, err := WriteEntries(&buf, []Entry{{Name: "inf:0", Encoding: F2, Count: 2, Data: data}})
	require.NoError(t, err)

	entries, err := Read(&buf)
	require.NoError(t, err)
	got := must.M1(entries[0].Float32s())
	assert.True(t, got[0] > 1e30)
	assert.Equal(t, float32(1), got[1])
}

func TestRead_Errors(t *testing.T) {
	tests := map[string]string{
		"not an object":   `[1, 2]`,
		"bad encoding":    `{"x": {"t": "f8", "v": "NJ4Ny"}}`,
		"bad base85":      `{"x": {"t": "f2", "v": "NJ4N."}}`,
		"i1 without s":    `{"x": {"t": "i1", "v": "NJ4Ny"}}`,
		"count too large": `{"x": {"t": "f2", "n": 3, "v": "NJ4Ny"}}`,
		"duplicate":       `{"x": "NJ4Ny", "x": "NJ4Ny"}`,
		"truncated":       `{"x": "NJ4Ny"`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

package dump

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// record is the structured JSON form of an entry.
type record struct {
	T string   `json:"t"`
	N *int     `json:"n,omitempty"`
	V string   `json:"v"`
	S *float32 `json:"s,omitempty"`
}

// WriteEntries writes entries as a weights file, preserving their order.
// F2 entries are written as bare base85 strings, the form the inference
// runtime reads; F4 and I1 entries as structured records.
func WriteEntries(w io.Writer, entries []Entry) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, e := range entries {
		key, err := marshalJSON(e.Name)
		if err != nil {
			return 0, errors.Wrapf(err, "encoding name %q", e.Name)
		}
		value, err := marshalEntry(e)
		if err != nil {
			return 0, errors.Wrapf(err, "encoding %q", e.Name)
		}

		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.WriteTo(w)
}

func marshalEntry(e Entry) ([]byte, error) {
	v := EncodeBase85(e.Data[:e.ByteSize()])
	if e.Encoding == F2 {
		return marshalJSON(v)
	}
	count := e.Count
	rec := record{T: string(e.Encoding), N: &count, V: v}
	if e.Encoding == I1 {
		scale := e.Scale
		rec.S = &scale
	}
	return marshalJSON(rec)
}

// marshalJSON is json.Marshal without HTML escaping: '<', '>' and '&' are
// base85 digits and must reach the file verbatim.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// WriteTo flushes the registry and writes the weights file to w.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	entries, err := r.Flush(nil)
	if err != nil {
		return 0, err
	}
	return WriteEntries(w, entries)
}

// Save flushes the registry to a weights file at path.
func (r *Registry) Save(path string) (err error) {
	//nolint:gosec // G304: output path is chosen by the user
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create weights file")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "failed to close weights file")
		}
	}()
	n, err := r.WriteTo(f)
	if err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	klog.V(1).Infof("dump: wrote %d exports (%d bytes) to %s", r.Len(), n, path)
	return nil
}

// Read parses a weights file. Entries are returned in file order.
func Read(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	if tok, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "reading weights file")
	} else if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.Errorf("weights file must be a JSON object, got %v", tok)
	}

	var entries []Entry
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "reading weights file")
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrapf(err, "reading %q", name)
		}
		if _, found := seen[name]; found {
			return nil, errors.Wrapf(ErrDuplicate, "reading %q", name)
		}
		seen[name] = struct{}{}

		entry, err := parseEntry(name, raw)
		if err != nil {
			return nil, err
		}
		warnNonFinite(entry)
		entries = append(entries, entry)
	}
	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "reading weights file")
	}
	return entries, nil
}

// Load reads the weights file at path.
func Load(path string) ([]Entry, error) {
	//nolint:gosec // G304: input path is chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open weights file")
	}
	defer func() { _ = f.Close() }()
	entries, err := Read(f)
	return entries, errors.Wrapf(err, "loading %s", path)
}

func parseEntry(name string, raw json.RawMessage) (Entry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		// Legacy form: a bare base85 string of fp16 values.
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return Entry{}, errors.Wrapf(err, "parsing %q", name)
		}
		data, err := DecodeBase85(value)
		if err != nil {
			return Entry{}, errors.Wrapf(err, "parsing %q", name)
		}
		return Entry{Name: name, Encoding: F2, Count: len(data) / 2, Data: data}, nil
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Entry{}, errors.Wrapf(err, "parsing %q", name)
	}
	enc, err := ParseEncoding(rec.T)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "parsing %q", name)
	}
	data, err := DecodeBase85(rec.V)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "parsing %q", name)
	}
	entry := Entry{Name: name, Encoding: enc, Count: len(data) / enc.DataType().Size(), Data: data}
	if rec.N != nil {
		if *rec.N < 0 || *rec.N > entry.Count {
			return Entry{}, errors.Errorf("parsing %q: element count %d exceeds %d bytes of data", name, *rec.N, len(data))
		}
		entry.Count = *rec.N
	}
	if enc == I1 {
		if rec.S == nil {
			return Entry{}, errors.Wrapf(ErrMissingScale, "parsing %q", name)
		}
		entry.Scale = *rec.S
	}
	return entry, nil
}

func warnNonFinite(e Entry) {
	values, err := e.Float32s()
	if err != nil {
		return
	}
	for i, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			klog.Warningf("%s: element %d is not finite -- %g", e.Name, i, v)
		}
	}
}

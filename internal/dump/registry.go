package dump

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ErrDuplicate is returned when a name is emitted twice.
	ErrDuplicate = errors.New("export already registered")
	// ErrMissingScale is returned when an I1 export has no scale.
	ErrMissingScale = errors.New("i1 export needs a Scaled source")
)

// Registry is an append-only list of exports. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	exports []export
	names   map[string]struct{}
}

type export struct {
	name string
	src  Source
	enc  Encoding
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Emit registers src under name. I1 exports require src to implement Scaled.
func (r *Registry) Emit(name string, src Source, enc Encoding) error {
	if _, err := ParseEncoding(string(enc)); err != nil {
		return errors.Wrapf(err, "emit %q", name)
	}
	if enc == I1 {
		if _, ok := src.(Scaled); !ok {
			return errors.Wrapf(ErrMissingScale, "emit %q", name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.names[name]; found {
		return errors.Wrapf(ErrDuplicate, "emit %q", name)
	}
	r.names[name] = struct{}{}
	r.exports = append(r.exports, export{name: name, src: src, enc: enc})
	klog.V(2).Infof("dump: registered %s (%s)", name, enc)
	return nil
}

// Has reports whether name was emitted.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, found := r.names[name]
	return found
}

// Len returns the number of exports.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exports)
}

// Names returns the export names in emit order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.exports))
	for i, e := range r.exports {
		names[i] = e.name
	}
	return names
}

// Flush evaluates every source, in emit order, and returns the encoded
// entries. progress, if not nil, is called after each entry.
func (r *Registry) Flush(progress func(Entry)) ([]Entry, error) {
	r.mu.Lock()
	exports := append([]export(nil), r.exports...)
	r.mu.Unlock()

	entries := make([]Entry, 0, len(exports))
	for _, e := range exports {
		t, err := e.src.Tensor()
		if err != nil {
			return nil, errors.Wrapf(err, "evaluating export %q", e.name)
		}
		data, err := e.enc.encode(t)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding export %q", e.name)
		}
		entry := Entry{
			Name:     e.name,
			Encoding: e.enc,
			Count:    t.NumElements(),
			Data:     append([]byte(nil), data...),
		}
		if scaled, ok := e.src.(Scaled); ok {
			entry.Scale = scaled.Scale()
		}
		entries = append(entries, entry)
		if progress != nil {
			progress(entry)
		}
	}
	return entries, nil
}

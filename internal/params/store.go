// Package params holds the named variables of a network: layer weights,
// batch-norm statistics and moving averages.
//
// Variables are created on first use and fetched by key afterwards, so a
// layer built twice under the same name shares its parameters.
package params

import (
	"sort"
	"strings"
	"sync"

	"github.com/dream-go/trainer/internal/initializers"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrShapeMismatch is returned when an existing variable is requested with a
// different shape.
var ErrShapeMismatch = errors.New("variable shape mismatch")

// Variable is a named Float32 tensor owned by a Store.
type Variable struct {
	name      string
	trainable bool

	mu    sync.RWMutex
	value *tensor.Tensor
}

// Name returns the variable's key.
func (v *Variable) Name() string {
	return v.name
}

// Trainable reports whether the variable is updated by the optimizer.
// Non-trainable variables only change through deferred updates.
func (v *Variable) Trainable() bool {
	return v.trainable
}

// Shape returns the variable's shape.
func (v *Variable) Shape() tensor.Shape {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value.Shape()
}

// Value returns a copy of the current value.
func (v *Variable) Value() *tensor.Tensor {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value.Clone()
}

// Float32s returns a copy of the current value as a flat slice.
func (v *Variable) Float32s() []float32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value.Float32s()
}

// Assign overwrites the value. t must have the variable's shape; it is
// converted to Float32.
func (v *Variable) Assign(t *tensor.Tensor) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !t.Shape().Equal(v.value.Shape()) {
		return errors.Wrapf(ErrShapeMismatch, "assign %q: got %v, want %v", v.name, t.Shape(), v.value.Shape())
	}
	return v.value.CopyFrom(t.Cast(tensor.Float32))
}

// Update replaces the value with f(current). f receives a copy.
func (v *Variable) Update(f func(current []float32) []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value.SetFloat32s(f(v.value.Float32s()))
}

// Store is a concurrency-safe collection of variables keyed by name.
type Store struct {
	mu    sync.Mutex
	vars  map[string]*Variable
	order []string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{vars: make(map[string]*Variable)}
}

// Variable returns the variable named key, creating it with init if it does
// not exist yet. A nil init means zeros.
func (s *Store) Variable(key string, shape tensor.Shape, init initializers.Initializer, trainable bool) (*Variable, error) {
	if key == "" {
		return nil, errors.New("variable key must not be empty")
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(err, "variable %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, found := s.vars[key]; found {
		if !v.Shape().Equal(shape) {
			return nil, errors.Wrapf(ErrShapeMismatch, "variable %q: requested %v, have %v", key, shape, v.Shape())
		}
		return v, nil
	}

	if init == nil {
		init = initializers.Zeros
	}
	value := init(shape)
	if value.DType() != tensor.Float32 {
		value = value.Cast(tensor.Float32)
	}
	v := &Variable{name: key, trainable: trainable, value: value}
	s.vars[key] = v
	s.order = append(s.order, key)
	klog.V(3).Infof("params: created %q %v trainable=%v", key, shape, trainable)
	return v, nil
}

// Lookup returns the variable named key, if present.
func (s *Store) Lookup(key string) (*Variable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, found := s.vars[key]
	return v, found
}

// Names returns the variable keys in creation order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of variables.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vars)
}

// WithPrefix returns the keys that start with prefix + "/", sorted.
func (s *Store) WithPrefix(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.vars {
		if strings.HasPrefix(key, prefix+"/") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// In returns a view of the store that prefixes every key with scope.
func (s *Store) In(scope string) *Scope {
	return &Scope{store: s, prefix: scope}
}

// Scope is a prefixed view of a Store.
type Scope struct {
	store  *Store
	prefix string
}

// In nests a further scope.
func (sc *Scope) In(scope string) *Scope {
	return &Scope{store: sc.store, prefix: sc.Key(scope)}
}

// Key returns the full key for name inside this scope.
func (sc *Scope) Key(name string) string {
	if sc.prefix == "" {
		return name
	}
	return sc.prefix + "/" + name
}

// Variable is Store.Variable with the key scoped.
func (sc *Scope) Variable(name string, shape tensor.Shape, init initializers.Initializer, trainable bool) (*Variable, error) {
	return sc.store.Variable(sc.Key(name), shape, init, trainable)
}

package nn

import (
	"github.com/dream-go/trainer/internal/config"
	"github.com/dream-go/trainer/internal/dump"
	"github.com/dream-go/trainer/internal/initializers"
	"github.com/dream-go/trainer/internal/movingavg"
	"github.com/dream-go/trainer/internal/params"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Session carries what layers share while a network is built and run.
type Session struct {
	Backend  tensor.Backend
	Store    *params.Store
	Updates  *params.UpdateQueue
	Averages *movingavg.Tracker
	Exports  *dump.Registry
	Params   config.Params

	// Orthogonal initializes convolution and dense weights.
	Orthogonal initializers.Initializer
}

// SessionOption configures NewSession.
type SessionOption func(*Session)

// WithSeed seeds the orthogonal weight initializer.
func WithSeed(seed uint64) SessionOption {
	return func(s *Session) {
		s.Orthogonal = initializers.Orthogonal(seed)
	}
}

// WithRegistry makes the session emit into r instead of a fresh registry.
func WithRegistry(r *dump.Registry) SessionOption {
	return func(s *Session) {
		s.Exports = r
	}
}

// NewSession creates a session. A nil store means a new empty one.
func NewSession(backend tensor.Backend, store *params.Store, p config.Params, opts ...SessionOption) (*Session, error) {
	if backend == nil {
		return nil, errors.New("session needs a backend")
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "session params")
	}
	if store == nil {
		store = params.NewStore()
	}

	updates := &params.UpdateQueue{}
	tracker, err := movingavg.NewTracker(store, updates, p.MovingAverageDecay)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Backend:    backend,
		Store:      store,
		Updates:    updates,
		Averages:   tracker,
		Exports:    dump.NewRegistry(),
		Params:     p,
		Orthogonal: initializers.Orthogonal(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	klog.V(2).Infof("nn: session on %s backend, %d variables", backend.Name(), store.Len())
	return s, nil
}

// ApplyUpdates runs the deferred updates queued since the last call: running
// statistics and moving averages. Call it once per training step, after the
// forward pass.
func (s *Session) ApplyUpdates() int {
	return s.Updates.Apply()
}

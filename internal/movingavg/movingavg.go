// Package movingavg keeps exponential moving averages of tensors in the
// parameter store, for export of smoothed weights.
package movingavg

import (
	"github.com/dream-go/trainer/internal/mode"
	"github.com/dream-go/trainer/internal/params"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
)

// DefaultDecay is the decay used when none is configured.
const DefaultDecay = 0.99

// Tracker creates and updates moving averages.
type Tracker struct {
	store *params.Store
	queue *params.UpdateQueue
	decay float32
}

// NewTracker returns a tracker storing its averages in store and queueing
// their updates on queue. decay must be in [0, 1).
func NewTracker(store *params.Store, queue *params.UpdateQueue, decay float32) (*Tracker, error) {
	if decay < 0 || decay >= 1 {
		return nil, errors.Errorf("moving average decay must be in [0, 1), got %g", decay)
	}
	return &Tracker{store: store, queue: queue, decay: decay}, nil
}

// Decay returns the configured decay.
func (tr *Tracker) Decay() float32 {
	return tr.decay
}

// Average is a handle on one moving average.
type Average struct {
	v *params.Variable
}

// Key returns the store key of the average.
func (a *Average) Key() string {
	return a.v.Name()
}

// Tensor returns the current value of the average.
func (a *Average) Tensor() *tensor.Tensor {
	return a.v.Value()
}

// Update returns the moving average of t stored under key, creating it with
// t's value the first time. In Train mode it also queues
//
//	avg <- avg - (1-decay)*(avg - t)
//
// using t as it is now. Eval only reads.
func (tr *Tracker) Update(t *tensor.Tensor, key string, m mode.Mode) (*Average, error) {
	snapshot := t.Cast(tensor.Float32)
	v, err := tr.store.Variable(key, t.Shape(), func(tensor.Shape) *tensor.Tensor {
		return snapshot.Clone()
	}, false)
	if err != nil {
		return nil, errors.Wrap(err, "moving average")
	}

	if m.IsTraining() {
		rate := 1 - tr.decay
		target := snapshot.AsFloat32()
		tr.queue.Push(key, func() {
			v.Update(func(avg []float32) []float32 {
				for i := range avg {
					avg[i] -= rate * (avg[i] - target[i])
				}
				return avg
			})
		})
	}
	return &Average{v: v}, nil
}

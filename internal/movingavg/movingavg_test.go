package movingavg

import (
	"testing"

	"github.com/dream-go/trainer/internal/mode"
	"github.com/dream-go/trainer/internal/params"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T, decay float32) (*Tracker, *params.Store, *params.UpdateQueue) {
	t.Helper()
	store := params.NewStore()
	queue := &params.UpdateQueue{}
	tr, err := NewTracker(store, queue, decay)
	require.NoError(t, err)
	return tr, store, queue
}

func TestTracker_InitializesToFirstValue(t *testing.T) {
	tr, store, queue := newTracker(t, DefaultDecay)

	x := tensor.MustFromFloat32([]float32{1, 2}, tensor.Shape{2})
	avg, err := tr.Update(x, "w/moving_avg", mode.Eval)
	require.NoError(t, err)

	assert.Equal(t, "w/moving_avg", avg.Key())
	assert.Equal(t, []float32{1, 2}, avg.Tensor().AsFloat32())
	assert.Equal(t, 0, queue.Len())

	v, found := store.Lookup("w/moving_avg")
	require.True(t, found)
	assert.False(t, v.Trainable())
}

func TestTracker_TrainQueuesDecay(t *testing.T) {
	tr, _, queue := newTracker(t, 0.9)

	_, err := tr.Update(tensor.MustFromFloat32([]float32{0, 10}, tensor.Shape{2}), "w/moving_avg", mode.Eval)
	require.NoError(t, err)

	x := tensor.MustFromFloat32([]float32{10, 0}, tensor.Shape{2})
	avg, err := tr.Update(x, "w/moving_avg", mode.Train)
	require.NoError(t, err)
	require.Equal(t, 1, queue.Len())

	// Mutating the input after the call does not change the queued target.
	x.AsFloat32()[0] = -100

	assert.Equal(t, []float32{0, 10}, avg.Tensor().AsFloat32(), "nothing applied yet")
	queue.Apply()
	got := avg.Tensor().AsFloat32()
	assert.InDelta(t, 1.0, got[0], 1e-5)
	assert.InDelta(t, 9.0, got[1], 1e-5)
}

func TestTracker_Float16Input(t *testing.T) {
	tr, _, queue := newTracker(t, 0.5)
	avg, err := tr.Update(tensor.Full(tensor.Shape{3}, 2, tensor.Float16), "h", mode.Train)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, avg.Tensor().DType())
	queue.Apply()
	assert.Equal(t, []float32{2, 2, 2}, avg.Tensor().AsFloat32())
}

func TestNewTracker_RejectsBadDecay(t *testing.T) {
	for _, decay := range []float32{-0.1, 1, 1.5} {
		_, err := NewTracker(params.NewStore(), &params.UpdateQueue{}, decay)
		assert.Error(t, err, "decay %g", decay)
	}
}

func TestTracker_ShapeMismatch(t *testing.T) {
	tr, _, _ := newTracker(t, DefaultDecay)
	_, err := tr.Update(tensor.Zeros(tensor.Shape{2}, tensor.Float32), "k", mode.Eval)
	require.NoError(t, err)
	_, err = tr.Update(tensor.Zeros(tensor.Shape{3}, tensor.Float32), "k", mode.Eval)
	assert.ErrorIs(t, err, params.ErrShapeMismatch)
}

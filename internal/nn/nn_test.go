package nn

import (
	"math/rand/v2"
	"testing"

	"github.com/dream-go/trainer/internal/backend/cpu"
	"github.com/dream-go/trainer/internal/config"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, p config.Params) *Session {
	t.Helper()
	sess, err := NewSession(cpu.New(), nil, p, WithSeed(42))
	require.NoError(t, err)
	return sess
}

func randomTensor(rng *rand.Rand, shape tensor.Shape, lo, hi float32) *tensor.Tensor {
	values := make([]float32, shape.NumElements())
	for i := range values {
		values[i] = lo + (hi-lo)*rng.Float32()
	}
	return tensor.MustFromFloat32(values, shape)
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

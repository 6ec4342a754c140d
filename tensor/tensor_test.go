// Copyright 2025 The dream-go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/dream-go/trainer/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicAPI(t *testing.T) {
	dt, err := tensor.ParseDataType("f16")
	require.NoError(t, err)
	assert.Equal(t, tensor.Float16, dt)

	x := tensor.Full(tensor.Shape{2, 3}, 1.5, dt)
	assert.Equal(t, []float32{1.5, 1.5, 1.5, 1.5, 1.5, 1.5}, x.Float32s())

	y, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, y.MustPermute(1, 0).Shape())

	_, err = tensor.FromInt8([]int8{1}, tensor.Shape{2})
	assert.Error(t, err)
}

// Copyright 2025 The dream-go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor type the layers operate on.
//
// # Overview
//
// Tensors are dense, row-major and host resident. This package provides:
//   - Tensor: shape, dtype and a little-endian element buffer
//   - DataType: Float32 for storage, Float16 for activations, Int8 for
//     quantized weights
//   - Backend: the compute contract implemented by backend/cpu
//
// # Basic Usage
//
//	x := tensor.MustFromFloat32(values, tensor.Shape{1, 19, 19, 32})
//	h := x.Cast(tensor.Float16)
//	oihw := kernel.MustPermute(3, 2, 0, 1)
package tensor

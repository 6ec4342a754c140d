// Copyright 2025 The dream-go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// # Overview
//
// The backend implements tensor.Backend with:
//   - Pure Go implementation (no CGO)
//   - Direct SAME convolution over NHWC input and HWIO kernels
//   - Float32 and Float16 activations, float32 accumulation
//   - Work split across cores with errgroup
//
// # Basic Usage
//
//	import (
//	    "github.com/dream-go/trainer/backend/cpu"
//	    "github.com/dream-go/trainer/nn"
//	)
//
//	func main() {
//	    sess, err := nn.NewSession(cpu.New(), nil, nn.DefaultParams())
//	    ...
//	}
package cpu

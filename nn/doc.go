// Copyright 2025 The dream-go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers of the policy/value network.
//
// # Overview
//
// This package contains:
//   - Session: backend, parameter store, export registry, deferred updates
//   - BatchNorm: batch normalization folded into its convolution on export
//   - Dense: fully connected layer
//   - Freeze: rebuild the layers of a checkpoint and export them
//
// # Basic Usage
//
//	import (
//	    "github.com/dream-go/trainer/backend/cpu"
//	    "github.com/dream-go/trainer/nn"
//	    "github.com/dream-go/trainer/tensor"
//	)
//
//	func main() {
//	    sess, err := nn.NewSession(cpu.New(), nil, nn.DefaultParams())
//	    conv, err := nn.NewBatchNormConv2D(sess, "01_upsample/conv_1",
//	        tensor.Shape{3, 3, 32, 128}, nn.BatchNormConfig{Params: sess.Params})
//
//	    y, err := conv.Forward(x, nn.Train)
//	    sess.ApplyUpdates() // running statistics and moving averages
//
//	    err = sess.Exports.Save("weights.json")
//	}
//
// # Export
//
// Each layer registers its exports on its first forward pass that is not a
// recomputation. The values are read when the registry is saved, so saving
// after training exports the final moving averages.
package nn

// Copyright 2025 The dream-go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/dream-go/trainer/internal/backend/cpu"
	"github.com/dream-go/trainer/internal/parallel"
	"github.com/dream-go/trainer/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend using every available core.
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that never fans out, for
// deterministic profiling and tests.
func NewSequential() *Backend {
	return internalcpu.NewWithConfig(parallel.Sequential())
}

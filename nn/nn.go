// Copyright 2025 The dream-go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/dream-go/trainer/internal/config"
	"github.com/dream-go/trainer/internal/nn"
	"github.com/dream-go/trainer/internal/params"
	"github.com/dream-go/trainer/tensor"
)

// Mode selects training or inference behaviour.
type Mode = nn.Mode

// Forward modes.
const (
	Train = nn.Train
	Eval  = nn.Eval
)

// Params are the network options.
type Params = config.Params

// DefaultParams returns the default network options.
func DefaultParams() Params {
	return config.Default()
}

// LoadParams reads network options from a YAML file.
func LoadParams(path string) (Params, error) {
	return config.Load(path)
}

// ParamsFromMap resolves network options from a map, rejecting unknown keys.
func ParamsFromMap(m map[string]any) (Params, error) {
	return config.FromMap(m)
}

// Store holds the variables of a network.
type Store = params.Store

// Variable is a named parameter.
type Variable = params.Variable

// NewStore returns an empty variable store.
func NewStore() *Store {
	return params.NewStore()
}

// LoadStore reads a checkpoint written by Store.Save.
func LoadStore(path string) (*Store, error) {
	return params.Load(path)
}

// Session carries the state shared by layers.
type Session = nn.Session

// SessionOption configures NewSession.
type SessionOption = nn.SessionOption

// NewSession creates a session. A nil store means a new empty one.
func NewSession(backend tensor.Backend, store *Store, p Params, opts ...SessionOption) (*Session, error) {
	return nn.NewSession(backend, store, p, opts...)
}

// WithSeed seeds the orthogonal weight initializer.
func WithSeed(seed uint64) SessionOption {
	return nn.WithSeed(seed)
}

// Layer is the interface shared by every layer.
type Layer = nn.Layer

// ForwardOption configures a single forward pass.
type ForwardOption = nn.ForwardOption

// Recomputing marks a forward pass as a recomputation: same output, no
// exports, no queued updates.
func Recomputing() ForwardOption {
	return nn.Recomputing()
}

// BatchNorm is a batch-norm layer folded into its convolution on export.
type BatchNorm = nn.BatchNorm

// BatchNormConfig configures a BatchNorm layer.
type BatchNormConfig = nn.BatchNormConfig

// NewBatchNorm creates a batch-norm layer for already convolved input.
func NewBatchNorm(sess *Session, name string, weights *Variable, cfg BatchNormConfig) (*BatchNorm, error) {
	return nn.NewBatchNorm(sess, name, weights, cfg)
}

// NewBatchNormConv2D creates convolution weights and a batch-norm layer that
// applies them.
//
// Example:
//
//	conv, err := nn.NewBatchNormConv2D(sess, "conv_1", tensor.Shape{3, 3, 128, 128}, nn.BatchNormConfig{})
func NewBatchNormConv2D(sess *Session, name string, shape tensor.Shape, cfg BatchNormConfig) (*BatchNorm, error) {
	return nn.NewBatchNormConv2D(sess, name, shape, cfg)
}

// Dense is a fully connected layer.
type Dense = nn.Dense

// DenseConfig configures a Dense layer.
type DenseConfig = nn.DenseConfig

// NewDense creates a dense layer.
func NewDense(sess *Session, name string, inDims, outDims int, cfg DenseConfig) (*Dense, error) {
	return nn.NewDense(sess, name, inDims, outDims, cfg)
}

// Freeze rebuilds the layers found in the session's store and registers
// their exports.
func Freeze(sess *Session) ([]Layer, error) {
	return nn.Freeze(sess)
}

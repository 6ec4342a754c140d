// Package nn implements the layers of the policy/value network.
//
// This package provides:
//   - Session: backend, parameter store, export registry and deferred updates
//   - BatchNorm: batch normalization folded into the preceding convolution
//     for export, optionally quantized to int8
//   - Dense: fully connected layer
//
// Layers are built against a Session. Building a layer twice with the same
// name shares its variables.
package nn

import (
	"github.com/dream-go/trainer/internal/mode"
	"github.com/dream-go/trainer/internal/params"
	"github.com/dream-go/trainer/internal/tensor"
)

// Mode re-exports mode.Mode.
type Mode = mode.Mode

// Forward modes.
const (
	Train = mode.Train
	Eval  = mode.Eval
)

// Layer is the interface shared by every layer.
type Layer interface {
	// Forward computes the output for x. Unless called with Recomputing(),
	// it also registers the layer's exports (once) and queues its deferred
	// updates on the session.
	Forward(x *tensor.Tensor, m Mode, opts ...ForwardOption) (*tensor.Tensor, error)

	// Parameters returns the trainable variables of the layer.
	Parameters() []*params.Variable
}

// ForwardOption configures a single forward pass.
type ForwardOption func(*forwardOptions)

type forwardOptions struct {
	recomputing bool
}

// Recomputing marks a pass that re-evaluates an already computed layer, as
// gradient checkpointing does. The output is the same as the first pass but
// nothing is exported and no update is queued.
func Recomputing() ForwardOption {
	return func(o *forwardOptions) {
		o.recomputing = true
	}
}

func resolveOptions(opts []ForwardOption) forwardOptions {
	var o forwardOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

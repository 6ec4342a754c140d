package nn

import (
	"sync"

	"github.com/dream-go/trainer/internal/config"
	"github.com/dream-go/trainer/internal/dump"
	"github.com/dream-go/trainer/internal/initializers"
	"github.com/dream-go/trainer/internal/params"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
)

// DenseConfig configures a Dense layer.
type DenseConfig struct {
	// Params supplies NoDump.
	Params config.Params
	// OffsetInit initializes the bias. Nil means zeros.
	OffsetInit initializers.Initializer
	// Compute is the activation dtype, Float32 or Float16.
	Compute tensor.DataType
}

// Dense implements a fully connected layer, y = x·W + b.
//
// For a layer named "value" the variables are value/linear_1 ([in, out],
// orthogonal) and value/linear_1/offset ([out]). Both are exported verbatim
// as half precision.
//
// Example:
//
//	layer, err := nn.NewDense(sess, "value", 361, 256, nn.DenseConfig{})
//	y, err := layer.Forward(x, nn.Train) // x: [batch, 361], y: [batch, 256]
type Dense struct {
	sess    *Session
	name    string
	cfg     DenseConfig
	inDims  int
	outDims int

	weights *params.Variable
	offset  *params.Variable

	mu       sync.Mutex
	exported bool
}

var _ Layer = (*Dense)(nil)

// NewDense creates a dense layer mapping inDims features to outDims.
func NewDense(sess *Session, name string, inDims, outDims int, cfg DenseConfig) (*Dense, error) {
	if inDims <= 0 || outDims <= 0 {
		return nil, errors.Errorf("dense %q: dimensions must be positive, got (%d, %d)", name, inDims, outDims)
	}
	if !cfg.Compute.IsFloat() {
		return nil, errors.Errorf("dense %q: compute type must be float, got %s", name, cfg.Compute)
	}
	offsetInit := cfg.OffsetInit
	if offsetInit == nil {
		offsetInit = initializers.Zeros
	}

	scope := sess.Store.In(name)
	weights, err := scope.Variable("linear_1", tensor.Shape{inDims, outDims}, sess.Orthogonal, true)
	if err != nil {
		return nil, errors.Wrapf(err, "dense %q", name)
	}
	offset, err := scope.Variable("linear_1/offset", tensor.Shape{outDims}, offsetInit, true)
	if err != nil {
		return nil, errors.Wrapf(err, "dense %q", name)
	}
	return &Dense{
		sess:    sess,
		name:    name,
		cfg:     cfg,
		inDims:  inDims,
		outDims: outDims,
		weights: weights,
		offset:  offset,
	}, nil
}

// Name returns the layer name.
func (d *Dense) Name() string { return d.name }

// Weights returns the weight matrix, [in, out].
func (d *Dense) Weights() *params.Variable { return d.weights }

// Offset returns the bias.
func (d *Dense) Offset() *params.Variable { return d.offset }

// Parameters returns [weights, offset].
func (d *Dense) Parameters() []*params.Variable {
	return []*params.Variable{d.weights, d.offset}
}

// Export registers the weights and the bias, once. It does nothing when
// NoDump is set.
func (d *Dense) Export(Mode) error {
	if d.cfg.Params.NoDump {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exported {
		return nil
	}
	for _, v := range d.Parameters() {
		if err := d.sess.Exports.Emit(v.Name()+":0", variableSource(v), dump.F2); err != nil {
			return errors.Wrapf(err, "dense %q", d.name)
		}
	}
	d.exported = true
	return nil
}

func variableSource(v *params.Variable) dump.Source {
	return dump.SourceFunc(func() (*tensor.Tensor, error) {
		return v.Value(), nil
	})
}

// Forward computes x·W + b for x of shape [batch, in].
func (d *Dense) Forward(x *tensor.Tensor, m Mode, opts ...ForwardOption) (*tensor.Tensor, error) {
	o := resolveOptions(opts)
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != d.inDims {
		return nil, errors.Errorf("dense %q: expected [batch, %d], got %v", d.name, d.inDims, shape)
	}
	if !x.DType().IsFloat() {
		return nil, errors.Errorf("dense %q: input must be float, got %s", d.name, x.DType())
	}
	if x.DType() != d.cfg.Compute {
		x = x.Cast(d.cfg.Compute)
	}

	if !o.recomputing {
		if err := d.Export(m); err != nil {
			return nil, err
		}
	}

	y := d.sess.Backend.MatMul(x, d.weights.Value().Cast(d.cfg.Compute))
	return d.sess.Backend.BiasAdd(y, d.offset.Value()), nil
}

package nn

import (
	"math"
	"sync"

	"github.com/dream-go/trainer/internal/config"
	"github.com/dream-go/trainer/internal/dump"
	"github.com/dream-go/trainer/internal/initializers"
	"github.com/dream-go/trainer/internal/params"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// BatchNormEpsilon is added to the variance before the square root. The
	// inference runtime replays the fold with the same value.
	BatchNormEpsilon = 0.001

	// StatisticsRate is the decay rate of the running mean and variance.
	StatisticsRate = 0.01
)

// FoldedLayout is the axis permutation applied to folded HWIO weights. The
// result, [out, h, w, in], is the cuDNN NHWC filter layout, which cuDNN
// describes with the dims (out, in, h, w).
var FoldedLayout = []int{3, 0, 1, 2}

// BatchNormConfig configures a BatchNorm layer.
type BatchNormConfig struct {
	// Params supplies NoDump and Quantize.
	Params config.Params
	// Compute is the activation dtype, Float32 or Float16. Parameters and
	// statistics are always Float32.
	Compute tensor.DataType
}

// BatchNorm normalizes the output of a convolution per channel and, for
// export, folds the normalization into the convolution weights and a bias.
//
// Variables, for a layer named "conv_1":
//   - conv_1: weights [h, w, in, out], only when the layer convolves itself
//   - conv_1/scale, conv_1/offset: trainable, [out]
//   - conv_1/mean, conv_1/variance: running statistics, [out]
//   - conv_1/moving_avg, conv_1/offset/moving_avg: averages of the fold
//
// Exports: "conv_1:0" (folded weights) and "conv_1/offset:0" (folded bias).
// With Quantize the weights are exported as int8 with a scale and the bias
// is snapped to the activation grid.
type BatchNorm struct {
	sess *Session
	name string
	cfg  BatchNormConfig
	conv bool

	weights  *params.Variable
	scale    *params.Variable
	mean     *params.Variable
	variance *params.Variable
	offset   *params.Variable

	mu       sync.Mutex
	exported bool
}

var _ Layer = (*BatchNorm)(nil)

// NewBatchNorm creates a batch-norm layer for input that was already
// convolved with weights ([h, w, in, out]). weights are only read to fold.
func NewBatchNorm(sess *Session, name string, weights *params.Variable, cfg BatchNormConfig) (*BatchNorm, error) {
	return newBatchNorm(sess, name, weights, cfg, false)
}

// NewBatchNormConv2D creates the convolution weights of shape
// [h, w, in, out] under name and a batch-norm layer that applies the
// convolution (SAME padding, stride 1, NHWC) before normalizing.
func NewBatchNormConv2D(sess *Session, name string, shape tensor.Shape, cfg BatchNormConfig) (*BatchNorm, error) {
	if len(shape) != 4 {
		return nil, errors.Errorf("batch norm %q: weights must be [h, w, in, out], got %v", name, shape)
	}
	weights, err := sess.Store.Variable(name, shape, sess.Orthogonal, true)
	if err != nil {
		return nil, errors.Wrapf(err, "batch norm %q", name)
	}
	return newBatchNorm(sess, name, weights, cfg, true)
}

func newBatchNorm(sess *Session, name string, weights *params.Variable, cfg BatchNormConfig, conv bool) (*BatchNorm, error) {
	if !cfg.Compute.IsFloat() {
		return nil, errors.Errorf("batch norm %q: compute type must be float, got %s", name, cfg.Compute)
	}
	shape := weights.Shape()
	if len(shape) != 4 {
		return nil, errors.Errorf("batch norm %q: weights must be [h, w, in, out], got %v", name, shape)
	}
	channels := tensor.Shape{shape[3]}

	b := &BatchNorm{sess: sess, name: name, cfg: cfg, conv: conv, weights: weights}
	scope := sess.Store.In(name)
	vars := []struct {
		dst       **params.Variable
		name      string
		init      initializers.Initializer
		trainable bool
	}{
		{&b.scale, "scale", initializers.Ones, true},
		{&b.mean, "mean", initializers.Zeros, false},
		{&b.variance, "variance", initializers.Ones, false},
		{&b.offset, "offset", initializers.Zeros, true},
	}
	for _, v := range vars {
		variable, err := scope.Variable(v.name, channels, v.init, v.trainable)
		if err != nil {
			return nil, errors.Wrapf(err, "batch norm %q", name)
		}
		*v.dst = variable
	}
	klog.V(2).Infof("nn: batch norm %s weights=%v conv=%v quantize=%v", name, shape, conv, cfg.Params.Quantize)
	return b, nil
}

// Name returns the layer name.
func (b *BatchNorm) Name() string { return b.name }

// Weights returns the convolution weights, [h, w, in, out].
func (b *BatchNorm) Weights() *params.Variable { return b.weights }

// Scale returns the per-channel scale.
func (b *BatchNorm) Scale() *params.Variable { return b.scale }

// Mean returns the running mean.
func (b *BatchNorm) Mean() *params.Variable { return b.mean }

// Variance returns the running variance.
func (b *BatchNorm) Variance() *params.Variable { return b.variance }

// Offset returns the per-channel offset.
func (b *BatchNorm) Offset() *params.Variable { return b.offset }

// Parameters returns the trainable variables.
func (b *BatchNorm) Parameters() []*params.Variable {
	if b.conv {
		return []*params.Variable{b.weights, b.scale, b.offset}
	}
	return []*params.Variable{b.scale, b.offset}
}

// Fold returns the current weights with the normalization folded in, in
// FoldedLayout order, and the matching bias:
//
//	weights' = weights * scale/sqrt(variance+eps)   (per output channel)
//	offset'  = offset - mean*scale/sqrt(variance+eps)
//
// Convolving with weights' and adding offset' equals convolving with weights
// and normalizing with the running statistics.
func (b *BatchNorm) Fold() (weights, offset *tensor.Tensor) {
	w := b.weights.Float32s()
	scale := b.scale.Float32s()
	mean := b.mean.Float32s()
	variance := b.variance.Float32s()
	off := b.offset.Float32s()

	c := len(scale)
	mul := make([]float32, c)
	for ch := range mul {
		mul[ch] = scale[ch] / float32(math.Sqrt(float64(variance[ch]+BatchNormEpsilon)))
		off[ch] -= mean[ch] * mul[ch]
	}
	for i := range w {
		w[i] *= mul[i%c]
	}

	hwio := tensor.MustFromFloat32(w, b.weights.Shape())
	return hwio.MustPermute(FoldedLayout...), tensor.MustFromFloat32(off, tensor.Shape{c})
}

// Export folds the layer, feeds the fold to its moving averages (queueing
// their update in Train mode) and, the first time, registers the averages
// for export. It does nothing when NoDump is set.
func (b *BatchNorm) Export(m Mode) error {
	if b.cfg.Params.NoDump {
		return nil
	}
	weights, offset := b.Fold()
	offsetAvg, err := b.sess.Averages.Update(offset, b.name+"/offset/moving_avg", m)
	if err != nil {
		return errors.Wrapf(err, "batch norm %q", b.name)
	}
	weightsAvg, err := b.sess.Averages.Update(weights, b.name+"/moving_avg", m)
	if err != nil {
		return errors.Wrapf(err, "batch norm %q", b.name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exported {
		return nil
	}

	var (
		weightsSrc dump.Source = averageSource(weightsAvg.Tensor)
		offsetSrc  dump.Source = averageSource(offsetAvg.Tensor)
		weightsEnc             = dump.F2
	)
	if b.cfg.Params.Quantize {
		weightsSrc = dump.Quantized(weightsSrc)
		offsetSrc = dump.Snapped(offsetSrc)
		weightsEnc = dump.I1
	}
	if err := b.sess.Exports.Emit(b.offset.Name()+":0", offsetSrc, dump.F2); err != nil {
		return errors.Wrapf(err, "batch norm %q", b.name)
	}
	if err := b.sess.Exports.Emit(b.name+":0", weightsSrc, weightsEnc); err != nil {
		return errors.Wrapf(err, "batch norm %q", b.name)
	}
	b.exported = true
	return nil
}

func averageSource(read func() *tensor.Tensor) dump.Source {
	return dump.SourceFunc(func() (*tensor.Tensor, error) {
		return read(), nil
	})
}

// Forward normalizes x, [N, H, W, C] (or the input of the convolution when
// the layer convolves itself). The output is in the compute type.
//
// Train normalizes with the batch statistics and queues
//
//	mean     <- mean - StatisticsRate*(mean - batch mean)
//	variance <- variance - StatisticsRate*(variance - batch variance)
//
// where the batch variance is the unbiased estimate. Eval normalizes with
// the running statistics and queues nothing.
func (b *BatchNorm) Forward(x *tensor.Tensor, m Mode, opts ...ForwardOption) (*tensor.Tensor, error) {
	o := resolveOptions(opts)
	if !x.DType().IsFloat() {
		return nil, errors.Errorf("batch norm %q: input must be float, got %s", b.name, x.DType())
	}
	if x.DType() != b.cfg.Compute {
		x = x.Cast(b.cfg.Compute)
	}
	if b.conv {
		shape := x.Shape()
		if len(shape) != 4 || shape[3] != b.weights.Shape()[2] {
			return nil, errors.Errorf("batch norm %q: input %v does not match weights %v", b.name, shape, b.weights.Shape())
		}
		x = b.sess.Backend.Conv2D(x, b.weights.Value().Cast(b.cfg.Compute))
	}

	c := b.scale.Shape()[0]
	if shape := x.Shape(); len(shape) != 4 || shape[3] != c {
		return nil, errors.Errorf("batch norm %q: expected [N, H, W, %d], got %v", b.name, c, shape)
	}

	if !o.recomputing {
		if err := b.Export(m); err != nil {
			return nil, err
		}
	}

	scale, offset := b.scale.Value(), b.offset.Value()
	if !m.IsTraining() {
		return b.sess.Backend.Normalize(x, scale, offset, b.mean.Value(), b.variance.Value(), BatchNormEpsilon), nil
	}

	mean, variance := b.sess.Backend.Moments(x)
	y := b.sess.Backend.Normalize(x, scale, offset, mean, variance, BatchNormEpsilon)
	if !o.recomputing {
		b.queueStatistics(mean, variance, x.NumElements()/c)
	}
	return y, nil
}

// queueStatistics queues the running-statistic updates. count is the number
// of values per channel the moments were taken over.
func (b *BatchNorm) queueStatistics(mean, variance *tensor.Tensor, count int) {
	batchMean := mean.Float32s()
	batchVariance := variance.Float32s()
	if count > 1 {
		correction := float32(count) / float32(count-1)
		for i := range batchVariance {
			batchVariance[i] *= correction
		}
	}
	b.sess.Updates.Push(b.mean.Name(), func() { b.mean.Update(decayToward(batchMean)) })
	b.sess.Updates.Push(b.variance.Name(), func() { b.variance.Update(decayToward(batchVariance)) })
}

func decayToward(target []float32) func([]float32) []float32 {
	return func(current []float32) []float32 {
		for i := range current {
			current[i] -= StatisticsRate * (current[i] - target[i])
		}
		return current
	}
}

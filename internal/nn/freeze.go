package nn

import (
	"sort"
	"strings"

	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Exporter is implemented by layers that register exports.
type Exporter interface {
	Export(m Mode) error
}

// Rebuild reconstructs, in name order, every batch-norm and dense layer
// whose variables are present in the session's store. Batch-norm layers are
// recognized by their scale, mean, variance and offset next to a 4-D weights
// variable of the same name; dense layers by a linear_1 matrix and its
// offset.
func Rebuild(sess *Session) ([]Layer, error) {
	compute, err := sess.Params.Compute()
	if err != nil {
		return nil, err
	}
	var names []string
	kinds := make(map[string]string)
	for _, key := range sess.Store.Names() {
		switch {
		case strings.HasSuffix(key, "/variance"):
			name := strings.TrimSuffix(key, "/variance")
			if isBatchNorm(sess, name) {
				names = append(names, name)
				kinds[name] = "batch_norm"
			}
		case strings.HasSuffix(key, "/linear_1"):
			name := strings.TrimSuffix(key, "/linear_1")
			if _, found := sess.Store.Lookup(key + "/offset"); found {
				names = append(names, name)
				kinds[name] = "dense"
			}
		}
	}
	sort.Strings(names)

	layers := make([]Layer, 0, len(names))
	for _, name := range names {
		var layer Layer
		switch kinds[name] {
		case "batch_norm":
			weights, _ := sess.Store.Lookup(name)
			layer, err = NewBatchNorm(sess, name, weights, BatchNormConfig{Params: sess.Params, Compute: compute})
		case "dense":
			w, _ := sess.Store.Lookup(name + "/linear_1")
			shape := w.Shape()
			layer, err = NewDense(sess, name, shape[0], shape[1], DenseConfig{Params: sess.Params, Compute: compute})
		}
		if err != nil {
			return nil, errors.Wrapf(err, "rebuilding %s", name)
		}
		klog.V(1).Infof("nn: rebuilt %s %s", kinds[name], name)
		layers = append(layers, layer)
	}
	return layers, nil
}

func isBatchNorm(sess *Session, name string) bool {
	weights, found := sess.Store.Lookup(name)
	if !found || len(weights.Shape()) != 4 {
		return false
	}
	channels := tensor.Shape{weights.Shape()[3]}
	for _, suffix := range []string{"/scale", "/mean", "/variance", "/offset"} {
		v, found := sess.Store.Lookup(name + suffix)
		if !found || !v.Shape().Equal(channels) {
			return false
		}
	}
	return true
}

// Freeze rebuilds the layers in the session's store and registers their
// exports, reading moving averages as they are. It returns the layers.
func Freeze(sess *Session) ([]Layer, error) {
	layers, err := Rebuild(sess)
	if err != nil {
		return nil, err
	}
	for _, layer := range layers {
		exporter, ok := layer.(Exporter)
		if !ok {
			continue
		}
		if err := exporter.Export(Eval); err != nil {
			return nil, err
		}
	}
	return layers, nil
}

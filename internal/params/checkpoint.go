package params

import (
	"strconv"

	"github.com/dream-go/trainer/internal/serialization"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	formatKey       = "format"
	formatValue     = "dream-go/params"
	trainablePrefix = "trainable:"
)

// Save writes every variable to a SafeTensors checkpoint at path. The
// trainable flags travel in the header metadata.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	state := make(map[string]*tensor.Tensor, len(s.vars))
	metadata := map[string]string{formatKey: formatValue}
	for key, v := range s.vars {
		state[key] = v.Value()
		metadata[trainablePrefix+key] = strconv.FormatBool(v.trainable)
	}
	s.mu.Unlock()

	if err := serialization.WriteSafeTensors(path, state, metadata); err != nil {
		return errors.Wrapf(err, "saving checkpoint %s", path)
	}
	klog.V(1).Infof("params: saved %d variables to %s", len(state), path)
	return nil
}

// Load reads a checkpoint written by Save into a new store. Variables are
// created in name order. Tensors without a trainable flag are treated as
// trainable.
func Load(path string) (*Store, error) {
	r, err := serialization.OpenSafeTensors(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading checkpoint %s", path)
	}
	defer func() { _ = r.Close() }()

	metadata := r.Metadata()
	if format, found := metadata[formatKey]; found && format != formatValue {
		return nil, errors.Errorf("loading checkpoint %s: unknown format %q", path, format)
	}

	s := NewStore()
	for _, key := range r.TensorNames() {
		t, err := r.Tensor(key)
		if err != nil {
			return nil, errors.Wrapf(err, "loading checkpoint %s", path)
		}
		trainable := true
		if flag, found := metadata[trainablePrefix+key]; found {
			if trainable, err = strconv.ParseBool(flag); err != nil {
				return nil, errors.Wrapf(err, "loading checkpoint %s: trainable flag of %q", path, key)
			}
		}
		if t.DType() != tensor.Float32 {
			t = t.Cast(tensor.Float32)
		}
		s.vars[key] = &Variable{name: key, trainable: trainable, value: t}
		s.order = append(s.order, key)
	}
	klog.V(1).Infof("params: loaded %d variables from %s", len(s.order), path)
	return s, nil
}

// Package config resolves the options shared by the layers of a network.
//
// Options come from a YAML file or a loosely typed map (flags, estimator
// params) and are decoded into Params. Unknown keys are an error.
package config

import (
	"io"
	"os"

	"github.com/dream-go/trainer/internal/movingavg"
	"github.com/dream-go/trainer/internal/tensor"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Params are the recognized network options.
type Params struct {
	// NoDump disables export registration in every layer.
	NoDump bool `mapstructure:"no_dump" yaml:"no_dump"`
	// Quantize exports batch-norm weights as int8 with a scale.
	Quantize bool `mapstructure:"quantize" yaml:"quantize"`
	// ComputeType is the activation precision: "f32" or "f16".
	ComputeType string `mapstructure:"compute_type" yaml:"compute_type"`
	// MovingAverageDecay is the decay of the exported weight averages.
	MovingAverageDecay float32 `mapstructure:"moving_average_decay" yaml:"moving_average_decay"`

	NumChannels int `mapstructure:"num_channels" yaml:"num_channels"`
	NumBlocks   int `mapstructure:"num_blocks" yaml:"num_blocks"`
}

// Default returns the default options.
func Default() Params {
	return Params{
		ComputeType:        "f32",
		MovingAverageDecay: movingavg.DefaultDecay,
		NumChannels:        128,
		NumBlocks:          9,
	}
}

// FromMap overlays m on Default. Keys must match the mapstructure tags of
// Params exactly; anything else fails.
func FromMap(m map[string]any) (Params, error) {
	p := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &p,
	})
	if err != nil {
		return Params{}, errors.Wrap(err, "config")
	}
	if err := dec.Decode(m); err != nil {
		return Params{}, errors.Wrap(err, "config")
	}
	return p, p.Validate()
}

// Load reads a YAML file and overlays it on Default.
func Load(path string) (Params, error) {
	//nolint:gosec // G304: config path is chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return Params{}, errors.Wrap(err, "config")
	}
	defer func() { _ = f.Close() }()
	p, err := Decode(f)
	return p, errors.Wrapf(err, "config %s", path)
}

// Decode reads YAML options from r. An empty document yields Default.
func Decode(r io.Reader) (Params, error) {
	p := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Params{}, err
	}
	return p, p.Validate()
}

// Validate checks value ranges.
func (p Params) Validate() error {
	if _, err := p.Compute(); err != nil {
		return err
	}
	if p.MovingAverageDecay < 0 || p.MovingAverageDecay >= 1 {
		return errors.Errorf("moving_average_decay must be in [0, 1), got %g", p.MovingAverageDecay)
	}
	if p.NumChannels <= 0 {
		return errors.Errorf("num_channels must be positive, got %d", p.NumChannels)
	}
	if p.NumBlocks < 0 {
		return errors.Errorf("num_blocks must not be negative, got %d", p.NumBlocks)
	}
	return nil
}

// Compute returns ComputeType as a tensor dtype. Only float types qualify.
func (p Params) Compute() (tensor.DataType, error) {
	dt, err := tensor.ParseDataType(p.ComputeType)
	if err != nil {
		return 0, errors.Wrap(err, "compute_type")
	}
	if !dt.IsFloat() {
		return 0, errors.Errorf("compute_type must be a float type, got %s", dt)
	}
	return dt, nil
}

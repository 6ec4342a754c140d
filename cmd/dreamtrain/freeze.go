package main

import (
	"os"

	"github.com/dream-go/trainer/internal/backend/cpu"
	"github.com/dream-go/trainer/internal/config"
	"github.com/dream-go/trainer/internal/dump"
	"github.com/dream-go/trainer/internal/nn"
	"github.com/dream-go/trainer/internal/params"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

type freezeOptions struct {
	checkpoint string
	out        string
	config     string
	quantize   bool
	progress   bool
}

func newFreezeCmd() *cobra.Command {
	var opts freezeOptions
	cmd := &cobra.Command{
		Use:   "freeze",
		Short: "Export the layers of a checkpoint to a weights file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFreeze(opts)
		},
	}
	cmd.Flags().StringVar(&opts.checkpoint, "checkpoint", "", "SafeTensors checkpoint to read")
	cmd.Flags().StringVar(&opts.out, "out", "weights.json", "weights file to write")
	cmd.Flags().StringVar(&opts.config, "config", "", "YAML network options")
	cmd.Flags().BoolVar(&opts.quantize, "quantize", false, "export batch-norm weights as int8")
	cmd.Flags().BoolVar(&opts.progress, "progress", true, "show a progress bar")
	_ = cmd.MarkFlagRequired("checkpoint")
	return cmd
}

func runFreeze(opts freezeOptions) (err error) {
	p := config.Default()
	if opts.config != "" {
		if p, err = config.Load(opts.config); err != nil {
			return err
		}
	}
	if opts.quantize {
		p.Quantize = true
	}
	if p.NoDump {
		return errors.New("freeze: no_dump is set, nothing would be exported")
	}

	store, err := params.Load(opts.checkpoint)
	if err != nil {
		return err
	}
	sess, err := nn.NewSession(cpu.New(), store, p)
	if err != nil {
		return err
	}
	layers, err := nn.Freeze(sess)
	if err != nil {
		return err
	}
	klog.Infof("freeze: %d layers, %d exports from %s", len(layers), sess.Exports.Len(), opts.checkpoint)

	var bar *progressbar.ProgressBar
	if opts.progress {
		bar = progressbar.NewOptions(sess.Exports.Len(),
			progressbar.OptionSetDescription("exporting"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	entries, err := sess.Exports.Flush(func(dump.Entry) {
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	//nolint:gosec // G304: output path is chosen by the user
	f, err := os.Create(opts.out)
	if err != nil {
		return errors.Wrap(err, "freeze")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "freeze")
		}
	}()
	n, err := dump.WriteEntries(f, entries)
	if err != nil {
		return errors.Wrapf(err, "freeze: writing %s", opts.out)
	}

	var raw int
	for _, e := range entries {
		raw += e.ByteSize()
	}
	klog.Infof("freeze: wrote %s (%s of weights) to %s", humanize.Bytes(uint64(n)), humanize.Bytes(uint64(raw)), opts.out)
	return nil
}

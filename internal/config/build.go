package config

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/serialization"
	"github.com/born-ml/convnet/internal/tensor"
)

// defaultDropProbability applies when a dropout layer omits drop_probability.
const defaultDropProbability = 0.5

type volumer interface {
	OutputVolume() tensor.Volume
}

// builder threads the previous layer's output shape through the stack.
type builder struct {
	cfg    *Config
	logger *slog.Logger
	prev   nn.Layer
	shape  *tensor.Volume
}

// Build constructs the network described by cfg.
func Build(cfg *Config, logger *slog.Logger) (*nn.Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	loss, err := nn.LossByName(cfg.Network.Loss)
	if err != nil {
		return nil, err
	}

	net := nn.NewNetwork(loss, nn.WithLogger(logger), nn.WithParallelism(cfg.ParallelismConfig()))
	b := &builder{cfg: cfg, logger: logger}
	for i, lc := range cfg.Network.Layers {
		l, err := b.layer(lc)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d (%s)", i+1, lc.Type)
		}
		if err := b.loadParameters(l, lc); err != nil {
			return nil, errors.Wrapf(err, "layer %d (%s)", i+1, lc.Type)
		}
		net.AddLayer(l)
		b.prev = l
		if v, ok := l.(volumer); ok {
			vol := v.OutputVolume()
			b.shape = &vol
		} else {
			b.shape = nil
		}
	}
	return net, nil
}

func (b *builder) layer(lc LayerConfig) (nn.Layer, error) {
	switch normalize(lc.Type) {
	case "convolutional", "conv":
		in, err := b.inputShape(lc)
		if err != nil {
			return nil, err
		}
		act, err := nn.ActivationByName(lc.Activation)
		if err != nil {
			return nil, err
		}
		return nn.NewConvolutional(nn.ConvolutionalConfig{
			InputHeight: in.Height, InputWidth: in.Width, InputDepth: in.Depth,
			KernelSize: lc.KernelSize, OutputDepth: lc.OutputDepth,
			Stride: lc.Stride, Padding: lc.Padding,
			ConnectionTable: lc.ConnectionTable,
			Name:            lc.Name,
			Logger:          b.logger,
		}, act)

	case "pooling", "pool":
		in, err := b.inputShape(lc)
		if err != nil {
			return nil, err
		}
		fn, err := nn.PoolingByName(lc.Pooling)
		if err != nil {
			return nil, err
		}
		return nn.NewPooling(nn.PoolingConfig{
			InputHeight: in.Height, InputWidth: in.Width, InputDepth: in.Depth,
			PoolSize: lc.PoolSize, Stride: lc.Stride, Name: lc.Name,
		}, fn)

	case "elementwise":
		in, err := b.inputShape(lc)
		if err != nil {
			return nil, err
		}
		fn, err := nn.ElementWiseByName(lc.Kind)
		if err != nil {
			return nil, err
		}
		return nn.NewElementWise(nn.ElementWiseConfig{
			InputHeight: in.Height, InputWidth: in.Width, InputDepth: in.Depth,
			ElementSize: lc.ElementSize, Stride: lc.Stride, Name: lc.Name,
		}, fn)

	case "fullyconnected", "fc", "dense":
		act, err := nn.ActivationByName(lc.Activation)
		if err != nil {
			return nil, err
		}
		return nn.NewFullyConnected(b.dense(lc), act)

	case "dropout":
		act, err := nn.ActivationByName(lc.Activation)
		if err != nil {
			return nil, err
		}
		return nn.NewDropout(b.dropout(lc), act)

	case "dropconnect":
		act, err := nn.ActivationByName(lc.Activation)
		if err != nil {
			return nil, err
		}
		return nn.NewDropConnect(b.dropout(lc), act)

	case "softmax":
		return nn.NewSoftmax(b.dense(lc))

	case "maxout":
		return nn.NewMaxout(b.dense(lc))

	default:
		return nil, errors.Errorf("unknown layer type %q", lc.Type)
	}
}

// normalize folds case and drops separators: "Fully_Connected" -> "fullyconnected".
func normalize(s string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(s))
}

func (b *builder) inputShape(lc LayerConfig) (tensor.Volume, error) {
	if lc.Input != nil {
		return tensor.Vol(lc.Input.Depth, lc.Input.Height, lc.Input.Width), nil
	}
	if b.shape == nil {
		return tensor.Volume{}, errors.New("input shape required: previous layer is not spatial")
	}
	return *b.shape, nil
}

func (b *builder) dense(lc LayerConfig) nn.DenseConfig {
	in := lc.Inputs
	if in == 0 && b.prev != nil {
		in = b.prev.OutputSize()
	}
	return nn.DenseConfig{
		InputSize:  in,
		OutputSize: lc.Outputs,
		Name:       lc.Name,
		Logger:     b.logger,
	}
}

func (b *builder) dropout(lc LayerConfig) nn.DropoutConfig {
	p := defaultDropProbability
	if lc.DropProbability != nil {
		p = *lc.DropProbability
	}
	return nn.DropoutConfig{DenseConfig: b.dense(lc), DropProbability: p}
}

func (b *builder) resolve(path string) string {
	if filepath.IsAbs(path) || b.cfg.BaseDir == "" {
		return path
	}
	return filepath.Join(b.cfg.BaseDir, path)
}

func (b *builder) loadParameters(l nn.Layer, lc LayerConfig) error {
	if lc.WeightsFile != "" {
		kind, values, err := serialization.LoadFile(b.resolve(lc.WeightsFile))
		if err != nil {
			return err
		}
		if kind == serialization.Biases {
			return errors.Wrapf(serialization.ErrFormat, "%s: weights file holds %s", lc.WeightsFile, kind)
		}
		if err := l.SetWeights(values); err != nil {
			return err
		}
	}
	if lc.BiasesFile != "" {
		kind, values, err := serialization.LoadFile(b.resolve(lc.BiasesFile))
		if err != nil {
			return err
		}
		if kind != serialization.Biases {
			return errors.Wrapf(serialization.ErrFormat, "%s: biases file holds %s", lc.BiasesFile, kind)
		}
		if err := l.SetBiases(values); err != nil {
			return err
		}
	}
	return nil
}

package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
	"github.com/born-ml/convnet/internal/tensor"
)

// PoolingConfig configures a Pooling layer. Zero PoolSize and Stride
// default to 2.
type PoolingConfig struct {
	InputHeight int
	InputWidth  int
	InputDepth  int
	PoolSize    int
	Stride      int
	Name        string
}

// Pooling downsamples every channel independently with a size×size
// window. Depth is preserved and there is no padding.
//
// Example:
//
//	pool, err := nn.NewPooling(nn.PoolingConfig{InputHeight: 24, InputWidth: 24, InputDepth: 20}, nn.MaxPool{})
type Pooling struct {
	base
	stateless
	fn PoolingFunction

	in, out tensor.Volume
	size    int
	x, y    []float64
}

// NewPooling creates a pooling layer. A nil function is max pooling.
func NewPooling(cfg PoolingConfig, fn PoolingFunction) (*Pooling, error) {
	const layerType = "PoolingLayer"
	if fn == nil {
		fn = MaxPool{}
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 2
	}
	if cfg.Stride == 0 {
		cfg.Stride = 2
	}

	in := tensor.Vol(cfg.InputDepth, cfg.InputHeight, cfg.InputWidth)
	if err := in.Validate(); err != nil {
		return nil, geometryError(cfg.Name, "%s: %v", layerType, err)
	}
	if cfg.PoolSize < 0 || cfg.Stride < 0 {
		return nil, geometryError(cfg.Name, "%s: pool size %d and stride %d must be positive",
			layerType, cfg.PoolSize, cfg.Stride)
	}
	out := tensor.Vol(in.Depth,
		tensor.OutputDim(in.Height, cfg.PoolSize, cfg.Stride, 0),
		tensor.OutputDim(in.Width, cfg.PoolSize, cfg.Stride, 0))
	if out.Height <= 0 || out.Width <= 0 {
		return nil, geometryError(cfg.Name, "%s: window %d does not fit input %s", layerType, cfg.PoolSize, in)
	}

	return &Pooling{
		base: newBase(cfg.Name, layerType, fn.Type(), in.Size(), out.Size(), cfg.Stride, nil),
		fn:   fn,
		in:   in,
		out:  out,
		size: cfg.PoolSize,
		x:    make([]float64, in.Size()),
		y:    make([]float64, out.Size()),
	}, nil
}

// InputVolume returns the input shape.
func (l *Pooling) InputVolume() tensor.Volume { return l.in }

// OutputVolume returns the output shape.
func (l *Pooling) OutputVolume() tensor.Volume { return l.out }

// PoolSize returns the window edge length.
func (l *Pooling) PoolSize() int { return l.size }

func (l *Pooling) channelPar() parallel.Config {
	cfg := l.par
	cfg.MinChunkSize = 1
	return cfg
}

// SetInputs copies inputs.
func (l *Pooling) SetInputs(inputs []float64) error {
	return l.loadInputs(l.x, inputs)
}

// ForwardPropagation fans out over (channel, output row) pairs.
func (l *Pooling) ForwardPropagation() {
	parallel.ForBatch(l.in.Depth, l.out.Height, func(d, oh int) {
		win := make([]float64, l.size*l.size)
		for ow := 0; ow < l.out.Width; ow++ {
			l.in.Window(l.x, d, oh*l.stride, ow*l.stride, l.size, win)
			l.y[l.out.Index(d, oh, ow)] = l.fn.F(win)
		}
	}, l.channelPar())
}

// Outputs returns a copy of the layer outputs.
func (l *Pooling) Outputs() []float64 { return clone(l.y) }

// PredictOutputs is Outputs.
func (l *Pooling) PredictOutputs() []float64 { return clone(l.y) }

// BackPropagation spreads each output error over its window with the
// weights given by the pooling derivative. Overlapping windows add up.
func (l *Pooling) BackPropagation(delta []float64) ([]float64, error) {
	if err := l.checkDelta(delta); err != nil {
		return nil, err
	}
	grad := make([]float64, l.inputSize)
	parallel.For(l.in.Depth, func(d int) {
		win := make([]float64, l.size*l.size)
		for oh := 0; oh < l.out.Height; oh++ {
			for ow := 0; ow < l.out.Width; ow++ {
				row, col := oh*l.stride, ow*l.stride
				l.in.Window(l.x, d, row, col, l.size, win)
				v := delta[l.out.Index(d, oh, ow)]
				for j, w := range l.fn.DF(win) {
					grad[l.in.Index(d, row+j/l.size, col+j%l.size)] += w * v
				}
			}
		}
	}, l.channelPar())
	return grad, nil
}

// Summary describes the layer in one line.
func (l *Pooling) Summary() string {
	return fmt.Sprintf("Inputs:%s, Outputs:%s, PoolSize:%dx%d, Stride:%d", l.in, l.out, l.size, l.size, l.stride)
}

// Dump renders the inputs or outputs as a text block.
func (l *Pooling) Dump(kind serialization.Kind) (string, error) {
	switch kind {
	case serialization.Inputs:
		return serialization.Format(kind, volumeDims(l.in), l.x), nil
	case serialization.Output:
		return serialization.Format(kind, volumeDims(l.out), l.y), nil
	default:
		return "", unsupportedDump(l.name, kind)
	}
}

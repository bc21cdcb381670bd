package nn

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
	"github.com/born-ml/convnet/internal/tensor"
)

// Convolution defaults used when a ConvolutionalConfig field is zero.
const (
	DefaultKernelSize  = 3
	DefaultOutputDepth = 32
)

// ConvolutionalConfig configures a Convolutional layer.
type ConvolutionalConfig struct {
	InputHeight int
	InputWidth  int
	InputDepth  int
	KernelSize  int // default 3
	OutputDepth int // default 32
	Stride      int // default 1
	Padding     int // zero cells added on every spatial border

	// ConnectionTable[id*OutputDepth+od] is 1 when input channel id feeds
	// output channel od. A nil or wrongly sized table connects everything.
	ConnectionTable []int

	Name    string
	Kernels []float64 // InputDepth*OutputDepth*KernelSize², pre-trained
	Biases  []float64 // OutputDepth, pre-trained
	Logger  *slog.Logger
}

func (c ConvolutionalConfig) withDefaults() ConvolutionalConfig {
	if c.KernelSize == 0 {
		c.KernelSize = DefaultKernelSize
	}
	if c.OutputDepth == 0 {
		c.OutputDepth = DefaultOutputDepth
	}
	if c.Stride == 0 {
		c.Stride = 1
	}
	return c
}

// Convolutional is a 2-D convolution over a depth×height×width volume.
//
// Output channel od is
//
//	out[od,oh,ow] = f( b[od] + Σ_id table[id,od] · Σ_u,v K[id,od][u,v] · x̂[id, oh·s+u, ow·s+v] )
//
// where x̂ is the input zero-padded by p cells. Kernel (id, od) lives at
// offset (id*OutputDepth+od)*k² of the kernel buffer.
type Convolutional struct {
	base
	act Activation

	in, padded, out tensor.Volume
	k, padding      int
	table           []int

	x   []float64 // padded inputs
	pre []float64
	e   []float64

	kernels, dk, prevDK []float64
	biases, db          []float64
}

// NewConvolutional creates a convolutional layer. A nil activation is the
// identity.
//
// Example:
//
//	conv, err := nn.NewConvolutional(nn.ConvolutionalConfig{
//		InputHeight: 28, InputWidth: 28, InputDepth: 1,
//		KernelSize: 5, OutputDepth: 20,
//	}, nn.ReLU{})
func NewConvolutional(cfg ConvolutionalConfig, act Activation) (*Convolutional, error) {
	const layerType = "ConvolutionalLayer"
	cfg = cfg.withDefaults()
	if act == nil {
		act = Identity{}
	}

	in := tensor.Vol(cfg.InputDepth, cfg.InputHeight, cfg.InputWidth)
	if err := in.Validate(); err != nil {
		return nil, geometryError(cfg.Name, "%s: %v", layerType, err)
	}
	if cfg.KernelSize < 0 || cfg.OutputDepth < 0 || cfg.Stride < 0 || cfg.Padding < 0 {
		return nil, geometryError(cfg.Name, "%s: kernel %d, depth %d, stride %d, padding %d must not be negative",
			layerType, cfg.KernelSize, cfg.OutputDepth, cfg.Stride, cfg.Padding)
	}
	out := tensor.Vol(cfg.OutputDepth,
		tensor.OutputDim(cfg.InputHeight, cfg.KernelSize, cfg.Stride, cfg.Padding),
		tensor.OutputDim(cfg.InputWidth, cfg.KernelSize, cfg.Stride, cfg.Padding))
	if out.Height <= 0 || out.Width <= 0 {
		return nil, geometryError(cfg.Name, "%s: kernel %d does not fit input %s with padding %d",
			layerType, cfg.KernelSize, in, cfg.Padding)
	}

	b := newBase(cfg.Name, layerType, act.Type(), in.Size(), out.Size(), cfg.Stride, cfg.Logger)
	l := &Convolutional{
		base:    b,
		act:     act,
		in:      in,
		padded:  in.Padded(cfg.Padding),
		out:     out,
		k:       cfg.KernelSize,
		padding: cfg.Padding,
	}
	l.table = l.connectionTable(cfg.ConnectionTable)

	kk := l.k * l.k
	size := in.Depth * out.Depth * kk
	bound := 1 / math.Sqrt(float64(in.Depth*kk))
	l.kernels = initParams(cfg.Logger, b.name, "kernels", cfg.Kernels, size, func(dst []float64) {
		uniformFill(dst, -bound, bound)
		l.maskKernels(dst)
	})
	l.biases = initParams(cfg.Logger, b.name, "biases", cfg.Biases, out.Depth, nil)
	l.dk = make([]float64, size)
	l.prevDK = make([]float64, size)
	l.db = make([]float64, out.Depth)

	l.x = make([]float64, l.padded.Size())
	l.pre = make([]float64, out.Size())
	l.e = make([]float64, out.Size())
	return l, nil
}

func (l *Convolutional) connectionTable(given []int) []int {
	n := l.in.Depth * l.out.Depth
	table := make([]int, n)
	if len(given) == n {
		copy(table, given)
		return table
	}
	if given != nil {
		l.logger.Warn("connection table has wrong size, connecting all channels",
			"layer", l.name, "size", len(given), "want", n)
	}
	for i := range table {
		table[i] = 1
	}
	return table
}

// maskKernels zeroes the kernels of unconnected channel pairs.
func (l *Convolutional) maskKernels(dst []float64) {
	kk := l.k * l.k
	for pair, on := range l.table {
		if on == 0 {
			floats.Scale(0, dst[pair*kk:(pair+1)*kk])
		}
	}
}

func (l *Convolutional) connected(id, od int) bool { return l.table[id*l.out.Depth+od] != 0 }

func (l *Convolutional) kernel(buf []float64, id, od int) []float64 {
	kk := l.k * l.k
	off := (id*l.out.Depth + od) * kk
	return buf[off : off+kk]
}

// channelPar spreads whole feature maps across workers.
func (l *Convolutional) channelPar() parallel.Config {
	cfg := l.par
	cfg.MinChunkSize = 1
	return cfg
}

// InputVolume returns the unpadded input shape.
func (l *Convolutional) InputVolume() tensor.Volume { return l.in }

// OutputVolume returns the output shape.
func (l *Convolutional) OutputVolume() tensor.Volume { return l.out }

// Padding returns the border width added to each spatial side.
func (l *Convolutional) Padding() int { return l.padding }

// KernelSize returns k.
func (l *Convolutional) KernelSize() int { return l.k }

// SetInputs copies inputs into the zero-padded input volume.
func (l *Convolutional) SetInputs(inputs []float64) error {
	if len(inputs) != l.inputSize {
		return sizeError(l.name, "inputs", l.inputSize, len(inputs))
	}
	l.in.Pad(inputs, l.x, l.padding)
	return nil
}

// ForwardPropagation convolves the padded input with every connected kernel.
func (l *Convolutional) ForwardPropagation() {
	s, k := l.stride, l.k
	parallel.For(l.out.Depth, func(od int) {
		dst := l.out.Channel(l.pre, od)
		for j := range dst {
			dst[j] = l.biases[od]
		}
		for id := 0; id < l.in.Depth; id++ {
			if !l.connected(id, od) {
				continue
			}
			kern := l.kernel(l.kernels, id, od)
			for oh := 0; oh < l.out.Height; oh++ {
				for ow := 0; ow < l.out.Width; ow++ {
					var sum float64
					for u := 0; u < k; u++ {
						row := l.padded.Index(id, oh*s+u, ow*s)
						sum += floats.Dot(kern[u*k:(u+1)*k], l.x[row:row+k])
					}
					dst[oh*l.out.Width+ow] += sum
				}
			}
		}
	}, l.channelPar())
}

// Outputs applies the activation to the pre-activation volume.
func (l *Convolutional) Outputs() []float64 { return mapActivation(l.act, l.pre) }

// PredictOutputs is Outputs.
func (l *Convolutional) PredictOutputs() []float64 { return l.Outputs() }

// BackPropagation accumulates kernel and bias gradients and returns the
// error for the unpadded input.
func (l *Convolutional) BackPropagation(delta []float64) ([]float64, error) {
	if err := l.checkDelta(delta); err != nil {
		return nil, err
	}
	s, k := l.stride, l.k
	parallel.For(len(l.e), func(j int) {
		l.e[j] = delta[j] * l.act.DF(l.pre[j])
	}, l.par)

	// Kernel and bias gradients: output channel od owns every kernel
	// (·, od) and b[od].
	parallel.For(l.out.Depth, func(od int) {
		e := l.out.Channel(l.e, od)
		l.db[od] += floats.Sum(e)
		for id := 0; id < l.in.Depth; id++ {
			if !l.connected(id, od) {
				continue
			}
			g := l.kernel(l.dk, id, od)
			for oh := 0; oh < l.out.Height; oh++ {
				for ow := 0; ow < l.out.Width; ow++ {
					v := e[oh*l.out.Width+ow]
					if v == 0 {
						continue
					}
					for u := 0; u < k; u++ {
						row := l.padded.Index(id, oh*s+u, ow*s)
						floats.AddScaled(g[u*k:(u+1)*k], v, l.x[row:row+k])
					}
				}
			}
		}
	}, l.channelPar())

	// Input gradient: input channel id scatters into its own padded
	// plane, then the border is cropped away.
	grad := make([]float64, l.inputSize)
	wp := l.padded.Width
	parallel.For(l.in.Depth, func(id int) {
		plane := make([]float64, l.padded.Area())
		for od := 0; od < l.out.Depth; od++ {
			if !l.connected(id, od) {
				continue
			}
			kern := l.kernel(l.kernels, id, od)
			e := l.out.Channel(l.e, od)
			for oh := 0; oh < l.out.Height; oh++ {
				for ow := 0; ow < l.out.Width; ow++ {
					v := e[oh*l.out.Width+ow]
					if v == 0 {
						continue
					}
					for u := 0; u < k; u++ {
						off := (oh*s+u)*wp + ow*s
						floats.AddScaled(plane[off:off+k], v, kern[u*k:(u+1)*k])
					}
				}
			}
		}
		dst := l.in.Channel(grad, id)
		for h := 0; h < l.in.Height; h++ {
			off := (h+l.padding)*wp + l.padding
			copy(dst[h*l.in.Width:(h+1)*l.in.Width], plane[off:off+l.in.Width])
		}
	}, l.channelPar())
	return grad, nil
}

// WeightUpdate steps the kernels and biases and clears their gradients.
func (l *Convolutional) WeightUpdate(opt optim.Optimizer) {
	opt.Step(l.kernels, l.dk, l.prevDK)
	opt.StepBias(l.biases, l.db)
}

// GenerateWeights redraws every connected kernel from U(lower, upper).
func (l *Convolutional) GenerateWeights(lower, upper float64) {
	uniformFill(l.kernels, lower, upper)
	l.maskKernels(l.kernels)
}

// Weights returns the kernels in (id*outDepth+od)*k² order.
func (l *Convolutional) Weights() []float64 { return clone(l.kernels) }

// Biases returns one bias per output channel.
func (l *Convolutional) Biases() []float64 { return clone(l.biases) }

// SetWeights replaces the kernels.
func (l *Convolutional) SetWeights(w []float64) error {
	if len(w) != len(l.kernels) {
		return sizeError(l.name, "kernels", len(l.kernels), len(w))
	}
	copy(l.kernels, w)
	return nil
}

// SetBiases replaces the biases.
func (l *Convolutional) SetBiases(b []float64) error {
	if len(b) != len(l.biases) {
		return sizeError(l.name, "biases", len(l.biases), len(b))
	}
	copy(l.biases, b)
	return nil
}

// Summary describes the geometry in one line.
func (l *Convolutional) Summary() string {
	return fmt.Sprintf("Inputs:%s, Outputs:%s, Kernels:%dx%dx%dx%d, Biases:%d, Stride:%d, Padding:%d",
		l.in, l.out, l.in.Depth, l.out.Depth, l.k, l.k, l.out.Depth, l.stride, l.padding)
}

// Dump renders kernels, biases, inputs or outputs as a text block.
func (l *Convolutional) Dump(kind serialization.Kind) (string, error) {
	switch kind {
	case serialization.Kernels, serialization.Weights:
		return serialization.Format(serialization.Kernels,
			[]int{l.in.Depth * l.out.Depth, l.k, l.k}, l.kernels), nil
	case serialization.Biases:
		return serialization.Format(kind, []int{l.out.Depth}, l.biases), nil
	case serialization.Inputs:
		x := make([]float64, l.inputSize)
		l.in.Crop(l.x, x, l.padding)
		return serialization.Format(kind, volumeDims(l.in), x), nil
	case serialization.PaddedInputs:
		tag := fmt.Sprintf("%s:%d", serialization.PaddedInputs, l.padding)
		return serialization.FormatTag(tag, volumeDims(l.padded), l.x), nil
	case serialization.Output:
		return serialization.Format(kind, volumeDims(l.out), l.Outputs()), nil
	default:
		return "", unsupportedDump(l.name, kind)
	}
}

func volumeDims(v tensor.Volume) []int {
	return []int{v.Depth, v.Height, v.Width}
}

// ConvolutionalBuilder assembles a ConvolutionalConfig step by step.
//
// Example:
//
//	conv, err := nn.NewConvolutionalBuilder(28, 28, 1).
//		KernelSize(5).
//		OutputDepth(20).
//		Padding(2).
//		Build(nn.ReLU{})
type ConvolutionalBuilder struct {
	cfg ConvolutionalConfig
}

// NewConvolutionalBuilder starts a builder for an h×w×d input.
func NewConvolutionalBuilder(h, w, d int) *ConvolutionalBuilder {
	return &ConvolutionalBuilder{cfg: ConvolutionalConfig{InputHeight: h, InputWidth: w, InputDepth: d}}
}

// The setters below overwrite one ConvolutionalConfig field each.
func (b *ConvolutionalBuilder) InputHeight(h int) *ConvolutionalBuilder { b.cfg.InputHeight = h; return b }
func (b *ConvolutionalBuilder) InputWidth(w int) *ConvolutionalBuilder  { b.cfg.InputWidth = w; return b }
func (b *ConvolutionalBuilder) InputDepth(d int) *ConvolutionalBuilder  { b.cfg.InputDepth = d; return b }
func (b *ConvolutionalBuilder) KernelSize(k int) *ConvolutionalBuilder  { b.cfg.KernelSize = k; return b }
func (b *ConvolutionalBuilder) OutputDepth(d int) *ConvolutionalBuilder { b.cfg.OutputDepth = d; return b }
func (b *ConvolutionalBuilder) Stride(s int) *ConvolutionalBuilder      { b.cfg.Stride = s; return b }
func (b *ConvolutionalBuilder) Padding(p int) *ConvolutionalBuilder     { b.cfg.Padding = p; return b }
func (b *ConvolutionalBuilder) Name(n string) *ConvolutionalBuilder     { b.cfg.Name = n; return b }

// ConnectionTable sets the input/output channel connection table.
func (b *ConvolutionalBuilder) ConnectionTable(t []int) *ConvolutionalBuilder {
	b.cfg.ConnectionTable = t
	return b
}

// Kernels sets initial kernels.
func (b *ConvolutionalBuilder) Kernels(k []float64) *ConvolutionalBuilder {
	b.cfg.Kernels = k
	return b
}

// Biases sets initial biases.
func (b *ConvolutionalBuilder) Biases(v []float64) *ConvolutionalBuilder {
	b.cfg.Biases = v
	return b
}

// Logger sets the layer logger.
func (b *ConvolutionalBuilder) Logger(l *slog.Logger) *ConvolutionalBuilder {
	b.cfg.Logger = l
	return b
}

// Config returns the accumulated configuration.
func (b *ConvolutionalBuilder) Config() ConvolutionalConfig { return b.cfg }

// Build creates the layer.
func (b *ConvolutionalBuilder) Build(act Activation) (*Convolutional, error) {
	return NewConvolutional(b.cfg, act)
}

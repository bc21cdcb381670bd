package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
	"github.com/born-ml/convnet/internal/tensor"
)

// ElementWiseConfig configures an ElementWise layer. Zero ElementSize and
// Stride default to 2.
type ElementWiseConfig struct {
	InputHeight int
	InputWidth  int
	InputDepth  int
	ElementSize int
	Stride      int
	Name        string
}

// ElementWise reduces groups of channels at every spatial location:
//
//	out[od,h,w] = F(x[od·s, h, w], …, x[od·s+n-1, h, w])
//
// Height and width are preserved; depth becomes (D-n)/s + 1.
type ElementWise struct {
	base
	stateless
	fn ElementWiseFunction

	in, out tensor.Volume
	n       int
	x, y    []float64
}

// NewElementWise creates an element-wise layer. A nil function is MaxOut.
func NewElementWise(cfg ElementWiseConfig, fn ElementWiseFunction) (*ElementWise, error) {
	const layerType = "ElementWiseLayer"
	if fn == nil {
		fn = MaxOut{}
	}
	if cfg.ElementSize == 0 {
		cfg.ElementSize = 2
	}
	if cfg.Stride == 0 {
		cfg.Stride = 2
	}

	in := tensor.Vol(cfg.InputDepth, cfg.InputHeight, cfg.InputWidth)
	if err := in.Validate(); err != nil {
		return nil, geometryError(cfg.Name, "%s: %v", layerType, err)
	}
	if cfg.ElementSize < 0 || cfg.Stride < 0 {
		return nil, geometryError(cfg.Name, "%s: element size %d and stride %d must be positive",
			layerType, cfg.ElementSize, cfg.Stride)
	}
	out := tensor.Vol(tensor.OutputDim(in.Depth, cfg.ElementSize, cfg.Stride, 0), in.Height, in.Width)
	if out.Depth <= 0 {
		return nil, geometryError(cfg.Name, "%s: group of %d channels does not fit depth %d",
			layerType, cfg.ElementSize, in.Depth)
	}

	return &ElementWise{
		base: newBase(cfg.Name, layerType, fn.Type(), in.Size(), out.Size(), cfg.Stride, nil),
		fn:   fn,
		in:   in,
		out:  out,
		n:    cfg.ElementSize,
		x:    make([]float64, in.Size()),
		y:    make([]float64, out.Size()),
	}, nil
}

// InputVolume returns the input shape.
func (l *ElementWise) InputVolume() tensor.Volume { return l.in }

// OutputVolume returns the output shape.
func (l *ElementWise) OutputVolume() tensor.Volume { return l.out }

// ElementSize returns the number of channels in a group.
func (l *ElementWise) ElementSize() int { return l.n }

// SetInputs copies inputs.
func (l *ElementWise) SetInputs(inputs []float64) error {
	return l.loadInputs(l.x, inputs)
}

// group copies the n channel values of group od at spatial offset pos.
func (l *ElementWise) group(od, pos int, dst []float64) []float64 {
	area := l.in.Area()
	for j := range dst {
		dst[j] = l.x[(od*l.stride+j)*area+pos]
	}
	return dst
}

// ForwardPropagation reduces every channel group at every position.
func (l *ElementWise) ForwardPropagation() {
	area := l.in.Area()
	parallel.For(area, func(pos int) {
		g := make([]float64, l.n)
		for od := 0; od < l.out.Depth; od++ {
			l.y[od*area+pos] = l.fn.F(l.group(od, pos, g))
		}
	}, l.par)
}

// Outputs returns a copy of the layer outputs.
func (l *ElementWise) Outputs() []float64 { return clone(l.y) }

// PredictOutputs is Outputs.
func (l *ElementWise) PredictOutputs() []float64 { return clone(l.y) }

// BackPropagation routes each output error to the channels of its group.
// Overlapping groups add up.
func (l *ElementWise) BackPropagation(delta []float64) ([]float64, error) {
	if err := l.checkDelta(delta); err != nil {
		return nil, err
	}
	area := l.in.Area()
	grad := make([]float64, l.inputSize)
	// Each spatial position owns one column through every channel.
	parallel.For(area, func(pos int) {
		g := make([]float64, l.n)
		for od := 0; od < l.out.Depth; od++ {
			v := delta[od*area+pos]
			for j, w := range l.fn.DF(l.group(od, pos, g)) {
				grad[(od*l.stride+j)*area+pos] += w * v
			}
		}
	}, l.par)
	return grad, nil
}

// Summary describes the layer in one line.
func (l *ElementWise) Summary() string {
	return fmt.Sprintf("Inputs:%s, Outputs:%s, ElementSize:%d, Stride:%d", l.in, l.out, l.n, l.stride)
}

// Dump renders the inputs or outputs as a text block.
func (l *ElementWise) Dump(kind serialization.Kind) (string, error) {
	switch kind {
	case serialization.Inputs:
		return serialization.Format(kind, volumeDims(l.in), l.x), nil
	case serialization.Output:
		return serialization.Format(kind, volumeDims(l.out), l.y), nil
	default:
		return "", unsupportedDump(l.name, kind)
	}
}

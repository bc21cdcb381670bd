// Package nn implements the layers, function families and network
// orchestrator of the engine.
//
// Every tensor is a flat []float64. Volumes are depth-major, then row-major
// inside each channel. Dense weights are an inputSize × outputSize matrix.
package nn

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// Layer is one stage of a feed-forward network.
//
// A layer owns its parameters, its input buffer and its gradient
// accumulators. The network drives it through a fixed cycle:
//
//	SetInputs -> ForwardPropagation -> Outputs
//	BackPropagation(δ) returns ∂E/∂inputs and accumulates ∂E/∂params
//	WeightUpdate applies the accumulated gradients and clears them
//
// Slices passed in are copied and slices returned are fresh copies, so
// callers never alias layer state.
type Layer interface {
	// Name is the user-facing label used in logs and checks.
	Name() string
	// Type is the layer family, e.g. "ConvolutionalLayer".
	Type() string
	// Variant names the activation or reduction the layer is built with.
	Variant() string
	InputSize() int
	OutputSize() int
	Stride() int

	SetInputs(inputs []float64) error
	Outputs() []float64
	// PredictOutputs is the inference-time output. It differs from
	// Outputs only for stochastic layers.
	PredictOutputs() []float64

	Weights() []float64
	Biases() []float64
	SetWeights(w []float64) error
	SetBiases(b []float64) error

	ForwardPropagation()
	BackPropagation(delta []float64) ([]float64, error)
	WeightUpdate(opt optim.Optimizer)
	GenerateWeights(lower, upper float64)

	// CheckSize reports whether the layer accepts an input of the given size.
	CheckSize(previousOutputSize int) bool
	Dump(kind serialization.Kind) (string, error)
	Summary() string
	SetParallelism(cfg parallel.Config)
}

// base carries the bookkeeping shared by every layer.
type base struct {
	name       string
	layerType  string
	variant    string
	inputSize  int
	outputSize int
	stride     int
	par        parallel.Config
	logger     *slog.Logger
}

func newBase(name, layerType, variant string, in, out, stride int, logger *slog.Logger) base {
	if name == "" {
		name = layerType
	}
	return base{
		name:       name,
		layerType:  layerType,
		variant:    variant,
		inputSize:  in,
		outputSize: out,
		stride:     stride,
		par:        parallel.DefaultConfig(),
		logger:     loggerOrDefault(logger),
	}
}

// Name returns the layer label, the layer type when none was given.
func (b *base) Name() string { return b.name }

// Type returns the layer family.
func (b *base) Type() string { return b.layerType }

// Variant returns the activation or reduction name.
func (b *base) Variant() string { return b.variant }

// InputSize returns the length of the input vector.
func (b *base) InputSize() int { return b.inputSize }

// OutputSize returns the length of the output vector.
func (b *base) OutputSize() int { return b.outputSize }

// Stride returns the step between windows or channel groups, 1 for dense layers.
func (b *base) Stride() int { return b.stride }

// CheckSize reports whether previousOutputSize equals the input size.
func (b *base) CheckSize(previousOutputSize int) bool { return b.inputSize == previousOutputSize }

// SetParallelism replaces the worker configuration.
func (b *base) SetParallelism(cfg parallel.Config) { b.par = cfg }

// loadInputs copies src into dst after a size check.
func (b *base) loadInputs(dst, src []float64) error {
	if len(src) != b.inputSize {
		return sizeError(b.name, "inputs", b.inputSize, len(src))
	}
	copy(dst, src)
	return nil
}

func (b *base) checkDelta(delta []float64) error {
	if len(delta) != b.outputSize {
		return sizeError(b.name, "delta", b.outputSize, len(delta))
	}
	return nil
}

func unsupportedDump(layer string, kind serialization.Kind) error {
	return fmt.Errorf("%s: dump %q: %w", layer, kind, serialization.ErrUnsupportedKind)
}

// stateless supplies the parameter half of Layer for layers without
// weights.
type stateless struct{}

func (stateless) Weights() []float64           { return nil }
func (stateless) Biases() []float64            { return nil }
func (stateless) WeightUpdate(optim.Optimizer) {}
func (stateless) GenerateWeights(_, _ float64) {}

func (stateless) SetWeights(w []float64) error {
	if len(w) != 0 {
		return sizeError("", "weights", 0, len(w))
	}
	return nil
}

func (stateless) SetBiases(b []float64) error {
	if len(b) != 0 {
		return sizeError("", "biases", 0, len(b))
	}
	return nil
}

func clone(s []float64) []float64 {
	return append([]float64(nil), s...)
}

func mapActivation(act Activation, pre []float64) []float64 {
	out := make([]float64, len(pre))
	for i, v := range pre {
		out[i] = act.F(v)
	}
	return out
}

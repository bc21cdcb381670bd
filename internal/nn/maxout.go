package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// Maxout is the fully connected max-out unit:
//
//	out[o] = max_i (w[i,o]·x[i] + b[i,o])
//
// Weights and biases are both in×out. The gradient of each output flows
// only through the (i, o) pair that won the max.
type Maxout struct {
	base
	inputs []float64
	out    []float64
	argmax []int

	w, dw, prevDW *mat.Dense
	b, db         *mat.Dense
}

// NewMaxout creates a max-out layer. Biases, when given, are in×out.
func NewMaxout(cfg DenseConfig) (*Maxout, error) {
	const layerType = "MaxoutLayer"
	if err := cfg.validate(layerType); err != nil {
		return nil, err
	}
	in, out := cfg.InputSize, cfg.OutputSize
	bs := newBase(cfg.Name, layerType, "Maxout", in, out, 1, cfg.Logger)
	bound := 1 / float64(in)
	w := initParams(cfg.Logger, bs.name, "weights", cfg.Weights, in*out, func(dst []float64) {
		uniformFill(dst, -bound, bound)
	})
	b := initParams(cfg.Logger, bs.name, "biases", cfg.Biases, in*out, nil)

	return &Maxout{
		base:   bs,
		inputs: make([]float64, in),
		out:    make([]float64, out),
		argmax: make([]int, out),
		w:      mat.NewDense(in, out, w),
		dw:     mat.NewDense(in, out, nil),
		prevDW: mat.NewDense(in, out, nil),
		b:      mat.NewDense(in, out, b),
		db:     mat.NewDense(in, out, nil),
	}, nil
}

// SetInputs copies inputs.
func (l *Maxout) SetInputs(inputs []float64) error {
	return l.loadInputs(l.inputs, inputs)
}

// ForwardPropagation takes max_i(w[i][o]·x[i] + b[i][o]) for every output o.
func (l *Maxout) ForwardPropagation() {
	parallel.For(l.outputSize, func(o int) {
		best, arg := math.Inf(-1), 0
		for i, x := range l.inputs {
			if v := l.w.At(i, o)*x + l.b.At(i, o); v > best {
				best, arg = v, i
			}
		}
		l.out[o], l.argmax[o] = best, arg
	}, l.par)
}

// Outputs returns a copy of the layer outputs.
func (l *Maxout) Outputs() []float64 { return clone(l.out) }

// PredictOutputs is Outputs.
func (l *Maxout) PredictOutputs() []float64 { return clone(l.out) }

// BackPropagation routes each output error to its winning input.
func (l *Maxout) BackPropagation(delta []float64) ([]float64, error) {
	if err := l.checkDelta(delta); err != nil {
		return nil, err
	}
	// Each output owns column o of the accumulators.
	dw, db := l.dw.RawMatrix(), l.db.RawMatrix()
	parallel.For(l.outputSize, func(o int) {
		i := l.argmax[o]
		db.Data[i*db.Stride+o] += delta[o]
		dw.Data[i*dw.Stride+o] += delta[o] * l.inputs[i]
	}, l.par)

	grad := make([]float64, l.inputSize)
	for o, d := range delta {
		i := l.argmax[o]
		grad[i] += l.w.At(i, o) * d
	}
	return grad, nil
}

// WeightUpdate steps the parameters with opt and clears the gradients.
func (l *Maxout) WeightUpdate(opt optim.Optimizer) {
	opt.Step(l.w.RawMatrix().Data, l.dw.RawMatrix().Data, l.prevDW.RawMatrix().Data)
	opt.StepBias(l.b.RawMatrix().Data, l.db.RawMatrix().Data)
}

// GenerateWeights redraws the weights from U(lower, upper).
func (l *Maxout) GenerateWeights(lower, upper float64) {
	uniformFill(l.w.RawMatrix().Data, lower, upper)
}

// Weights returns the in×out weight matrix row-major.
func (l *Maxout) Weights() []float64 { return clone(l.w.RawMatrix().Data) }

// Biases returns the in×out bias matrix row-major.
func (l *Maxout) Biases() []float64 { return clone(l.b.RawMatrix().Data) }

// SetWeights replaces the weights.
func (l *Maxout) SetWeights(w []float64) error {
	if len(w) != l.inputSize*l.outputSize {
		return sizeError(l.name, "weights", l.inputSize*l.outputSize, len(w))
	}
	copy(l.w.RawMatrix().Data, w)
	return nil
}

// SetBiases replaces the biases.
func (l *Maxout) SetBiases(b []float64) error {
	if len(b) != l.inputSize*l.outputSize {
		return sizeError(l.name, "biases", l.inputSize*l.outputSize, len(b))
	}
	copy(l.b.RawMatrix().Data, b)
	return nil
}

// Summary describes the layer in one line.
func (l *Maxout) Summary() string {
	return fmt.Sprintf("Inputs:%d, Outputs:%d, Weights:%dx%d, Biases:%dx%d",
		l.inputSize, l.outputSize, l.inputSize, l.outputSize, l.inputSize, l.outputSize)
}

// Dump renders a parameter, input or output block.
func (l *Maxout) Dump(kind serialization.Kind) (string, error) {
	dims := []int{l.inputSize, l.outputSize}
	switch kind {
	case serialization.Weights:
		return serialization.Format(kind, dims, l.w.RawMatrix().Data), nil
	case serialization.Biases:
		return serialization.Format(kind, dims, l.b.RawMatrix().Data), nil
	case serialization.Inputs:
		return serialization.Format(kind, []int{l.inputSize}, l.inputs), nil
	case serialization.Output:
		return serialization.Format(kind, []int{l.outputSize}, l.out), nil
	default:
		return "", unsupportedDump(l.name, kind)
	}
}

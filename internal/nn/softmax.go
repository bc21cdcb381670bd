package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// probabilityFloor is the smallest probability a Softmax layer emits.
const probabilityFloor = 1e-10

// Softmax is a fully connected layer followed by a normalized exponential.
//
// Back propagation uses the diagonal of the Jacobian, δ·y·(1-y). Paired
// with MultiCrossEntropy, whose derivative is y - t, that is the usual
// training signal for classification.
type Softmax struct {
	base
	core  *denseCore
	probs []float64
	e     []float64
}

// NewSoftmax creates a softmax layer.
func NewSoftmax(cfg DenseConfig) (*Softmax, error) {
	const layerType = "SoftmaxLayer"
	if err := cfg.validate(layerType); err != nil {
		return nil, err
	}
	b := newBase(cfg.Name, layerType, "Softmax", cfg.InputSize, cfg.OutputSize, 1, cfg.Logger)
	return &Softmax{
		base:  b,
		core:  newDenseCore(cfg, b.name),
		probs: make([]float64, cfg.OutputSize),
		e:     make([]float64, cfg.OutputSize),
	}, nil
}

// SoftmaxOf writes the probabilities of logits z into dst and returns it.
// The maximum logit is subtracted first. When a probability would fall
// under 1e-10 the vector is mixed with a uniform floor so that every entry
// is at least 1e-10 and the sum stays 1.
func SoftmaxOf(z, dst []float64) []float64 {
	m := floats.Max(z)
	for i, v := range z {
		dst[i] = math.Exp(v - m)
	}
	floats.Scale(1/floats.Sum(dst), dst)

	if floats.Min(dst) < probabilityFloor {
		n := float64(len(dst))
		floats.Scale(1-n*probabilityFloor, dst)
		floats.AddConst(probabilityFloor, dst)
	}
	return dst
}

// SetInputs copies inputs.
func (l *Softmax) SetInputs(inputs []float64) error {
	return l.loadInputs(l.core.inputs, inputs)
}

// ForwardPropagation computes softmax(x·W + b).
func (l *Softmax) ForwardPropagation() {
	l.core.affine(l.core.w, l.core.pre)
	SoftmaxOf(l.core.pre, l.probs)
}

// Outputs returns the class probabilities.
func (l *Softmax) Outputs() []float64 { return clone(l.probs) }

// PredictOutputs is Outputs.
func (l *Softmax) PredictOutputs() []float64 { return clone(l.probs) }

// BackPropagation uses the diagonal of the softmax Jacobian, y(1-y).
func (l *Softmax) BackPropagation(delta []float64) ([]float64, error) {
	if err := l.checkDelta(delta); err != nil {
		return nil, err
	}
	parallel.For(l.outputSize, func(o int) {
		y := l.probs[o]
		l.e[o] = delta[o] * y * (1 - y)
	}, l.par)
	l.core.accumulate(l.e, nil, l.par)
	return l.core.propagate(l.core.w, l.e), nil
}

// WeightUpdate steps the parameters with opt and clears the gradients.
func (l *Softmax) WeightUpdate(opt optim.Optimizer) { l.core.update(opt) }

// GenerateWeights redraws the weights from U(lower, upper).
func (l *Softmax) GenerateWeights(lower, upper float64) { l.core.generate(lower, upper) }

// Weights returns a copy of the weights.
func (l *Softmax) Weights() []float64 { return l.core.weights() }

// Biases returns a copy of the biases.
func (l *Softmax) Biases() []float64 { return l.core.biases() }

// SetWeights replaces the weights.
func (l *Softmax) SetWeights(w []float64) error { return l.core.setWeights(l.name, w) }

// SetBiases replaces the biases.
func (l *Softmax) SetBiases(b []float64) error { return l.core.setBiases(l.name, b) }

// Summary describes the layer in one line.
func (l *Softmax) Summary() string { return l.core.summary() }

// Dump renders a parameter, input or output block.
func (l *Softmax) Dump(kind serialization.Kind) (string, error) {
	return l.core.dump(l.name, kind, l.Outputs)
}

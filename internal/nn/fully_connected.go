package nn

import (
	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// FullyConnected is y = f(Wᵀ·x + b).
//
// Weights start in U(-1/in, 1/in) and biases at zero unless pre-trained
// values are supplied.
//
// Example:
//
//	fc, err := nn.NewFullyConnected(nn.DenseConfig{InputSize: 784, OutputSize: 100}, nn.Sigmoid{})
type FullyConnected struct {
	base
	core *denseCore
	act  Activation
	e    []float64
}

// NewFullyConnected creates a fully connected layer. A nil activation is
// the identity.
func NewFullyConnected(cfg DenseConfig, act Activation) (*FullyConnected, error) {
	const layerType = "FullyConnectedLayer"
	if err := cfg.validate(layerType); err != nil {
		return nil, err
	}
	if act == nil {
		act = Identity{}
	}
	b := newBase(cfg.Name, layerType, act.Type(), cfg.InputSize, cfg.OutputSize, 1, cfg.Logger)
	return &FullyConnected{
		base: b,
		core: newDenseCore(cfg, b.name),
		act:  act,
		e:    make([]float64, cfg.OutputSize),
	}, nil
}

// SetInputs copies inputs.
func (l *FullyConnected) SetInputs(inputs []float64) error {
	return l.loadInputs(l.core.inputs, inputs)
}

// ForwardPropagation computes x·W + b.
func (l *FullyConnected) ForwardPropagation() {
	l.core.affine(l.core.w, l.core.pre)
}

// Outputs returns a copy of the layer outputs.
func (l *FullyConnected) Outputs() []float64 { return mapActivation(l.act, l.core.pre) }

// PredictOutputs is Outputs.
func (l *FullyConnected) PredictOutputs() []float64 { return l.Outputs() }

// BackPropagation accumulates ∂E/∂W and ∂E/∂b and returns W·e.
func (l *FullyConnected) BackPropagation(delta []float64) ([]float64, error) {
	if err := l.checkDelta(delta); err != nil {
		return nil, err
	}
	parallel.For(l.outputSize, func(o int) {
		l.e[o] = delta[o] * l.act.DF(l.core.pre[o])
	}, l.par)
	l.core.accumulate(l.e, nil, l.par)
	return l.core.propagate(l.core.w, l.e), nil
}

// WeightUpdate steps W and b with opt.
func (l *FullyConnected) WeightUpdate(opt optim.Optimizer) { l.core.update(opt) }

// GenerateWeights redraws W from U(lower, upper).
func (l *FullyConnected) GenerateWeights(lower, upper float64) { l.core.generate(lower, upper) }

// Weights returns W row-major.
func (l *FullyConnected) Weights() []float64 { return l.core.weights() }

// Biases returns a copy of the biases.
func (l *FullyConnected) Biases() []float64 { return l.core.biases() }

// SetWeights replaces the weights.
func (l *FullyConnected) SetWeights(w []float64) error { return l.core.setWeights(l.name, w) }

// SetBiases replaces the biases.
func (l *FullyConnected) SetBiases(b []float64) error { return l.core.setBiases(l.name, b) }

// Summary describes the layer in one line.
func (l *FullyConnected) Summary() string { return l.core.summary() }

// Dump renders weights, biases, inputs or outputs as a text block.
func (l *FullyConnected) Dump(kind serialization.Kind) (string, error) {
	return l.core.dump(l.name, kind, l.Outputs)
}

package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// DropConnect is a fully connected layer whose individual connections are
// randomly removed during training.
//
// Training uses the masked weights M∘W for the forward pass, for the error
// returned to the previous layer and for the weight gradient. Prediction
// uses the full W with every output scaled by (1 - p).
type DropConnect struct {
	base
	core      *denseCore
	act       Activation
	p         float64
	mask      *mat.Dense // in×out, 1 for live connections
	effective *mat.Dense // mask ∘ W as of the last forward pass
	predict   []float64
	e         []float64
}

// NewDropConnect creates a drop-connect layer. A nil activation is the
// identity.
func NewDropConnect(cfg DropoutConfig, act Activation) (*DropConnect, error) {
	const layerType = "DropConnectLayer"
	if err := cfg.validate(layerType); err != nil {
		return nil, err
	}
	if act == nil {
		act = Identity{}
	}
	b := newBase(cfg.Name, layerType, act.Type(), cfg.InputSize, cfg.OutputSize, 1, cfg.Logger)
	l := &DropConnect{
		base:      b,
		core:      newDenseCore(cfg.DenseConfig, b.name),
		act:       act,
		mask:      mat.NewDense(cfg.InputSize, cfg.OutputSize, nil),
		effective: mat.NewDense(cfg.InputSize, cfg.OutputSize, nil),
		predict:   make([]float64, cfg.OutputSize),
		e:         make([]float64, cfg.OutputSize),
	}
	l.p = cfg.probability(&l.base)
	l.resample()
	return l, nil
}

func (l *DropConnect) resample() {
	sampleMask(l.mask.RawMatrix().Data, l.p)
	l.effective.MulElem(l.mask, l.core.w)
}

// DropProbability returns p.
func (l *DropConnect) DropProbability() float64 { return l.p }

// Mask returns the current connection mask, row-major in×out.
func (l *DropConnect) Mask() []float64 { return clone(l.mask.RawMatrix().Data) }

// SetInputs copies inputs.
func (l *DropConnect) SetInputs(inputs []float64) error {
	return l.loadInputs(l.core.inputs, inputs)
}

// ForwardPropagation computes the masked and the unmasked affine maps.
func (l *DropConnect) ForwardPropagation() {
	l.effective.MulElem(l.mask, l.core.w)
	l.core.affine(l.effective, l.core.pre)
	l.core.affine(l.core.w, l.predict)
}

// Outputs is the activation of the masked map.
func (l *DropConnect) Outputs() []float64 { return mapActivation(l.act, l.core.pre) }

// PredictOutputs is the activation of the unmasked map scaled by 1-p.
func (l *DropConnect) PredictOutputs() []float64 {
	out := mapActivation(l.act, l.predict)
	for o := range out {
		out[o] *= 1 - l.p
	}
	return out
}

// BackPropagation accumulates gradients for live connections only.
func (l *DropConnect) BackPropagation(delta []float64) ([]float64, error) {
	if err := l.checkDelta(delta); err != nil {
		return nil, err
	}
	parallel.For(l.outputSize, func(o int) {
		l.e[o] = delta[o] * l.act.DF(l.core.pre[o])
	}, l.par)
	l.core.accumulate(l.e, l.mask.RawMatrix().Data, l.par)
	return l.core.propagate(l.effective, l.e), nil
}

// WeightUpdate steps W and b, then resamples the connection mask.
func (l *DropConnect) WeightUpdate(opt optim.Optimizer) {
	l.core.update(opt)
	l.resample()
}

// GenerateWeights redraws the weights from U(lower, upper).
func (l *DropConnect) GenerateWeights(lower, upper float64) {
	l.core.generate(lower, upper)
	l.effective.MulElem(l.mask, l.core.w)
}

// Weights returns a copy of the weights.
func (l *DropConnect) Weights() []float64 { return l.core.weights() }

// Biases returns a copy of the biases.
func (l *DropConnect) Biases() []float64 { return l.core.biases() }

// SetWeights replaces W and refreshes the masked copy.
func (l *DropConnect) SetWeights(w []float64) error {
	if err := l.core.setWeights(l.name, w); err != nil {
		return err
	}
	l.effective.MulElem(l.mask, l.core.w)
	return nil
}

// SetBiases replaces the biases.
func (l *DropConnect) SetBiases(b []float64) error { return l.core.setBiases(l.name, b) }

// Summary describes the layer in one line.
func (l *DropConnect) Summary() string {
	return fmt.Sprintf("%s, DropConnectProb:%s", l.core.summary(), serialization.FormatValue(l.p))
}

// Dump renders a parameter, input or output block.
func (l *DropConnect) Dump(kind serialization.Kind) (string, error) {
	switch kind {
	case serialization.LearningOutput:
		return serialization.Format(kind, []int{l.outputSize}, l.Outputs()), nil
	case serialization.PredictOutput:
		return serialization.Format(kind, []int{l.outputSize}, l.PredictOutputs()), nil
	default:
		return l.core.dump(l.name, kind, l.Outputs)
	}
}

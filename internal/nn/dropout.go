package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// defaultDropProbability replaces an out-of-range drop probability.
const defaultDropProbability = 0.5

// DropoutConfig configures Dropout and DropConnect layers.
type DropoutConfig struct {
	DenseConfig
	// DropProbability is the chance that a unit (or connection) is
	// dropped during training. Values outside [0, 1] fall back to 0.5.
	DropProbability float64
}

func (c DropoutConfig) probability(l *base) float64 {
	p := c.DropProbability
	if math.IsNaN(p) || p < 0 || p > 1 {
		l.logger.Warn("drop probability out of range, using default",
			"layer", l.name, "probability", p, "default", defaultDropProbability)
		return defaultDropProbability
	}
	return p
}

// sampleMask fills mask with 0 for dropped entries and 1 for kept ones.
func sampleMask(mask []float64, p float64) {
	drop := distuv.Bernoulli{P: p}
	for i := range mask {
		mask[i] = 1 - drop.Rand()
	}
}

// Dropout is a fully connected layer whose output units are randomly
// silenced during training.
//
// The mask is drawn once per optimizer step, at construction and after
// every WeightUpdate. A silenced unit outputs 0 and passes no gradient.
// PredictOutputs ignores the mask and scales every unit by (1 - p).
type Dropout struct {
	base
	core *denseCore
	act  Activation
	p    float64
	mask []float64
	e    []float64
}

// NewDropout creates a dropout layer. A nil activation is the identity.
func NewDropout(cfg DropoutConfig, act Activation) (*Dropout, error) {
	const layerType = "DropOutLayer"
	if err := cfg.validate(layerType); err != nil {
		return nil, err
	}
	if act == nil {
		act = Identity{}
	}
	b := newBase(cfg.Name, layerType, act.Type(), cfg.InputSize, cfg.OutputSize, 1, cfg.Logger)
	l := &Dropout{
		base: b,
		core: newDenseCore(cfg.DenseConfig, b.name),
		act:  act,
		mask: make([]float64, cfg.OutputSize),
		e:    make([]float64, cfg.OutputSize),
	}
	l.p = cfg.probability(&l.base)
	sampleMask(l.mask, l.p)
	return l, nil
}

// DropProbability returns p.
func (l *Dropout) DropProbability() float64 { return l.p }

// Mask returns the current keep mask, 1 for live units.
func (l *Dropout) Mask() []float64 { return clone(l.mask) }

// SetInputs copies inputs.
func (l *Dropout) SetInputs(inputs []float64) error {
	return l.loadInputs(l.core.inputs, inputs)
}

// ForwardPropagation computes x·W + b. The mask is applied by Outputs.
func (l *Dropout) ForwardPropagation() {
	l.core.affine(l.core.w, l.core.pre)
}

// Outputs is the activation with dropped units zeroed.
func (l *Dropout) Outputs() []float64 {
	out := mapActivation(l.act, l.core.pre)
	for o := range out {
		out[o] *= l.mask[o]
	}
	return out
}

// PredictOutputs is the activation scaled by 1-p.
func (l *Dropout) PredictOutputs() []float64 {
	out := mapActivation(l.act, l.core.pre)
	for o := range out {
		out[o] *= 1 - l.p
	}
	return out
}

// BackPropagation passes error only through live units.
func (l *Dropout) BackPropagation(delta []float64) ([]float64, error) {
	if err := l.checkDelta(delta); err != nil {
		return nil, err
	}
	parallel.For(l.outputSize, func(o int) {
		l.e[o] = delta[o] * l.act.DF(l.core.pre[o]) * l.mask[o]
	}, l.par)
	l.core.accumulate(l.e, nil, l.par)
	return l.core.propagate(l.core.w, l.e), nil
}

// WeightUpdate steps W and b, then draws a new mask.
func (l *Dropout) WeightUpdate(opt optim.Optimizer) {
	l.core.update(opt)
	sampleMask(l.mask, l.p)
}

// GenerateWeights redraws the weights from U(lower, upper).
func (l *Dropout) GenerateWeights(lower, upper float64) { l.core.generate(lower, upper) }

// Weights returns a copy of the weights.
func (l *Dropout) Weights() []float64 { return l.core.weights() }

// Biases returns a copy of the biases.
func (l *Dropout) Biases() []float64 { return l.core.biases() }

// SetWeights replaces the weights.
func (l *Dropout) SetWeights(w []float64) error { return l.core.setWeights(l.name, w) }

// SetBiases replaces the biases.
func (l *Dropout) SetBiases(b []float64) error { return l.core.setBiases(l.name, b) }

// Summary adds the drop probability to the dense summary.
func (l *Dropout) Summary() string {
	return fmt.Sprintf("%s, DropOutProb:%s", l.core.summary(), serialization.FormatValue(l.p))
}

// Dump renders a parameter, input or output block.
func (l *Dropout) Dump(kind serialization.Kind) (string, error) {
	switch kind {
	case serialization.LearningOutput:
		return serialization.Format(kind, []int{l.outputSize}, l.Outputs()), nil
	case serialization.PredictOutput:
		return serialization.Format(kind, []int{l.outputSize}, l.PredictOutputs()), nil
	default:
		return l.core.dump(l.name, kind, l.Outputs)
	}
}

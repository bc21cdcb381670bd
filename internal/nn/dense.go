package nn

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// denseCore is the affine map shared by the fully connected family.
//
// The weight matrix is in×out so that w[i,o] connects input i to output o
// and the row-major flattening matches the "#Weights in out" dump.
type denseCore struct {
	in, out int

	inputs []float64
	pre    []float64 // W^T·x + b, before any activation

	w      *mat.Dense
	dw     *mat.Dense
	prevDW *mat.Dense
	b      []float64
	db     []float64
}

// DenseConfig configures the layers of the fully connected family.
// Weights and Biases are optional pre-trained values; a vector of the
// wrong size is logged and replaced by a fresh initialization.
type DenseConfig struct {
	InputSize  int
	OutputSize int
	Name       string
	Weights    []float64 // InputSize*OutputSize, row-major in×out
	Biases     []float64 // OutputSize
	Logger     *slog.Logger
}

func (c DenseConfig) validate(layerType string) error {
	if c.InputSize <= 0 || c.OutputSize <= 0 {
		return geometryError(c.Name, "%s: input %d, output %d: sizes must be > 0",
			layerType, c.InputSize, c.OutputSize)
	}
	return nil
}

func newDenseCore(cfg DenseConfig, name string) *denseCore {
	in, out := cfg.InputSize, cfg.OutputSize
	bound := 1 / float64(in)
	w := initParams(cfg.Logger, name, "weights", cfg.Weights, in*out, func(dst []float64) {
		uniformFill(dst, -bound, bound)
	})
	b := initParams(cfg.Logger, name, "biases", cfg.Biases, out, nil)

	return &denseCore{
		in:     in,
		out:    out,
		inputs: make([]float64, in),
		pre:    make([]float64, out),
		w:      mat.NewDense(in, out, w),
		dw:     mat.NewDense(in, out, nil),
		prevDW: mat.NewDense(in, out, nil),
		b:      b,
		db:     make([]float64, out),
	}
}

// affine computes dst = Wᵀ·x + b with the given weight matrix.
func (c *denseCore) affine(w mat.Matrix, dst []float64) {
	y := mat.NewVecDense(c.out, dst)
	y.MulVec(w.T(), mat.NewVecDense(c.in, c.inputs))
	floats.Add(dst, c.b)
}

// accumulate adds the gradients of one sample for local error e.
// mask, when non-nil, is an in×out 0/1 matrix of live connections.
func (c *denseCore) accumulate(e []float64, mask []float64, par parallel.Config) {
	dw := c.dw.RawMatrix()
	parallel.For(c.out, func(o int) {
		eo := e[o]
		c.db[o] += eo
		if eo == 0 {
			return
		}
		for i, x := range c.inputs {
			k := i*dw.Stride + o
			if mask != nil {
				dw.Data[k] += eo * x * mask[k]
				continue
			}
			dw.Data[k] += eo * x
		}
	}, par)
}

// propagate returns W·e, the error seen by the previous layer.
func (c *denseCore) propagate(w mat.Matrix, e []float64) []float64 {
	var g mat.VecDense
	g.MulVec(w, mat.NewVecDense(c.out, e))
	return g.RawVector().Data
}

func (c *denseCore) update(opt optim.Optimizer) {
	opt.Step(c.w.RawMatrix().Data, c.dw.RawMatrix().Data, c.prevDW.RawMatrix().Data)
	opt.StepBias(c.b, c.db)
}

func (c *denseCore) weights() []float64 { return clone(c.w.RawMatrix().Data) }
func (c *denseCore) biases() []float64  { return clone(c.b) }

func (c *denseCore) setWeights(name string, w []float64) error {
	if len(w) != c.in*c.out {
		return sizeError(name, "weights", c.in*c.out, len(w))
	}
	copy(c.w.RawMatrix().Data, w)
	return nil
}

func (c *denseCore) setBiases(name string, b []float64) error {
	if len(b) != c.out {
		return sizeError(name, "biases", c.out, len(b))
	}
	copy(c.b, b)
	return nil
}

func (c *denseCore) generate(lower, upper float64) {
	uniformFill(c.w.RawMatrix().Data, lower, upper)
}

// dump renders the kinds every dense layer supports. outputs supplies the
// training-time output for the "#Output" block.
func (c *denseCore) dump(name string, kind serialization.Kind, outputs func() []float64) (string, error) {
	switch kind {
	case serialization.Weights:
		return serialization.Format(kind, []int{c.in, c.out}, c.w.RawMatrix().Data), nil
	case serialization.Biases:
		return serialization.Format(kind, []int{c.out}, c.b), nil
	case serialization.Inputs:
		return serialization.Format(kind, []int{c.in}, c.inputs), nil
	case serialization.Output:
		return serialization.Format(kind, []int{c.out}, outputs()), nil
	default:
		return "", unsupportedDump(name, kind)
	}
}

func (c *denseCore) summary() string {
	return fmt.Sprintf("Inputs:%d, Outputs:%d, Weights:%dx%d, Biases:%d", c.in, c.out, c.in, c.out, c.out)
}

package nn

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// PoolingFunction reduces a spatial window of one channel to a scalar.
//
// The window is the row-major flattening of a size×size patch. DF returns
// a window-shaped weighting that redistributes one unit of upstream
// gradient back over the patch.
type PoolingFunction interface {
	F(window []float64) float64
	DF(window []float64) []float64
	Type() string
}

// ElementWiseFunction reduces the values of a group of channels taken at
// one spatial location. DF returns one weight per channel of the group.
type ElementWiseFunction interface {
	F(group []float64) float64
	DF(group []float64) []float64
	Type() string
}

// MaxPool routes the whole gradient to the arg-max cell (first on ties).
type MaxPool struct{}

func (MaxPool) F(window []float64) float64    { return floats.Max(window) }
func (MaxPool) DF(window []float64) []float64 { return oneHotMax(window) }
func (MaxPool) Type() string                  { return "Max" }

// AveragePool splits the gradient uniformly over the window.
type AveragePool struct{}

func (AveragePool) F(window []float64) float64    { return mean(window) }
func (AveragePool) DF(window []float64) []float64 { return uniformWeights(len(window)) }
func (AveragePool) Type() string                  { return "Average" }

// MaxOut keeps the largest channel of the group (first on ties).
type MaxOut struct{}

func (MaxOut) F(group []float64) float64    { return floats.Max(group) }
func (MaxOut) DF(group []float64) []float64 { return oneHotMax(group) }
func (MaxOut) Type() string                 { return "MaxOut" }

// ElementAverage averages the channels of the group.
type ElementAverage struct{}

func (ElementAverage) F(group []float64) float64    { return mean(group) }
func (ElementAverage) DF(group []float64) []float64 { return uniformWeights(len(group)) }
func (ElementAverage) Type() string                 { return "Average" }

// PoolingByName resolves "max" or "average"/"avg".
func PoolingByName(name string) (PoolingFunction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "max":
		return MaxPool{}, nil
	case "average", "avg", "mean":
		return AveragePool{}, nil
	default:
		return nil, fmt.Errorf("unknown pooling %q", name)
	}
}

// ElementWiseByName resolves "maxout"/"max" or "average"/"avg".
func ElementWiseByName(name string) (ElementWiseFunction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "maxout", "max":
		return MaxOut{}, nil
	case "average", "avg", "mean":
		return ElementAverage{}, nil
	default:
		return nil, fmt.Errorf("unknown element-wise kind %q", name)
	}
}

func mean(s []float64) float64 {
	return floats.Sum(s) / float64(len(s))
}

func oneHotMax(s []float64) []float64 {
	out := make([]float64, len(s))
	out[floats.MaxIdx(s)] = 1
	return out
}

func uniformWeights(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

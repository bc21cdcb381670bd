package nn

import (
	"fmt"
	"math"
	"strings"
)

// Loss is a per-output-unit error function. The network sums F over the
// output units of a sample and feeds DF back into the last layer.
type Loss interface {
	F(y, t float64) float64
	DF(y, t float64) float64
	Type() string
}

// logFloor keeps ln() finite when a prediction saturates at 0 or 1.
const logFloor = 1e-300

// MSE is (y-t)²/2.
//
// Example:
//
//	net := nn.NewNetwork(nn.MSE{})
type MSE struct{}

func (MSE) F(y, t float64) float64  { return (y - t) * (y - t) / 2 }
func (MSE) DF(y, t float64) float64 { return y - t }
func (MSE) Type() string            { return "MSE" }

// MultiCrossEntropy is -t·ln(y). Its derivative y-t assumes a Softmax
// layer upstream.
type MultiCrossEntropy struct{}

func (MultiCrossEntropy) F(y, t float64) float64 {
	if y == t || t == 0 {
		return 0
	}
	return -t * math.Log(math.Max(y, logFloor))
}

func (MultiCrossEntropy) DF(y, t float64) float64 { return y - t }
func (MultiCrossEntropy) Type() string            { return "MultiClassCrossEntropy" }

// BinaryCrossEntropy is -(t·ln(y) + (1-t)·ln(1-y)).
type BinaryCrossEntropy struct{}

func (BinaryCrossEntropy) F(y, t float64) float64 {
	if y == t {
		return 0
	}
	return -(t*math.Log(math.Max(y, logFloor)) + (1-t)*math.Log(math.Max(1-y, logFloor)))
}

func (BinaryCrossEntropy) DF(y, t float64) float64 { return y - t }
func (BinaryCrossEntropy) Type() string            { return "BinaryCrossEntropy" }

// LossByName resolves a case-insensitive loss name.
func LossByName(name string) (Loss, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mse":
		return MSE{}, nil
	case "cross_entropy", "crossentropy", "multi_cross_entropy", "multiclasscrossentropy":
		return MultiCrossEntropy{}, nil
	case "binary_cross_entropy", "binarycrossentropy", "bce":
		return BinaryCrossEntropy{}, nil
	default:
		return nil, fmt.Errorf("unknown loss %q", name)
	}
}

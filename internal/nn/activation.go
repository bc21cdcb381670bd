package nn

import (
	"fmt"
	"math"
	"strings"
)

// Activation is a pointwise nonlinearity.
//
// DF is the derivative with respect to the pre-activation value x, so
// layers keep their pre-activation buffer and evaluate DF on it during
// back propagation.
type Activation interface {
	F(x float64) float64
	DF(x float64) float64
	Type() string
}

// Identity is f(x) = x.
type Identity struct{}

func (Identity) F(x float64) float64  { return x }
func (Identity) DF(_ float64) float64 { return 1 }
func (Identity) Type() string         { return "Identity" }

// Sigmoid is σ(x) = 1 / (1 + exp(-x)).
type Sigmoid struct{}

func (Sigmoid) F(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func (s Sigmoid) DF(x float64) float64 {
	y := s.F(x)
	return y * (1 - y)
}

func (Sigmoid) Type() string { return "Sigmoid" }

// Tanh is the hyperbolic tangent.
type Tanh struct{}

func (Tanh) F(x float64) float64 { return math.Tanh(x) }

func (Tanh) DF(x float64) float64 {
	y := math.Tanh(x)
	return 1 - y*y
}

func (Tanh) Type() string { return "Tanh" }

// ReLU is max(0, x).
type ReLU struct{}

func (ReLU) F(x float64) float64 { return math.Max(0, x) }

func (ReLU) DF(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (ReLU) Type() string { return "ReLU" }

// leakySlope is the negative-side slope of LeakyReLU.
const leakySlope = 0.01

// LeakyReLU is x for x > 0 and 0.01·x otherwise.
type LeakyReLU struct{}

func (LeakyReLU) F(x float64) float64 {
	if x > 0 {
		return x
	}
	return leakySlope * x
}

func (LeakyReLU) DF(x float64) float64 {
	if x > 0 {
		return 1
	}
	return leakySlope
}

func (LeakyReLU) Type() string { return "LeakyReLU" }

// Softplus is ln(1 + exp(x)).
type Softplus struct{}

func (Softplus) F(x float64) float64 {
	// Avoid overflow of exp for large x.
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

func (Softplus) DF(x float64) float64 { return Sigmoid{}.F(x) }

func (Softplus) Type() string { return "Softplus" }

// ActivationByName resolves a case-insensitive activation name.
func ActivationByName(name string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identity", "linear":
		return Identity{}, nil
	case "sigmoid", "logistic":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "relu":
		return ReLU{}, nil
	case "leakyrelu", "leaky_relu", "leaky":
		return LeakyReLU{}, nil
	case "softplus":
		return Softplus{}, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

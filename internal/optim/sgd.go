package optim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SGD is gradient descent with momentum and L2 weight decay.
//
// Weight update rule:
//
//	Δw(t) = −η·∂E/∂w − η·λ·w(t−1) + μ·Δw(t−1)
//	w(t)  = w(t−1) + Δw(t)
//
// Biases take a plain gradient step: b(t) = b(t−1) − η·∂E/∂b.
type SGD struct {
	Eta    float64 // Learning rate η.
	Mu     float64 // Momentum μ.
	Lambda float64 // L2 weight-decay coefficient λ.
}

// Scaled returns a copy whose learning rate is multiplied by sqrt(batchSize).
func (s SGD) Scaled(batchSize int) SGD {
	if batchSize < 1 {
		batchSize = 1
	}
	s.Eta *= math.Sqrt(float64(batchSize))
	return s
}

// Step applies the momentum/decay rule to weights and clears grad.
// prev holds Δw(t−1) on entry and Δw(t) on return.
func (s SGD) Step(weights, grad, prev []float64) {
	checkLen("SGD.Step", weights, grad)
	checkLen("SGD.Step", weights, prev)

	floats.Scale(s.Mu, prev)
	floats.AddScaled(prev, -s.Eta, grad)
	if s.Lambda != 0 {
		floats.AddScaled(prev, -s.Eta*s.Lambda, weights)
	}
	floats.Add(weights, prev)
	zero(grad)
}

// StepBias applies b -= η·grad and clears grad.
func (s SGD) StepBias(biases, grad []float64) {
	checkLen("SGD.StepBias", biases, grad)

	floats.AddScaled(biases, -s.Eta, grad)
	zero(grad)
}

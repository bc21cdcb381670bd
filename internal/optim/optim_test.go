package optim_test

import (
	"math"
	"testing"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSGD_SimpleUpdate tests SGD without momentum or decay: w - η·g.
func TestSGD_SimpleUpdate(t *testing.T) {
	opt := optim.SGD{Eta: 0.1}

	w := []float64{2.0, -1.0}
	g := []float64{1.0, 0.5}
	prev := make([]float64, 2)

	opt.Step(w, g, prev)

	assert.InDelta(t, 1.9, w[0], 1e-12)
	assert.InDelta(t, -1.05, w[1], 1e-12)
	assert.Equal(t, []float64{0, 0}, g, "accumulator must be cleared")
	assert.InDelta(t, -0.1, prev[0], 1e-12)
}

// TestSGD_WithMomentum tests that the previous delta is re-applied.
func TestSGD_WithMomentum(t *testing.T) {
	opt := optim.SGD{Eta: 0.1, Mu: 0.9}

	w := []float64{1.0}
	prev := []float64{0}

	opt.Step(w, []float64{1.0}, prev)
	// Δw1 = -0.1, w1 = 0.9
	assert.InDelta(t, 0.9, w[0], 1e-12)

	opt.Step(w, []float64{1.0}, prev)
	// Δw2 = -0.1 + 0.9 * -0.1 = -0.19, w2 = 0.71
	assert.InDelta(t, 0.71, w[0], 1e-12)
	assert.InDelta(t, -0.19, prev[0], 1e-12)
}

// TestSGD_WeightDecay tests the −η·λ·w term.
func TestSGD_WeightDecay(t *testing.T) {
	opt := optim.SGD{Eta: 0.5, Lambda: 0.1}

	w := []float64{2.0}
	opt.Step(w, []float64{0}, []float64{0})

	// Δw = -0.5 * 0.1 * 2 = -0.1
	assert.InDelta(t, 1.9, w[0], 1e-12)
}

func TestSGD_StepBias(t *testing.T) {
	opt := optim.SGD{Eta: 0.2, Mu: 0.9, Lambda: 0.5}

	b := []float64{1.0, 0.0}
	g := []float64{1.0, -2.0}
	opt.StepBias(b, g)

	// Bias update ignores momentum and decay.
	assert.InDelta(t, 0.8, b[0], 1e-12)
	assert.InDelta(t, 0.4, b[1], 1e-12)
	assert.Equal(t, []float64{0, 0}, g)
}

func TestSGD_Scaled(t *testing.T) {
	opt := optim.SGD{Eta: 0.1, Mu: 0.5, Lambda: 0.01}

	assert.InDelta(t, 0.1, opt.Scaled(1).Eta, 1e-12)
	assert.InDelta(t, 0.1*math.Sqrt(4), opt.Scaled(4).Eta, 1e-12)
	assert.InDelta(t, 0.1, opt.Scaled(0).Eta, 1e-12)

	scaled := opt.Scaled(9)
	assert.Equal(t, opt.Mu, scaled.Mu)
	assert.Equal(t, opt.Lambda, scaled.Lambda)
	assert.InDelta(t, 0.1, opt.Eta, 1e-12, "Scaled must not mutate the receiver")
}

func TestSGD_LengthMismatchPanics(t *testing.T) {
	opt := optim.SGD{Eta: 0.1}
	require.Panics(t, func() {
		opt.Step([]float64{1, 2}, []float64{1}, []float64{0, 0})
	})
}

var _ optim.Optimizer = optim.SGD{}

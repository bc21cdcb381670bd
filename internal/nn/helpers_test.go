package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/convnet/internal/optim"
)

// ramp returns n deterministic values spread over [-1, 1].
func ramp(n int, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(float64(i)*1.7 + phase)
	}
	return out
}

// weightedSumLoss is L = Σ c_j·y_j, so ∂L/∂y = c.
func weightedSumLoss(l Layer, c []float64) func(x []float64) float64 {
	return func(x []float64) float64 {
		if err := l.SetInputs(x); err != nil {
			panic(err)
		}
		l.ForwardPropagation()
		return floats.Dot(c, l.Outputs())
	}
}

func numericGradient(f func([]float64) float64, x []float64) []float64 {
	return fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Central})
}

// checkInputGradient compares BackPropagation against central differences.
func checkInputGradient(t *testing.T, l Layer, x []float64, tol float64) {
	t.Helper()
	c := ramp(l.OutputSize(), 0.3)

	want := numericGradient(weightedSumLoss(l, c), x)

	require.NoError(t, l.SetInputs(x))
	l.ForwardPropagation()
	got, err := l.BackPropagation(c)
	require.NoError(t, err)
	require.Len(t, got, l.InputSize())
	require.Truef(t, floats.EqualApprox(want, got, tol), "input gradient\nwant %v\ngot  %v", want, got)

	// Drop the accumulated gradients.
	l.WeightUpdate(optim.SGD{})
}

// checkWeightGradient compares the accumulated weight and bias gradients,
// recovered from one η=1 update, against central differences.
func checkWeightGradient(t *testing.T, l Layer, x []float64, tol float64) {
	t.Helper()
	c := ramp(l.OutputSize(), 0.9)
	w0, b0 := l.Weights(), l.Biases()

	f := weightedSumLoss(l, c)
	wantW := numericGradient(func(w []float64) float64 {
		require.NoError(t, l.SetWeights(w))
		return f(x)
	}, w0)
	require.NoError(t, l.SetWeights(w0))
	wantB := numericGradient(func(b []float64) float64 {
		require.NoError(t, l.SetBiases(b))
		return f(x)
	}, b0)
	require.NoError(t, l.SetBiases(b0))

	require.NoError(t, l.SetInputs(x))
	l.ForwardPropagation()
	_, err := l.BackPropagation(c)
	require.NoError(t, err)
	l.WeightUpdate(optim.SGD{Eta: 1})

	gotW := make([]float64, len(w0))
	floats.SubTo(gotW, w0, l.Weights())
	gotB := make([]float64, len(b0))
	floats.SubTo(gotB, b0, l.Biases())

	require.Truef(t, floats.EqualApprox(wantW, gotW, tol), "weight gradient\nwant %v\ngot  %v", wantW, gotW)
	require.Truef(t, floats.EqualApprox(wantB, gotB, tol), "bias gradient\nwant %v\ngot  %v", wantB, gotB)
}

// checkShapes exercises the size contract shared by every layer.
func checkShapes(t *testing.T, l Layer) {
	t.Helper()
	require.NoError(t, l.SetInputs(ramp(l.InputSize(), 0)))
	l.ForwardPropagation()
	require.Len(t, l.Outputs(), l.OutputSize())
	require.Len(t, l.PredictOutputs(), l.OutputSize())

	g, err := l.BackPropagation(ramp(l.OutputSize(), 1))
	require.NoError(t, err)
	require.Len(t, g, l.InputSize())
	l.WeightUpdate(optim.SGD{})

	require.ErrorIs(t, l.SetInputs(make([]float64, l.InputSize()+1)), ErrShapeMismatch)
	_, err = l.BackPropagation(make([]float64, l.OutputSize()+1))
	require.ErrorIs(t, err, ErrShapeMismatch)
	require.ErrorIs(t, l.SetWeights(make([]float64, len(l.Weights())+1)), ErrShapeMismatch)
	require.ErrorIs(t, l.SetBiases(make([]float64, len(l.Biases())+1)), ErrShapeMismatch)
	require.True(t, l.CheckSize(l.InputSize()))
	require.False(t, l.CheckSize(l.InputSize()+1))
}

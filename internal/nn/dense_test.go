package nn

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

func workers() parallel.Config {
	return parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}
}

// TestFullyConnected_Forward tests y = Wᵀx + b with known parameters.
func TestFullyConnected_Forward(t *testing.T) {
	fc, err := NewFullyConnected(DenseConfig{
		InputSize: 2, OutputSize: 2,
		Weights: []float64{1, 2, 3, 4},
		Biases:  []float64{0.5, -1},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, fc.SetInputs([]float64{1, 1}))
	fc.ForwardPropagation()
	assert.Equal(t, []float64{4.5, 5}, fc.Outputs())
	assert.Equal(t, "Identity", fc.Variant())
	assert.Equal(t, "FullyConnectedLayer", fc.Type())
	assert.Equal(t, "Inputs:2, Outputs:2, Weights:2x2, Biases:2", fc.Summary())
}

// TestFullyConnected_DefaultInit tests the U(-1/in, 1/in) weight range.
func TestFullyConnected_DefaultInit(t *testing.T) {
	fc, err := NewFullyConnected(DenseConfig{InputSize: 8, OutputSize: 16}, Sigmoid{})
	require.NoError(t, err)

	for _, w := range fc.Weights() {
		assert.LessOrEqual(t, w, 1.0/8)
		assert.GreaterOrEqual(t, w, -1.0/8)
	}
	assert.Equal(t, make([]float64, 16), fc.Biases())
}

// TestFullyConnected_WrongSizePretrained tests that mis-sized parameters
// are logged and replaced.
func TestFullyConnected_WrongSizePretrained(t *testing.T) {
	var buf bytes.Buffer
	fc, err := NewFullyConnected(DenseConfig{
		InputSize: 2, OutputSize: 2,
		Weights: []float64{1, 2, 3},
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	}, nil)
	require.NoError(t, err)
	assert.Len(t, fc.Weights(), 4)
	assert.Contains(t, buf.String(), "wrong size")
}

func TestFullyConnected_InvalidGeometry(t *testing.T) {
	_, err := NewFullyConnected(DenseConfig{InputSize: 0, OutputSize: 2}, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestFullyConnected_Gradients(t *testing.T) {
	fc, err := NewFullyConnected(DenseConfig{InputSize: 5, OutputSize: 3}, Tanh{})
	require.NoError(t, err)
	fc.SetParallelism(workers())
	fc.GenerateWeights(-0.8, 0.8)
	require.NoError(t, fc.SetBiases([]float64{0.1, -0.2, 0.3}))

	x := ramp(5, 0.5)
	checkShapes(t, fc)
	checkInputGradient(t, fc, x, 1e-6)
	checkWeightGradient(t, fc, x, 1e-6)
}

// TestFullyConnected_UpdateLaw tests w' = w − η·g with μ = λ = 0 and the
// reset of the accumulators.
func TestFullyConnected_UpdateLaw(t *testing.T) {
	fc, err := NewFullyConnected(DenseConfig{
		InputSize: 1, OutputSize: 1, Weights: []float64{2}, Biases: []float64{1},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, fc.SetInputs([]float64{3}))
	fc.ForwardPropagation()
	_, err = fc.BackPropagation([]float64{0.5})
	require.NoError(t, err)

	fc.WeightUpdate(optim.SGD{Eta: 0.1})
	// g_w = 0.5·3, g_b = 0.5
	assert.InDelta(t, 2-0.1*1.5, fc.Weights()[0], 1e-12)
	assert.InDelta(t, 1-0.1*0.5, fc.Biases()[0], 1e-12)

	// Accumulators are cleared: a second update changes nothing.
	fc.WeightUpdate(optim.SGD{Eta: 0.1})
	assert.InDelta(t, 2-0.1*1.5, fc.Weights()[0], 1e-12)
	assert.InDelta(t, 1-0.1*0.5, fc.Biases()[0], 1e-12)
}

func TestFullyConnected_Dump(t *testing.T) {
	fc, err := NewFullyConnected(DenseConfig{
		InputSize: 2, OutputSize: 1, Weights: []float64{1, 2}, Biases: []float64{3},
	}, nil)
	require.NoError(t, err)

	s, err := fc.Dump(serialization.Weights)
	require.NoError(t, err)
	assert.Equal(t, "#Weights\n2\t1\n1\t\n2\t\n", s)

	s, err = fc.Dump(serialization.Biases)
	require.NoError(t, err)
	assert.Equal(t, "#Biases\n1\n3\t", s)

	_, err = fc.Dump(serialization.Kernels)
	assert.ErrorIs(t, err, serialization.ErrUnsupportedKind)
}

func TestSoftmaxOf(t *testing.T) {
	tests := [][]float64{
		{1, 2, 3},
		{1000, -1000, 0},
		{0, -100},
		{-5, -5, -5, -5},
	}
	for _, z := range tests {
		p := SoftmaxOf(z, make([]float64, len(z)))
		var sum float64
		for _, v := range p {
			assert.GreaterOrEqual(t, v, probabilityFloor)
			sum += v
		}
		assert.InDeltaf(t, 1.0, sum, 1e-12, "softmax(%v) = %v", z, p)
	}

	shifted := SoftmaxOf([]float64{101, 102, 103}, make([]float64, 3))
	assert.InDeltaSlice(t, SoftmaxOf([]float64{1, 2, 3}, make([]float64, 3)), shifted, 1e-12)
}

// TestSoftmax_Backward tests the δ·y·(1−y) error signal.
func TestSoftmax_Backward(t *testing.T) {
	sm, err := NewSoftmax(DenseConfig{InputSize: 2, OutputSize: 2, Weights: []float64{1, 0, 0, 1}})
	require.NoError(t, err)

	require.NoError(t, sm.SetInputs([]float64{1, 2}))
	sm.ForwardPropagation()
	y := sm.Outputs()
	assert.Greater(t, y[1], y[0])

	delta := []float64{0.3, -0.7}
	g, err := sm.BackPropagation(delta)
	require.NoError(t, err)
	// W is the identity, so the returned error is the local error itself.
	assert.InDelta(t, 0.3*y[0]*(1-y[0]), g[0], 1e-12)
	assert.InDelta(t, -0.7*y[1]*(1-y[1]), g[1], 1e-12)
	assert.Equal(t, "SoftmaxLayer", sm.Type())
	checkShapes(t, sm)
}

func TestDropout_PredictScaling(t *testing.T) {
	d, err := NewDropout(DropoutConfig{
		DenseConfig:     DenseConfig{InputSize: 2, OutputSize: 3, Weights: []float64{1, 2, 3, 4, 5, 6}},
		DropProbability: 0.25,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, d.SetInputs([]float64{1, -1}))
	d.ForwardPropagation()
	// Raw activations: [1-4, 2-5, 3-6].
	assert.InDeltaSlice(t, []float64{-3 * 0.75, -3 * 0.75, -3 * 0.75}, d.PredictOutputs(), 1e-12)

	mask := d.Mask()
	for o, y := range d.Outputs() {
		assert.InDelta(t, -3*mask[o], y, 1e-12)
	}
	assert.Equal(t, "DropOutLayer", d.Type())
	assert.True(t, strings.HasSuffix(d.Summary(), ", DropOutProb:0.25"))
}

// TestDropout_ExpectedOutput tests that the mean masked output converges
// to the predict-time output.
func TestDropout_ExpectedOutput(t *testing.T) {
	d, err := NewDropout(DropoutConfig{
		DenseConfig:     DenseConfig{InputSize: 1, OutputSize: 4, Weights: []float64{1, 2, 3, 4}},
		DropProbability: 0.4,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, d.SetInputs([]float64{1}))
	d.ForwardPropagation()

	const rounds = 20000
	mean := make([]float64, 4)
	for i := 0; i < rounds; i++ {
		for o, y := range d.Outputs() {
			mean[o] += y / rounds
		}
		d.WeightUpdate(optim.SGD{})
	}
	want := d.PredictOutputs()
	for o := range want {
		assert.InDeltaf(t, want[o], mean[o], 0.05*want[o], "unit %d", o)
	}
}

func TestDropout_Gradients(t *testing.T) {
	d, err := NewDropout(DropoutConfig{
		DenseConfig:     DenseConfig{InputSize: 4, OutputSize: 6},
		DropProbability: 0.5,
	}, Sigmoid{})
	require.NoError(t, err)
	d.GenerateWeights(-1, 1)

	x := ramp(4, 0.2)
	checkShapes(t, d)
	checkInputGradient(t, d, x, 1e-6)
	checkWeightGradient(t, d, x, 1e-6)
}

func TestDropout_InvalidProbability(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewDropout(DropoutConfig{
		DenseConfig:     DenseConfig{InputSize: 1, OutputSize: 1, Logger: slog.New(slog.NewTextHandler(&buf, nil))},
		DropProbability: 1.5,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, d.DropProbability())
	assert.Contains(t, buf.String(), "drop probability out of range")
}

func TestDropConnect_Predict(t *testing.T) {
	dc, err := NewDropConnect(DropoutConfig{
		DenseConfig:     DenseConfig{InputSize: 2, OutputSize: 2, Weights: []float64{1, 2, 3, 4}, Biases: []float64{1, 1}},
		DropProbability: 0.5,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, dc.SetInputs([]float64{1, 1}))
	dc.ForwardPropagation()
	assert.InDeltaSlice(t, []float64{5 * 0.5, 7 * 0.5}, dc.PredictOutputs(), 1e-12)

	// Training output uses only the live connections.
	m := dc.Mask()
	want := []float64{1 + m[0]*1 + m[2]*3, 1 + m[1]*2 + m[3]*4}
	assert.InDeltaSlice(t, want, dc.Outputs(), 1e-12)
	assert.True(t, strings.HasSuffix(dc.Summary(), ", DropConnectProb:0.5"))
}

func TestDropConnect_Gradients(t *testing.T) {
	dc, err := NewDropConnect(DropoutConfig{
		DenseConfig:     DenseConfig{InputSize: 5, OutputSize: 4},
		DropProbability: 0.3,
	}, Tanh{})
	require.NoError(t, err)
	dc.SetParallelism(workers())
	dc.GenerateWeights(-1, 1)

	x := ramp(5, 1.1)
	checkShapes(t, dc)
	checkInputGradient(t, dc, x, 1e-6)
	checkWeightGradient(t, dc, x, 1e-6)
}

func TestDropConnect_ResamplesAfterUpdate(t *testing.T) {
	dc, err := NewDropConnect(DropoutConfig{
		DenseConfig:     DenseConfig{InputSize: 8, OutputSize: 8},
		DropProbability: 0.5,
	}, nil)
	require.NoError(t, err)

	before := dc.Mask()
	dc.WeightUpdate(optim.SGD{})
	assert.NotEqual(t, before, dc.Mask())
}

// TestMaxout tests forward selection and gradient routing.
func TestMaxout(t *testing.T) {
	m, err := NewMaxout(DenseConfig{InputSize: 2, OutputSize: 1, Weights: []float64{2, 1}})
	require.NoError(t, err)

	require.NoError(t, m.SetInputs([]float64{1, 3}))
	m.ForwardPropagation()
	assert.Equal(t, []float64{3}, m.Outputs())

	g, err := m.BackPropagation([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2}, g)

	m.WeightUpdate(optim.SGD{Eta: 1})
	assert.Equal(t, []float64{2, -5}, m.Weights())
	assert.Equal(t, []float64{0, -2}, m.Biases())
	assert.Equal(t, "Inputs:2, Outputs:1, Weights:2x1, Biases:2x1", m.Summary())
	checkShapes(t, m)
}

package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/serialization"
	"github.com/born-ml/convnet/internal/tensor"
)

// TestPooling_MaxLaw tests 2×2/2 max pooling of a 4×4 channel and the
// routing of the gradient to the quadrant's arg-max.
func TestPooling_MaxLaw(t *testing.T) {
	pool, err := NewPooling(PoolingConfig{InputHeight: 4, InputWidth: 4, InputDepth: 1}, MaxPool{})
	require.NoError(t, err)
	assert.Equal(t, tensor.Vol(1, 2, 2), pool.OutputVolume())

	x := []float64{
		1, 7, 2, 0,
		3, 4, 9, 1,
		5, 2, 6, 8,
		0, 1, 3, 4,
	}
	require.NoError(t, pool.SetInputs(x))
	pool.ForwardPropagation()
	assert.Equal(t, []float64{7, 9, 5, 8}, pool.Outputs())

	g, err := pool.BackPropagation([]float64{1, 0, 0, 0})
	require.NoError(t, err)
	want := make([]float64, 16)
	want[1] = 1
	assert.Equal(t, want, g)
}

func TestPooling_Average(t *testing.T) {
	pool, err := NewPooling(PoolingConfig{InputHeight: 2, InputWidth: 2, InputDepth: 2}, AveragePool{})
	require.NoError(t, err)
	assert.Equal(t, "Average", pool.Variant())

	require.NoError(t, pool.SetInputs([]float64{1, 2, 3, 4, 10, 10, 10, 30}))
	pool.ForwardPropagation()
	assert.Equal(t, []float64{2.5, 15}, pool.Outputs())

	g, err := pool.BackPropagation([]float64{4, 8})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 2, 2, 2, 2}, g)
}

// TestPooling_OverlappingGradients tests that overlapping windows sum.
func TestPooling_OverlappingGradients(t *testing.T) {
	for _, fn := range []PoolingFunction{AveragePool{}, MaxPool{}} {
		t.Run(fn.Type(), func(t *testing.T) {
			pool, err := NewPooling(PoolingConfig{
				InputHeight: 5, InputWidth: 5, InputDepth: 3, PoolSize: 3, Stride: 1,
			}, fn)
			require.NoError(t, err)
			pool.SetParallelism(workers())

			checkShapes(t, pool)
			checkInputGradient(t, pool, ramp(pool.InputSize(), 0.25), 1e-6)
		})
	}
}

func TestPooling_Defaults(t *testing.T) {
	pool, err := NewPooling(PoolingConfig{InputHeight: 24, InputWidth: 24, InputDepth: 20}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pool.PoolSize())
	assert.Equal(t, 2, pool.Stride())
	assert.Equal(t, "Max", pool.Variant())
	assert.Equal(t, "Inputs:24x24x20, Outputs:12x12x20, PoolSize:2x2, Stride:2", pool.Summary())
	assert.Nil(t, pool.Weights())

	_, err = NewPooling(PoolingConfig{InputHeight: 1, InputWidth: 1, InputDepth: 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestPooling_Dump(t *testing.T) {
	pool, err := NewPooling(PoolingConfig{InputHeight: 2, InputWidth: 2, InputDepth: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, pool.SetInputs([]float64{1, 2, 3, 4}))
	pool.ForwardPropagation()

	s, err := pool.Dump(serialization.Output)
	require.NoError(t, err)
	assert.Equal(t, "#Output\n1\t1\t1\n4\t\n\n", s)

	_, err = pool.Dump(serialization.Weights)
	assert.ErrorIs(t, err, serialization.ErrUnsupportedKind)
}

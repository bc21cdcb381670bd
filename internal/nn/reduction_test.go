package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxPool_FirstMaxWins(t *testing.T) {
	w := []float64{1, 4, 4, 2}
	assert.Equal(t, 4.0, MaxPool{}.F(w))
	assert.Equal(t, []float64{0, 1, 0, 0}, MaxPool{}.DF(w))
}

func TestAveragePool(t *testing.T) {
	w := []float64{1, 2, 3, 6}
	assert.InDelta(t, 3.0, AveragePool{}.F(w), 1e-12)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, AveragePool{}.DF(w))
}

func TestElementWiseFunctions(t *testing.T) {
	assert.Equal(t, 5.0, MaxOut{}.F([]float64{3, 5}))
	assert.Equal(t, []float64{0, 1}, MaxOut{}.DF([]float64{3, 5}))
	assert.InDelta(t, 4.0, ElementAverage{}.F([]float64{3, 5}), 1e-12)
	assert.Equal(t, []float64{0.5, 0.5}, ElementAverage{}.DF([]float64{3, 5}))
}

func TestByName(t *testing.T) {
	p, err := PoolingByName("avg")
	require.NoError(t, err)
	assert.Equal(t, "Average", p.Type())
	_, err = PoolingByName("median")
	assert.Error(t, err)

	e, err := ElementWiseByName("maxout")
	require.NoError(t, err)
	assert.Equal(t, "MaxOut", e.Type())
	_, err = ElementWiseByName("sum")
	assert.Error(t, err)
}

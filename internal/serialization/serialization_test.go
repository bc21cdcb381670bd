package serialization

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_OneDimensional(t *testing.T) {
	got := Format(Biases, []int{3}, []float64{0.5, -1, 2})
	assert.Equal(t, "#Biases\n3\n0.5\t-1\t2\t", got)
}

func TestFormat_TwoDimensional(t *testing.T) {
	got := Format(Weights, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, "#Weights\n2\t3\n1\t2\t3\t\n4\t5\t6\t\n", got)
}

func TestFormat_ThreeDimensional(t *testing.T) {
	got := Format(Kernels, []int{2, 1, 2}, []float64{1, 2, 3, 4})
	assert.Equal(t, "#Kernels\n2\t1\t2\n1\t2\t\n\n3\t4\t\n\n", got)
}

func TestFormatTag(t *testing.T) {
	got := FormatTag(string(PaddedInputs)+":1", []int{1}, []float64{0})
	assert.True(t, strings.HasPrefix(got, "#Inputs with padding:1\n1\n"))
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		dims   []int
		values []float64
	}{
		{"biases", Biases, []int{4}, []float64{0, 0.25, -3.5, 1e-12}},
		{"weights", Weights, []int{2, 2}, []float64{1.5, -2, 0.125, 7}},
		{"kernels", Kernels, []int{2, 2, 2}, []float64{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Format(tt.kind, tt.dims, tt.values)
			kind, values, err := Parse(strings.NewReader(text))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.values, values)
		})
	}
}

func TestParse_AcceptsCRLF(t *testing.T) {
	kind, values, err := Parse(strings.NewReader("#Biases\r\n2\r\n1\t2\t\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Biases, kind)
	assert.Equal(t, []float64{1, 2}, values)
}

func TestParse_RejectsUnknownTag(t *testing.T) {
	for _, header := range []string{"#Output", "#Inputs", "Weights", ""} {
		_, _, err := Parse(strings.NewReader(header + "\n1\n1\t"))
		require.Errorf(t, err, "header %q", header)
		assert.True(t, errors.Is(err, ErrFormat))
	}
}

func TestParse_RejectsBadDimensions(t *testing.T) {
	for _, dims := range []string{"", "a", "1\t2\t3\t4", "0", "-2"} {
		_, _, err := Parse(strings.NewReader("#Weights\n" + dims + "\n1\t"))
		require.Errorf(t, err, "dims %q", dims)
		assert.ErrorIs(t, err, ErrFormat)
	}
}

func TestParse_RejectsCountMismatch(t *testing.T) {
	_, _, err := Parse(strings.NewReader("#Weights\n2\t2\n1\t2\t\n3\t\n"))
	assert.ErrorIs(t, err, ErrFormat)

	_, _, err = Parse(strings.NewReader("#Biases\n1\n1\t2\t"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fc_weight.txt")
	require.NoError(t, os.WriteFile(path, []byte(Format(Weights, []int{1, 2}, []float64{3, 4})), 0o600))

	kind, values, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Weights, kind)
	assert.Equal(t, []float64{3, 4}, values)

	_, _, err = LoadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

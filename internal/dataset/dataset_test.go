package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/parallel"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_LabelMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "in/a.txt", "1\t2\t3\t\n")
	writeFile(t, dir, "in/b.txt", "4\t5\t6\n")
	list := writeFile(t, dir, "train.txt", "data\tlabel\n2\t3\nin/a.txt\t2\nin/b.txt\t0\n")

	set, err := Load(list, Options{Parallelism: parallel.DefaultConfig()})
	require.NoError(t, err)
	assert.Equal(t, LabelMode, set.Mode)
	assert.Equal(t, 3, set.Classes)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, set.Inputs)
	assert.Equal(t, [][]float64{{0, 0, 1}, {1, 0, 0}}, set.Outputs)

	s := set.Samples()
	assert.Equal(t, set.Inputs, s.Inputs)
	assert.Equal(t, set.Outputs, s.Labels)
}

func TestLoad_DataMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.txt", "0.5\t-1\n")
	writeFile(t, dir, "y.txt", "2\t4\t8\n")
	list := writeFile(t, dir, "list.txt", "data\tdata\r\n1\t3\r\nx.txt\ty.txt\r\n")

	set, err := Load(list, Options{})
	require.NoError(t, err)
	assert.Equal(t, DataMode, set.Mode)
	assert.Equal(t, [][]float64{{0.5, -1}}, set.Inputs)
	assert.Equal(t, [][]float64{{2, 4, 8}}, set.Outputs)
}

func TestLoad_Normalization(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.txt", "3\t5\n")
	writeFile(t, dir, "y.txt", "10\n")
	writeFile(t, dir, "in_stats.txt", "1\t5\n2\t0\n")
	writeFile(t, dir, "out_stats.txt", "4\n3\n")
	list := writeFile(t, dir, "list.txt", "data\tdata\n1\t1\nx.txt\ty.txt\n")

	set, err := Load(list, Options{
		InputStats:  filepath.Join(dir, "in_stats.txt"),
		OutputStats: filepath.Join(dir, "out_stats.txt"),
	})
	require.NoError(t, err)
	// (3-1)/2 and (5-5)/1 with the zero std replaced by 1.
	assert.Equal(t, []float64{1, 0}, set.Inputs[0])
	assert.Equal(t, []float64{2}, set.Outputs[0])
}

func TestLoad_Shuffle(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	sb.WriteString("data\tlabel\n50\t50\n")
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("v/%02d.txt", i)
		writeFile(t, dir, name, strings.Repeat("1\t", i+1))
		fmt.Fprintf(&sb, "%s\t%d\n", name, i)
	}
	list := writeFile(t, dir, "list.txt", sb.String())

	set, err := Load(list, Options{Shuffle: true})
	require.NoError(t, err)
	inOrder := true
	for i := range set.Inputs {
		// Input length and label stay paired.
		require.Len(t, set.Inputs[i], indexOf(set.Outputs[i])+1)
		if indexOf(set.Outputs[i]) != i {
			inOrder = false
		}
	}
	assert.False(t, inOrder, "50 samples should not survive a shuffle in order")
}

func indexOf(oneHot []float64) int {
	for i, v := range oneHot {
		if v == 1 {
			return i
		}
	}
	return -1
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.txt", "1\t2\n")
	writeFile(t, dir, "bad.txt", "1\tx\n")

	tests := map[string]string{
		"bad header":     "data\tvalues\n1\t2\nx.txt\t0\n",
		"no counts":      "data\tlabel\n",
		"bad counts":     "data\tlabel\nmany\t2\nx.txt\t0\n",
		"no classes":     "data\tlabel\n1\nx.txt\t0\n",
		"count mismatch": "data\tlabel\n2\t2\nx.txt\t0\n",
		"one column":     "data\tlabel\n1\t2\nx.txt\n",
		"label range":    "data\tlabel\n1\t2\nx.txt\t2\n",
		"bad vector":     "data\tlabel\n1\t2\nbad.txt\t0\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			list := writeFile(t, dir, "list.txt", content)
			_, err := Load(list, Options{})
			assert.ErrorIs(t, err, ErrFormat)
		})
	}

	list := writeFile(t, dir, "missing.txt", "data\tlabel\n1\t2\nnope.txt\t0\n")
	_, err := Load(list, Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadStats_Mismatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stats.txt", "1\t2\n1\n")
	_, err := ReadStats(path)
	assert.ErrorIs(t, err, ErrFormat)

	st := Stats{Mean: []float64{0}, Std: []float64{1}}
	assert.ErrorIs(t, st.Normalize([][]float64{{1, 2}}), ErrFormat)
}

package loader_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/loader"
	"github.com/born-ml/convnet/nn"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoadAndTrain tests the config, dataset and parameter loaders together.
func TestLoadAndTrain(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.txt", "0\t1\n")
	write(t, dir, "b.txt", "1\t0\n")
	list := write(t, dir, "train.txt", "data\tlabel\n2\t2\na.txt\t0\nb.txt\t1\n")
	write(t, dir, "out_bias.txt", "#Biases\n2\n0.5\t-0.5\t\n")
	cfgPath := write(t, dir, "net.yaml", `
network:
  loss: mse
  layers:
    - type: fully_connected
      name: out
      inputs: 2
      outputs: 2
      activation: sigmoid
      biases_file: out_bias.txt
training:
  epochs: 2
  learning_rate: 0.1
`)

	cfg, err := loader.LoadConfig(cfgPath)
	require.NoError(t, err)
	net, err := loader.BuildNetwork(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5}, net.Layer(0).Biases())

	set, err := loader.LoadDataset(list, loader.DatasetOptions{})
	require.NoError(t, err)
	assert.Equal(t, loader.LabelMode, set.Mode)
	require.NoError(t, net.Train(context.Background(), set.Samples(), nn.Samples{}, cfg.TrainConfig()))

	kind, values, err := loader.LoadParameters(filepath.Join(dir, "out_bias.txt"))
	require.NoError(t, err)
	assert.Equal(t, nn.DumpBiases, kind)
	assert.Len(t, values, 2)
}

// TestLoadDataset_DataMode tests a list whose second column names target
// vector files.
func TestLoadDataset_DataMode(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "x1.txt", "1\t2\n")
	write(t, dir, "x2.txt", "3\t4\n")
	write(t, dir, "y1.txt", "0.5\t0.25\t0\n")
	write(t, dir, "y2.txt", "1\t0\t-1\n")
	list := write(t, dir, "list.txt", "data\tdata\n2\t3\nx1.txt\ty1.txt\nx2.txt\ty2.txt\n")

	set, err := loader.LoadDataset(list, loader.DatasetOptions{})
	require.NoError(t, err)
	assert.Equal(t, loader.DataMode, set.Mode)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, set.Inputs)
	assert.Equal(t, [][]float64{{0.5, 0.25, 0}, {1, 0, -1}}, set.Outputs)

	set, err = loader.LoadDataset(write(t, dir, "labels.txt", "data\tlabel\n1\t3\nx1.txt\t2\n"), loader.DatasetOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0, 1}}, set.Outputs)
}

// Package loader provides file loading for the convnet engine.
//
// This package wraps internal loader implementations and exports a clean public API
// for reading training lists, experiment configurations and parameter dumps.
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/convnet/loader"
//	)
//
//	// Build the network described by a YAML file
//	cfg, err := loader.LoadConfig("lenet.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	net, err := loader.BuildNetwork(cfg, slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load a training list
//	train, err := loader.LoadDataset("data/train.txt", loader.DatasetOptions{Shuffle: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = net.Train(ctx, train.Samples(), nn.Samples{}, cfg.TrainConfig())
package loader

import (
	"io"
	"log/slog"

	"github.com/born-ml/convnet/internal/config"
	"github.com/born-ml/convnet/internal/dataset"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/serialization"
)

// Dataset is a loaded list of samples.
type Dataset = dataset.Set

// DatasetOptions controls LoadDataset.
type DatasetOptions = dataset.Options

// DatasetMode tells whether targets are class labels or vectors.
type DatasetMode = dataset.Mode

// Supported list modes.
const (
	LabelMode DatasetMode = dataset.LabelMode
	DataMode  DatasetMode = dataset.DataMode
)

// LoadDataset reads a training or test list.
//
// The list is tab separated. Line 1 is "data\tlabel" or "data\tdata".
// Line 2 is "<samples>\t<classes>" in label mode or
// "<samples>\t<output length>" in data mode. Each following line names an
// input vector file and either a class index or a target vector file.
// Relative paths resolve against the list's directory.
func LoadDataset(path string, opts DatasetOptions) (*Dataset, error) {
	return dataset.Load(path, opts)
}

// Config is an experiment configuration: network definition and training
// hyperparameters.
type Config = config.Config

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig reads and validates a YAML configuration from r.
func ParseConfig(r io.Reader) (*Config, error) {
	return config.Parse(r)
}

// BuildNetwork constructs the network described by cfg, loading any
// pre-trained parameter files it names.
func BuildNetwork(cfg *Config, logger *slog.Logger) (*nn.Network, error) {
	return config.Build(cfg, logger)
}

// LoadParameters reads a #Kernels, #Weights or #Biases dump and returns its
// kind and values.
func LoadParameters(path string) (serialization.Kind, []float64, error) {
	return serialization.LoadFile(path)
}

// ParseParameters is LoadParameters for an open reader.
func ParseParameters(r io.Reader) (serialization.Kind, []float64, error) {
	return serialization.Parse(r)
}

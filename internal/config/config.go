// Package config loads YAML experiment files and builds networks from them.
//
// Example file:
//
//	network:
//	  loss: cross_entropy
//	  layers:
//	    - type: convolutional
//	      name: conv1
//	      activation: relu
//	      input: {height: 28, width: 28, depth: 1}
//	      kernel_size: 5
//	      output_depth: 20
//	    - type: pooling
//	      pooling: max
//	    - type: fully_connected
//	      outputs: 100
//	      activation: sigmoid
//	    - type: softmax
//	      outputs: 10
//	training:
//	  batch_size: 32
//	  epochs: 10
//	  learning_rate: 0.01
//	  momentum: 0.9
//
// Input shapes may be omitted after the first layer; they are taken from
// the previous layer's output.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/parallel"
)

// Config is a whole experiment.
type Config struct {
	Network  NetworkConfig  `yaml:"network"`
	Training TrainingConfig `yaml:"training"`
	Parallel ParallelConfig `yaml:"parallel"`

	// BaseDir resolves relative parameter file paths. Load sets it to the
	// directory of the config file.
	BaseDir string `yaml:"-"`
}

// NetworkConfig describes the layer stack.
type NetworkConfig struct {
	Loss   string        `yaml:"loss"`
	Layers []LayerConfig `yaml:"layers"`
}

// Shape is a depth×height×width volume.
type Shape struct {
	Height int `yaml:"height"`
	Width  int `yaml:"width"`
	Depth  int `yaml:"depth"`
}

// LayerConfig describes one layer. Fields that do not apply to Type are
// ignored.
type LayerConfig struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`

	// Activation for convolutional, fully_connected, dropout, dropconnect.
	Activation string `yaml:"activation"`
	// Pooling is "max" or "average".
	Pooling string `yaml:"pooling"`
	// Kind is the element-wise reduction, "maxout" or "average".
	Kind string `yaml:"kind"`

	// Spatial layers.
	Input           *Shape `yaml:"input"`
	KernelSize      int    `yaml:"kernel_size"`
	OutputDepth     int    `yaml:"output_depth"`
	Stride          int    `yaml:"stride"`
	Padding         int    `yaml:"padding"`
	ConnectionTable []int  `yaml:"connection_table"`
	PoolSize        int    `yaml:"pool_size"`
	ElementSize     int    `yaml:"element_size"`

	// Dense layers.
	Inputs          int      `yaml:"inputs"`
	Outputs         int      `yaml:"outputs"`
	DropProbability *float64 `yaml:"drop_probability"`

	// Pre-trained parameters in the export format.
	WeightsFile string `yaml:"weights_file"`
	BiasesFile  string `yaml:"biases_file"`
}

// TrainingConfig holds the hyperparameters of nn.TrainConfig.
type TrainingConfig struct {
	BatchSize    int     `yaml:"batch_size"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	Momentum     float64 `yaml:"momentum"`
	L2           float64 `yaml:"l2"`
	DecayRatio   float64 `yaml:"decay_ratio"`
	Shuffle      bool    `yaml:"shuffle"`
}

// ParallelConfig controls the layer worker pool.
type ParallelConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"` // 0 means one per CPU
}

// Default returns the hyperparameters used when a file leaves them out.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{Loss: "mse"},
		Training: TrainingConfig{
			BatchSize:    1,
			Epochs:       1,
			LearningRate: 0.01,
		},
		Parallel: ParallelConfig{Enabled: true},
	}
}

// Load reads a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	cfg.BaseDir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes a config over the defaults. Unknown keys are errors.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts of the config that do not need layer
// construction.
func (c *Config) Validate() error {
	if len(c.Network.Layers) == 0 {
		return errors.New("network: no layers")
	}
	if _, err := nn.LossByName(c.Network.Loss); err != nil {
		return errors.Wrap(err, "network")
	}
	if c.Training.Epochs < 0 {
		return errors.Errorf("training: epochs %d must not be negative", c.Training.Epochs)
	}
	if c.Training.LearningRate < 0 {
		return errors.Errorf("training: learning rate %v must not be negative", c.Training.LearningRate)
	}
	return nil
}

// TrainConfig converts the training section. Callbacks are left to the
// caller.
func (c *Config) TrainConfig() nn.TrainConfig {
	t := c.Training
	return nn.TrainConfig{
		BatchSize:    t.BatchSize,
		Epochs:       t.Epochs,
		LearningRate: t.LearningRate,
		Momentum:     t.Momentum,
		L2:           t.L2,
		DecayRatio:   t.DecayRatio,
		Shuffle:      t.Shuffle,
	}
}

// ParallelismConfig converts the parallel section.
func (c *Config) ParallelismConfig() parallel.Config {
	if !c.Parallel.Enabled {
		return parallel.Sequential()
	}
	cfg := parallel.DefaultConfig()
	if c.Parallel.Workers > 0 {
		cfg.NumWorkers = c.Parallel.Workers
	}
	cfg.Enabled = cfg.NumWorkers > 1
	return cfg
}

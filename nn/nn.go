// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"log/slog"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// Layer is the contract shared by every layer of a Network.
type Layer = nn.Layer

// Network is an ordered stack of layers trained with SGD.
type Network = nn.Network

// Option configures a Network at construction.
type Option = nn.Option

// NewNetwork creates an empty network. A nil loss selects MSE.
//
// Example:
//
//	net := nn.NewNetwork(nn.MultiCrossEntropy{}, nn.WithLogger(logger))
func NewNetwork(loss Loss, opts ...Option) *Network {
	return nn.NewNetwork(loss, opts...)
}

// WithLogger sets the logger used for training progress and warnings.
func WithLogger(l *slog.Logger) Option {
	return nn.WithLogger(l)
}

// WithParallelism applies a worker configuration to every added layer.
func WithParallelism(cfg ParallelConfig) Option {
	return nn.WithParallelism(cfg)
}

// ParallelConfig controls how layers fan work out to goroutines.
type ParallelConfig = parallel.Config

// DefaultParallelism uses one worker per CPU.
func DefaultParallelism() ParallelConfig {
	return parallel.DefaultConfig()
}

// Sequential disables goroutine fan-out.
func Sequential() ParallelConfig {
	return parallel.Sequential()
}

// Training

// Samples pairs input vectors with target vectors.
type Samples = nn.Samples

// TrainConfig holds the hyperparameters and callbacks of Network.Train.
type TrainConfig = nn.TrainConfig

// EpochStats is passed to TrainConfig.OnEpoch after every epoch.
type EpochStats = nn.EpochStats

// Evaluation summarizes a pass over a labelled sample set.
type Evaluation = nn.Evaluation

// Mode is the batching mode derived from the batch size.
type Mode = nn.Mode

// Batching modes.
const (
	Online    Mode = nn.Online
	MiniBatch Mode = nn.MiniBatch
	FullBatch Mode = nn.FullBatch
)

// ResolveMode returns the batching mode and effective batch size for a
// requested batch size over n samples.
func ResolveMode(batchSize, n int) (Mode, int) {
	return nn.ResolveMode(batchSize, n)
}

// Errors

// Common errors.
var (
	ErrShapeMismatch   = nn.ErrShapeMismatch
	ErrInvalidGeometry = nn.ErrInvalidGeometry
	ErrEmptyNetwork    = nn.ErrEmptyNetwork
	ErrNoData          = nn.ErrNoData
	ErrDiverged        = nn.ErrDiverged
)

// Dumps

// DumpKind selects the block written by Layer.Dump and Network.Dump.
type DumpKind = serialization.Kind

// Dump kinds.
const (
	DumpKernels        DumpKind = serialization.Kernels
	DumpWeights        DumpKind = serialization.Weights
	DumpBiases         DumpKind = serialization.Biases
	DumpInputs         DumpKind = serialization.Inputs
	DumpPaddedInputs   DumpKind = serialization.PaddedInputs
	DumpOutput         DumpKind = serialization.Output
	DumpLearningOutput DumpKind = serialization.LearningOutput
	DumpPredictOutput  DumpKind = serialization.PredictOutput
)

// Activations

// Activation is an element-wise nonlinearity and its derivative.
type Activation = nn.Activation

// Activation functions.
type (
	Identity  = nn.Identity
	Sigmoid   = nn.Sigmoid
	Tanh      = nn.Tanh
	ReLU      = nn.ReLU
	LeakyReLU = nn.LeakyReLU
	Softplus  = nn.Softplus
)

// ActivationByName resolves an activation from its configuration name.
func ActivationByName(name string) (Activation, error) {
	return nn.ActivationByName(name)
}

// Reductions

// PoolingFunction reduces a pooling window to one value.
type PoolingFunction = nn.PoolingFunction

// ElementWiseFunction reduces a group of channels to one value.
type ElementWiseFunction = nn.ElementWiseFunction

// Pooling and element-wise reductions.
type (
	MaxPool        = nn.MaxPool
	AveragePool    = nn.AveragePool
	MaxOut         = nn.MaxOut
	ElementAverage = nn.ElementAverage
)

// PoolingByName resolves a pooling function from its configuration name.
func PoolingByName(name string) (PoolingFunction, error) {
	return nn.PoolingByName(name)
}

// ElementWiseByName resolves an element-wise function from its configuration name.
func ElementWiseByName(name string) (ElementWiseFunction, error) {
	return nn.ElementWiseByName(name)
}

// Losses

// Loss is a per-element loss and its derivative.
type Loss = nn.Loss

// Loss functions.
type (
	MSE                = nn.MSE
	MultiCrossEntropy  = nn.MultiCrossEntropy
	BinaryCrossEntropy = nn.BinaryCrossEntropy
)

// LossByName resolves a loss from its configuration name.
func LossByName(name string) (Loss, error) {
	return nn.LossByName(name)
}

// SoftmaxOf writes the numerically stable softmax of z into dst.
func SoftmaxOf(z, dst []float64) []float64 {
	return nn.SoftmaxOf(z, dst)
}

// Layers

// Convolutional is a 2-D convolution over a depth × height × width volume.
type Convolutional = nn.Convolutional

// ConvolutionalConfig describes a convolutional layer.
type ConvolutionalConfig = nn.ConvolutionalConfig

// ConvolutionalBuilder assembles a ConvolutionalConfig with chained setters.
type ConvolutionalBuilder = nn.ConvolutionalBuilder

// Convolution defaults.
const (
	DefaultKernelSize  = nn.DefaultKernelSize
	DefaultOutputDepth = nn.DefaultOutputDepth
)

// NewConvolutional creates a convolutional layer. A nil activation is Identity.
//
// Example:
//
//	conv, err := nn.NewConvolutional(nn.ConvolutionalConfig{
//	    InputHeight: 28, InputWidth: 28, InputDepth: 1,
//	    KernelSize: 5, OutputDepth: 6, Padding: 2,
//	}, nn.Tanh{})
func NewConvolutional(cfg ConvolutionalConfig, act Activation) (*Convolutional, error) {
	return nn.NewConvolutional(cfg, act)
}

// NewConvolutionalBuilder starts a builder for an h × w × d input.
func NewConvolutionalBuilder(h, w, d int) *ConvolutionalBuilder {
	return nn.NewConvolutionalBuilder(h, w, d)
}

// Pooling downsamples each channel with a PoolingFunction.
type Pooling = nn.Pooling

// PoolingConfig describes a pooling layer.
type PoolingConfig = nn.PoolingConfig

// NewPooling creates a pooling layer. A nil function is MaxPool.
//
// Example:
//
//	pool, err := nn.NewPooling(nn.PoolingConfig{
//	    InputHeight: 28, InputWidth: 28, InputDepth: 6, PoolSize: 2, Stride: 2,
//	}, nn.MaxPool{})
func NewPooling(cfg PoolingConfig, fn PoolingFunction) (*Pooling, error) {
	return nn.NewPooling(cfg, fn)
}

// ElementWise reduces groups of adjacent channels.
type ElementWise = nn.ElementWise

// ElementWiseConfig describes an element-wise layer.
type ElementWiseConfig = nn.ElementWiseConfig

// NewElementWise creates an element-wise layer. A nil function is MaxOut.
func NewElementWise(cfg ElementWiseConfig, fn ElementWiseFunction) (*ElementWise, error) {
	return nn.NewElementWise(cfg, fn)
}

// DenseConfig describes the weight matrix shared by the dense layers.
type DenseConfig = nn.DenseConfig

// DropoutConfig adds a drop probability to DenseConfig.
type DropoutConfig = nn.DropoutConfig

// FullyConnected is an affine map followed by an activation.
type FullyConnected = nn.FullyConnected

// NewFullyConnected creates a fully-connected layer. A nil activation is Identity.
//
// Example:
//
//	fc, err := nn.NewFullyConnected(nn.DenseConfig{InputSize: 120, OutputSize: 84}, nn.Tanh{})
func NewFullyConnected(cfg DenseConfig, act Activation) (*FullyConnected, error) {
	return nn.NewFullyConnected(cfg, act)
}

// Dropout is a fully-connected layer that drops output units while training.
type Dropout = nn.Dropout

// NewDropout creates a dropout layer.
func NewDropout(cfg DropoutConfig, act Activation) (*Dropout, error) {
	return nn.NewDropout(cfg, act)
}

// DropConnect is a fully-connected layer that drops individual weights while training.
type DropConnect = nn.DropConnect

// NewDropConnect creates a drop-connect layer.
func NewDropConnect(cfg DropoutConfig, act Activation) (*DropConnect, error) {
	return nn.NewDropConnect(cfg, act)
}

// Softmax is a fully-connected layer with a softmax output.
type Softmax = nn.Softmax

// NewSoftmax creates a softmax output layer.
func NewSoftmax(cfg DenseConfig) (*Softmax, error) {
	return nn.NewSoftmax(cfg)
}

// Maxout takes, for every output, the maximum of per-input affine units.
type Maxout = nn.Maxout

// NewMaxout creates a maxout layer.
func NewMaxout(cfg DenseConfig) (*Maxout, error) {
	return nn.NewMaxout(cfg)
}

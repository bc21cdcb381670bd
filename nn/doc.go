// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers, loss functions and network orchestrator of
// the convnet engine.
//
// # Overview
//
// This package contains:
//   - Layers: Convolutional, Pooling, ElementWise, FullyConnected, Dropout,
//     DropConnect, Softmax, Maxout
//   - Activations: Identity, Sigmoid, Tanh, ReLU, LeakyReLU, Softplus
//   - Poolings and element-wise reductions: MaxPool, AveragePool, MaxOut,
//     ElementAverage
//   - Loss functions: MSE, MultiCrossEntropy, BinaryCrossEntropy
//   - Network: ordered layer stack with SGD training (online, mini-batch,
//     full-batch), evaluation and parameter export
//
// All tensors are flat []float64 slices. Feature maps are stored depth-major,
// then row-major inside each channel.
//
// # Basic Usage
//
//	import "github.com/born-ml/convnet/nn"
//
//	func main() {
//	    net := nn.NewNetwork(nn.MSE{})
//
//	    conv, _ := nn.NewConvolutionalBuilder(28, 28, 1).
//	        KernelSize(5).
//	        OutputDepth(6).
//	        Padding(2).
//	        Build(nn.Tanh{})
//	    pool, _ := nn.NewPooling(nn.PoolingConfig{InputHeight: 28, InputWidth: 28, InputDepth: 6}, nn.MaxPool{})
//	    fc, _ := nn.NewFullyConnected(nn.DenseConfig{InputSize: 14 * 14 * 6, OutputSize: 10}, nn.Sigmoid{})
//
//	    net.AddLayers(conv, pool, fc)
//	    if !net.NetworkCheck() {
//	        log.Fatal("layer sizes do not chain")
//	    }
//
//	    err := net.Train(ctx, train, test, nn.TrainConfig{
//	        BatchSize:    20,
//	        Epochs:       10,
//	        LearningRate: 0.01,
//	    })
//	}
//
// # Layers
//
// Convolutional: square kernels over a depth × height × width volume, with
// stride, zero padding and an optional input/output channel connection table.
//
// Pooling: max or average over size × size windows of each channel.
//
// ElementWise: reduces groups of adjacent channels at each spatial position.
//
// FullyConnected, Dropout, DropConnect, Softmax, Maxout: dense layers sharing
// an inputSize × outputSize weight matrix.
//
// # Training
//
// Network.Train runs epochs of batches. The batch size selects the
// mode: 1 is online, zero or at least n samples is full-batch, anything
// else is mini-batch. The learning rate is scaled by the square root of the batch
// size. TrainConfig.Optimizer swaps SGD for any optim.Optimizer. Training stops early on context cancellation, when a callback asks
// for it, or with ErrDiverged when the batch error stops being finite.
//
// # Parameters
//
// Weights and biases are exchanged in a tab separated text format. The
// layer index keeps file names unique when layer names repeat:
//
//	err := net.ExportParameters(nn.DumpWeights, func(i int, l nn.Layer) (io.WriteCloser, error) {
//	    return os.Create(fmt.Sprintf("%02d_%s_weight.txt", i+1, l.Name()))
//	})
package nn

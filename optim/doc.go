// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the parameter update rule used by the layers.
//
// # Overview
//
// This package contains:
//   - SGD: gradient descent with momentum and L2 weight decay
//   - Optimizer interface for custom update rules
//
// Layers own their parameters as flat []float64 buffers together with a
// gradient accumulator and the previous step's delta. An optimizer step
// updates the parameters in place and clears the accumulator.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convnet/nn"
//	    "github.com/born-ml/convnet/optim"
//	)
//
//	func main() {
//	    net := nn.NewNetwork(nn.MSE{})
//	    // ... add layers
//
//	    net.SetHyperparameters(optim.SGD{Eta: 0.01, Mu: 0.9, Lambda: 1e-4})
//	    for _, batch := range batches {
//	        net.TrainBatch(batch)
//	    }
//	}
//
// # Update Rule
//
//	Δw(t) = −η·∂E/∂w − η·λ·w(t−1) + μ·Δw(t−1)
//	w(t)  = w(t−1) + Δw(t)
//	b(t)  = b(t−1) − η·∂E/∂b
//
// Network.Train scales η by the square root of the batch size; see
// SGD.Scaled.
//
// # Custom Optimizers
//
// Any Optimizer can replace SGD, either for every WeightUpdate through
// Network.SetOptimizer or for one run through TrainConfig.Optimizer:
//
//	err := net.Train(ctx, train, test, nn.TrainConfig{
//	    BatchSize: 32,
//	    Epochs:    10,
//	    Optimizer: myOptimizer,
//	})
package optim

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/convnet/internal/optim"
)

// Optimizer interface defines the update applied to layer-owned buffers.
// Every layer's WeightUpdate accepts one.
type Optimizer = optim.Optimizer

// SGD represents gradient descent with momentum and L2 weight decay.
//
// Example:
//
//	opt := optim.SGD{Eta: 0.01, Mu: 0.9, Lambda: 1e-4}
//	layer.WeightUpdate(opt.Scaled(batchSize))
type SGD = optim.SGD

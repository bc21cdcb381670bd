// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/convnet/internal/tensor"
)

// Volume is the depth × height × width shape of a feature map.
type Volume = tensor.Volume

// Vol is shorthand for Volume{Depth: d, Height: h, Width: w}.
func Vol(d, h, w int) Volume {
	return tensor.Vol(d, h, w)
}

// OutputDim returns the spatial size produced by sliding a window of the
// given size, stride and zero padding over an input dimension.
//
// Example:
//
//	tensor.OutputDim(28, 2, 2, 0) // 14
func OutputDim(in, window, stride, padding int) int {
	return tensor.OutputDim(in, window, stride, padding)
}

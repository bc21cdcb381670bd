// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the shape bookkeeping of the convnet engine.
//
// # Overview
//
// Tensors are plain []float64 slices. A feature map is a 3-D volume
// (depth × height × width) laid out depth-major, then row-major inside each
// channel:
//
//	index = (d*Height + h)*Width + w
//
// # Basic Usage
//
//	import "github.com/born-ml/convnet/tensor"
//
//	func main() {
//	    in := tensor.Vol(1, 28, 28)
//	    h := tensor.OutputDim(in.Height, 5, 1, 2) // 28
//	    out := tensor.Vol(6, h, h)
//	    fmt.Println(out, out.Size())               // 28x28x6 4704
//	}
//
// Volumes print as HxWxD, the order used in layer summaries.
package tensor

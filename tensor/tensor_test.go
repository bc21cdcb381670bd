// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/convnet/tensor"
)

func TestVol(t *testing.T) {
	v := tensor.Vol(6, 28, 28)
	assert.Equal(t, 4704, v.Size())
	assert.Equal(t, "28x28x6", v.String())
	assert.Equal(t, 28, tensor.OutputDim(28, 5, 1, 2))
	assert.Equal(t, 14, tensor.OutputDim(28, 2, 2, 0))
}

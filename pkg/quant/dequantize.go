// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package quant

import (
	"github.com/ajroetker/go-highway/hwy"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/qgemm/pkg/core/tensors"
)

// Dequantize converts int32 accumulators to float32: output[i] = input[i] * (activationScale / weightScale).
//
// For the product of two quantized operands with scales sA and sW (see Quantize), use
// activationScale = sA * sW and weightScale = 127 * 127.
//
// It panics if output is shorter than input.
func Dequantize(input []int32, output []float32, activationScale, weightScale float32) {
	if len(output) < len(input) {
		exceptions.Panicf("quant.Dequantize: output has %d elements, input has %d", len(output), len(input))
	}
	factor := activationScale / weightScale
	size := len(input)
	lanes, step := blockLanes()
	factorVec := hwy.Set(factor)
	buf := make([]float32, lanes)
	blocksEnd := size - size%step
	for start := 0; start < blocksEnd; start += step {
		for ii := start; ii < start+step; ii += lanes {
			for jj, v := range input[ii : ii+lanes] {
				buf[jj] = float32(v)
			}
			hwy.Store(hwy.Mul(hwy.Load(buf), factorVec), output[ii:])
		}
	}
	for ii := blocksEnd; ii < size; ii++ {
		output[ii] = float32(input[ii]) * factor
	}
}

// DequantizeTensor dequantizes the input tensor into a new float32 tensor of the same shape.
// The activation scale is given as a scalar tensor, as returned by QuantizeTensor.
func DequantizeTensor(input *tensors.Tensor[int32], activationScale *tensors.Tensor[float32], weightScale float32) *tensors.Tensor[float32] {
	output := tensors.FromShape[float32](input.Shape().Dimensions...)
	Dequantize(input.Flat(), output.Flat(), tensors.ToScalar(activationScale), weightScale)
	return output
}

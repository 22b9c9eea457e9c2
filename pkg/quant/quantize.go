// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package quant implements the symmetric int8 quantization of float32 activations and the
// dequantization of int32 GEMM accumulators back to float32.
//
// The data flow is:
//
//	x (float32) --Quantize--> (int8, scale) --gemm int8 x int8 -> int32--> Dequantize --> float32
//
// Quantized values are in the symmetric range [-127, 127]. The scale returned by Quantize is the
// max-absolute value of the input: a quantized value q represents q * scale / 127.
package quant

import (
	"math"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/gomlx/qgemm/pkg/core/tensors"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/pkg/errors"
)

const (
	// MaxQuantized is the largest magnitude of a quantized value.
	MaxQuantized = 127

	// MinAbsMax is the lower bound of the max-absolute value, to avoid dividing by zero
	// on all-zero inputs.
	MinAbsMax = 1e-6

	// BlockSize is the number of elements processed per block, in vectors of float32 lanes.
	// The remaining elements are processed one at a time.
	BlockSize = 16
)

// Params configures Quantize.
type Params struct {
	// Policy used to round the scaled values.
	Policy RoundingPolicy

	// IsStatic indicates StaticScale should be used instead of measuring the input max-absolute value.
	IsStatic bool

	// StaticScale is the max-absolute value to use if IsStatic is set.
	// Values with a larger magnitude saturate.
	StaticScale float32
}

// Validate returns an error wrapping xerrors.ErrInvalidArgument if the policy is unknown or the
// static scale is not a finite non-negative number.
func (p Params) Validate() error {
	if !p.Policy.IsARoundingPolicy() {
		return xerrors.InvalidArgumentf("quant: unsupported rounding policy %s", p.Policy)
	}
	if p.IsStatic {
		s := float64(p.StaticScale)
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return xerrors.InvalidArgumentf("quant: static scale must be finite and non-negative, got %g", p.StaticScale)
		}
	}
	return nil
}

// FindAbsMax returns the largest absolute value of the input, or 0 for an empty input.
// NaN values are ignored.
func FindAbsMax(input []float32) float32 {
	var maxAbs float32
	size := len(input)
	lanes, step := blockLanes()
	buf := make([]float32, lanes)
	blocksEnd := size - size%step
	for start := 0; start < blocksEnd; start += step {
		for ii := start; ii < start+step; ii += lanes {
			hwy.Store(hwy.Abs(hwy.Load(input[ii:])), buf)
			for _, v := range buf {
				// NaN comparisons are false, so NaN lanes are skipped.
				if v > maxAbs {
					maxAbs = v
				}
			}
		}
	}
	for _, x := range input[blocksEnd:] {
		if v := abs32(x); v > maxAbs {
			maxAbs = v
		}
	}
	return maxAbs
}

// blockLanes returns the number of float32 lanes of a vector, and the number of elements processed per block:
// BlockSize, or one vector if it holds more than BlockSize lanes.
func blockLanes() (lanes, step int) {
	lanes = hwy.NumLanes[float32]()
	return lanes, max(BlockSize, lanes)
}

// abs32 returns |x|, or 0 for NaN.
func abs32(x float32) float32 {
	if math.IsNaN(float64(x)) {
		return 0
	}
	return math.Float32frombits(math.Float32bits(x) &^ (1 << 31))
}

// Quantize converts input to int8 values in output, and returns the scale used: the max-absolute
// value, measured from the input or given by params.StaticScale.
//
// Each value x is quantized to round(x * 127 / scale), with the rounding given by params.Policy,
// and saturated to [-127, 127]. NaN values quantize to 0.
//
// It returns an error wrapping xerrors.ErrInvalidArgument, without writing to output, if the
// params are invalid or output is shorter than input.
func Quantize(input []float32, output []int8, params Params) (scale float32, err error) {
	if err = params.Validate(); err != nil {
		return 0, err
	}
	if len(output) < len(input) {
		return 0, xerrors.InvalidArgumentf("quant: output has %d elements, input has %d", len(output), len(input))
	}
	if params.IsStatic {
		scale = params.StaticScale
	} else {
		scale = FindAbsMax(input)
	}
	scale = max(scale, MinAbsMax)
	quantizeWith(input, output[:len(input)], MaxQuantized/scale, params.Policy.roundFn())
	return scale, nil
}

// quantizeWith writes round(x * multiplier) to output, saturated.
//
// The scaling is vectorized per block, rounding and saturation are done per element.
func quantizeWith(input []float32, output []int8, multiplier float32, round func(float64) float64) {
	size := len(input)
	lanes, step := blockLanes()
	multiplierVec := hwy.Set(multiplier)
	buf := make([]float32, lanes)
	blocksEnd := size - size%step
	for start := 0; start < blocksEnd; start += step {
		for ii := start; ii < start+step; ii += lanes {
			hwy.Store(hwy.Mul(hwy.Load(input[ii:]), multiplierVec), buf)
			out := output[ii : ii+lanes]
			for jj, v := range buf {
				out[jj] = saturate(round(float64(v)))
			}
		}
	}
	for ii := blocksEnd; ii < size; ii++ {
		output[ii] = quantizeValue(input[ii], multiplier, round)
	}
}

func quantizeValue(x, multiplier float32, round func(float64) float64) int8 {
	return saturate(round(float64(x * multiplier)))
}

// saturate converts a rounded value to int8, clamped to [-MaxQuantized, MaxQuantized]. NaN becomes 0.
func saturate(v float64) int8 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > MaxQuantized:
		return MaxQuantized
	case v < -MaxQuantized:
		return -MaxQuantized
	}
	return int8(v)
}

// QuantizeTensor quantizes the input tensor, and returns the int8 tensor of the same shape and a scalar
// tensor with the scale, see Quantize.
func QuantizeTensor(input *tensors.Tensor[float32], params Params) (*tensors.Tensor[int8], *tensors.Tensor[float32], error) {
	output := tensors.FromShape[int8](input.Shape().Dimensions...)
	scale, err := Quantize(input.Flat(), output.Flat(), params)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "QuantizeTensor(%s)", input.Shape())
	}
	return output, tensors.FromScalarAndDimensions(scale), nil
}

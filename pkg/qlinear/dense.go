// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package qlinear implements int8 quantized linear layers on top of the quant and gemm packages:
// a dense (fully connected) layer and a 2D convolution lowered to GEMM with im2col.
package qlinear

import (
	"github.com/gomlx/qgemm/pkg/core/hardware"
	"github.com/gomlx/qgemm/pkg/core/tensors"
	"github.com/gomlx/qgemm/pkg/gemm"
	"github.com/gomlx/qgemm/pkg/quant"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/pkg/errors"
)

// QuantizedWeights holds the weights of a dense layer quantized to int8.
type QuantizedWeights struct {
	// Values shaped [inFeatures, outFeatures].
	Values *tensors.Tensor[int8]

	// Scale is the max-absolute value of the original weights.
	Scale float32
}

// InFeatures returns the input dimension of the layer.
func (w *QuantizedWeights) InFeatures() int { return w.Values.Shape().Dim(0) }

// OutFeatures returns the output dimension of the layer.
func (w *QuantizedWeights) OutFeatures() int { return w.Values.Shape().Dim(1) }

// QuantizeWeights quantizes the [inFeatures, outFeatures] weights of a dense layer, using their
// max-absolute value as the scale.
func QuantizeWeights(weights *tensors.Tensor[float32], policy quant.RoundingPolicy) (*QuantizedWeights, error) {
	if weights.Rank() != 2 {
		return nil, xerrors.InvalidArgumentf("qlinear: weights must be shaped [inFeatures, outFeatures], got %s", weights.Shape())
	}
	values, scale, err := quant.QuantizeTensor(weights, quant.Params{Policy: policy})
	if err != nil {
		return nil, errors.WithMessage(err, "qlinear.QuantizeWeights")
	}
	return &QuantizedWeights{Values: values, Scale: tensors.ToScalar(scale)}, nil
}

// Dense computes x @ weights for x shaped [batchSize, inFeatures], and returns the float32 [batchSize, outFeatures] result.
//
// x is quantized dynamically with the given rounding policy, multiplied with the int8 weights accumulating
// in int32, and the result is dequantized. A batch of size 1 uses a matrix-vector executor.
//
// The options are passed to the executor.
func Dense(hw hardware.Descriptor, x *tensors.Tensor[float32], weights *QuantizedWeights, policy quant.RoundingPolicy,
	opts ...gemm.Option) (*tensors.Tensor[float32], error) {
	if x.Rank() != 2 || x.Shape().Dim(1) != weights.InFeatures() {
		return nil, xerrors.InvalidArgumentf("qlinear.Dense: x must be shaped [batchSize, %d], got %s",
			weights.InFeatures(), x.Shape())
	}
	batchSize, inFeatures, outFeatures := x.Shape().Dim(0), weights.InFeatures(), weights.OutFeatures()
	xQuant, xScale, err := quant.QuantizeTensor(x, quant.Params{Policy: policy})
	if err != nil {
		return nil, errors.WithMessage(err, "qlinear.Dense")
	}

	accumulators := tensors.FromShape[int32](batchSize, outFeatures)
	if batchSize == 1 {
		// y = weights^T x: weights is stored [inFeatures][outFeatures], the transposed layout of op(A).
		exec, err := gemm.NewGemvExecutor[int8, int32](hw, true, outFeatures, inFeatures, opts...)
		if err != nil {
			return nil, errors.WithMessage(err, "qlinear.Dense")
		}
		defer exec.Close()
		exec.Run(1, weights.Values.Flat(), outFeatures, xQuant.Flat(), 0, accumulators.Flat())
	} else {
		exec, err := gemm.NewExecutor[int8, int32](hw, false, false, batchSize, outFeatures, inFeatures, opts...)
		if err != nil {
			return nil, errors.WithMessage(err, "qlinear.Dense")
		}
		defer exec.Close()
		exec.Run(1, xQuant.Flat(), inFeatures, weights.Values.Flat(), outFeatures, 0, accumulators.Flat(), outFeatures)
	}

	// Each int8 value q represents q * scale / 127, so the product of two carries scaleX * scaleW / 127^2.
	activationScale := tensors.FromScalarAndDimensions(tensors.ToScalar(xScale) * weights.Scale)
	return quant.DequantizeTensor(accumulators, activationScale, quant.MaxQuantized*quant.MaxQuantized), nil
}

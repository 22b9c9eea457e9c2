// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package qlinear

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/gomlx/qgemm/pkg/core/hardware"
	"github.com/gomlx/qgemm/pkg/core/tensors"
	"github.com/gomlx/qgemm/pkg/gemm"
	"github.com/gomlx/qgemm/pkg/quant"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/google/go-cmp/cmp"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHW = hardware.Descriptor{L1CacheSize: 4 * 1024, L2CacheSize: 64 * 1024, NumThreads: 3}

func randomTensor[T float32 | int8](rng *rand.Rand, low, high int, dims ...int) *tensors.Tensor[T] {
	t := tensors.FromShape[T](dims...)
	flat := t.Flat()
	for ii := range flat {
		flat[ii] = T(rng.Intn(high-low+1) + low)
	}
	return t
}

func TestConv2D(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	testCases := []struct {
		kernel, inChannels, outChannels int
		config                          Conv2DConfig
	}{
		{1, 3, 10, Conv2DConfig{}},
		{3, 3, 10, Conv2DConfig{Paddings: [2]int{1, 1}}},
		{3, 3, 10, Conv2DConfig{Strides: [2]int{2, 2}}},
		{5, 3, 10, Conv2DConfig{Paddings: [2]int{2, 2}, Strides: [2]int{2, 1}}},
		{3, 4, 6, Conv2DConfig{Paddings: [2]int{2, 1}, Dilations: [2]int{2, 2}}},
		{3, 4, 6, Conv2DConfig{Paddings: [2]int{1, 1}, Groups: 2}},
		{3, 6, 6, Conv2DConfig{Paddings: [2]int{1, 1}, Groups: 6}},
	}
	for _, tc := range testCases {
		name := fmt.Sprintf("k=%d/in=%d/out=%d/%+v", tc.kernel, tc.inChannels, tc.outChannels, tc.config)
		t.Run(name, func(t *testing.T) {
			groups := max(tc.config.Groups, 1)
			input := randomTensor[int8](rng, -20, 20, 2, tc.inChannels, 13, 11)
			filter := randomTensor[int8](rng, -20, 20, tc.outChannels, tc.inChannels/groups, tc.kernel, tc.kernel)
			got, err := Conv2D[int8, int32](testHW, input, filter, tc.config)
			require.NoError(t, err)
			want := must.M1(Conv2DReference[int8, int32](input, filter, tc.config))
			require.Equal(t, want.Shape().Dimensions, got.Shape().Dimensions)
			if diff := cmp.Diff(want.Flat(), got.Flat()); diff != "" {
				t.Fatalf("int8 conv2d mismatch (-want +got):\n%s", diff)
			}

			inputF := randomTensor[float32](rng, -5, 5, 1, tc.inChannels, 9, 10)
			filterF := randomTensor[float32](rng, -5, 5, tc.outChannels, tc.inChannels/groups, tc.kernel, tc.kernel)
			gotF := must.M1(Conv2D[float32, float32](testHW, inputF, filterF, tc.config))
			wantF := must.M1(Conv2DReference[float32, float32](inputF, filterF, tc.config))
			// Small integer values: the float32 sums are exact.
			assert.Equal(t, wantF.Flat(), gotF.Flat())
		})
	}
}

func TestConv2D_OutputSize(t *testing.T) {
	// 100x100 input, 3x3 kernel, padding 1, stride 2.
	outH, outW := Conv2DOutputSize(100, 100, 3, 3, Conv2DConfig{Strides: [2]int{2, 2}, Paddings: [2]int{1, 1}, Dilations: [2]int{1, 1}})
	assert.Equal(t, 50, outH)
	assert.Equal(t, 50, outW)

	input := tensors.FromShape[int8](1, 3, 100, 100)
	filter := tensors.FromShape[int8](10, 3, 5, 5)
	out := must.M1(Conv2D[int8, int32](testHW, input, filter, Conv2DConfig{Strides: [2]int{1, 1}}))
	assert.Equal(t, []int{1, 10, 96, 96}, out.Shape().Dimensions)
}

func TestConv2D_Errors(t *testing.T) {
	input := tensors.FromShape[int8](1, 4, 8, 8)
	for name, tc := range map[string]struct {
		filterDims []int
		config     Conv2DConfig
	}{
		"rank":              {[]int{4, 3, 3}, Conv2DConfig{}},
		"channels":          {[]int{4, 3, 3, 3}, Conv2DConfig{}},
		"groups":            {[]int{4, 4, 3, 3}, Conv2DConfig{Groups: 3}},
		"negative-stride":   {[]int{4, 4, 3, 3}, Conv2DConfig{Strides: [2]int{-1, 1}}},
		"negative-padding":  {[]int{4, 4, 3, 3}, Conv2DConfig{Paddings: [2]int{0, -1}}},
		"kernel-too-large":  {[]int{4, 4, 9, 9}, Conv2DConfig{}},
		"empty-out-channel": {[]int{0, 4, 3, 3}, Conv2DConfig{}},
	} {
		_, err := Conv2D[int8, int32](testHW, input, tensors.FromShape[int8](tc.filterDims...), tc.config)
		assert.True(t, xerrors.IsInvalidArgument(err), "%s: %v", name, err)
	}
}

func TestDense(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	for _, batchSize := range []int{1, 7, 32} {
		t.Run(fmt.Sprintf("batch=%d", batchSize), func(t *testing.T) {
			const inFeatures, outFeatures = 45, 19
			x := tensors.FromShape[float32](batchSize, inFeatures)
			for ii := range x.Flat() {
				x.Flat()[ii] = rng.Float32()*4 - 2
			}
			w := tensors.FromShape[float32](inFeatures, outFeatures)
			for ii := range w.Flat() {
				w.Flat()[ii] = rng.Float32() - 0.5
			}
			qw, err := QuantizeWeights(w, quant.RoundNearestEven)
			require.NoError(t, err)
			assert.Equal(t, inFeatures, qw.InFeatures())
			assert.Equal(t, outFeatures, qw.OutFeatures())

			got, err := Dense(testHW, x, qw, quant.RoundNearestEven)
			require.NoError(t, err)
			require.Equal(t, []int{batchSize, outFeatures}, got.Shape().Dimensions)

			want := make([]float32, batchSize*outFeatures)
			gemm.Reference(false, false, batchSize, outFeatures, inFeatures, 1, x.Flat(), inFeatures, w.Flat(), outFeatures, 0, want, outFeatures)

			// Each operand is off by at most half a quantization step.
			tolerance := 1.1 * inFeatures * float64(quant.FindAbsMax(x.Flat())*qw.Scale) / quant.MaxQuantized
			for ii := range want {
				assert.InDelta(t, want[ii], got.Flat()[ii], tolerance, "element %d", ii)
			}
		})
	}
}

// TestQuantizedGEMM checks dequantize(gemm(quantize(a), quantize(b))) against the float GEMM.
func TestQuantizedGEMM(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	const m, n, k = 20, 30, 64
	a, b := make([]float32, m*k), make([]float32, k*n)
	for ii := range a {
		a[ii] = float32(rng.NormFloat64())
	}
	for ii := range b {
		b[ii] = float32(rng.NormFloat64())
	}
	for _, policy := range quant.RoundingPolicyValues() {
		aQuant, bQuant := make([]int8, len(a)), make([]int8, len(b))
		aScale := must.M1(quant.Quantize(a, aQuant, quant.Params{Policy: policy}))
		bScale := must.M1(quant.Quantize(b, bQuant, quant.Params{Policy: policy}))

		exec := must.M1(gemm.NewExecutor[int8, int32](testHW, false, false, m, n, k))
		acc := make([]int32, m*n)
		exec.Run(1, aQuant, k, bQuant, n, 0, acc, n)
		exec.Close()
		got := make([]float32, m*n)
		quant.Dequantize(acc, got, aScale*bScale, quant.MaxQuantized*quant.MaxQuantized)

		want := make([]float32, m*n)
		gemm.Reference(false, false, m, n, k, 1, a, k, b, n, 0, want, n)
		// Toward-zero rounding errors can reach a full quantization step.
		tolerance := 2.1 * k * float64(aScale*bScale) / quant.MaxQuantized
		for ii := range want {
			require.InDelta(t, want[ii], got[ii], tolerance, "policy=%s element %d", policy, ii)
		}
		assert.False(t, math.IsNaN(float64(got[0])))
	}
}

func TestDense_Errors(t *testing.T) {
	qw := must.M1(QuantizeWeights(tensors.FromShape[float32](4, 3), quant.RoundAwayFromZero))
	_, err := Dense(testHW, tensors.FromShape[float32](2, 5), qw, quant.RoundAwayFromZero)
	assert.True(t, xerrors.IsInvalidArgument(err))
	_, err = Dense(testHW, tensors.FromShape[float32](2, 4), qw, quant.RoundingPolicy(9))
	assert.True(t, xerrors.IsInvalidArgument(err))
	_, err = QuantizeWeights(tensors.FromShape[float32](4), quant.RoundAwayFromZero)
	assert.True(t, xerrors.IsInvalidArgument(err))
}

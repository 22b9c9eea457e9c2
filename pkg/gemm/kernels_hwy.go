// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"fmt"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/qgemm/pkg/core/hardware"
)

// TODO: generate per-target (avx2, avx512, neon) versions of these kernels with hwygen.

// hwyKernelRows is the number of LHS rows accumulated per pass by HwyKernel, each row using 2 vector registers.
const hwyKernelRows = 3

func init() {
	if !hwy.HasSIMD() {
		return
	}
	width := HwyKernelWidth()
	RegisterStrategy(KindGEMM, Strategy[float32, float32]{
		Name:   fmt.Sprintf("hwy-%dx%d", kernelHeight, width),
		Height: kernelHeight, Width: width,
		Kernel: HwyKernel(kernelHeight),
	}, PriorityDTypeSIMD, hardware.Features.HasSIMD)
	RegisterStrategy(KindGEMV, Strategy[float32, float32]{
		Name:   fmt.Sprintf("hwy-%dx1", width),
		Height: width, Width: 1,
		Kernel: HwyGemvKernel(width),
	}, PriorityDTypeSIMD, hardware.Features.HasSIMD)
}

// HwyKernelWidth is the output tile width of HwyKernel: 2 vectors of float32 lanes.
func HwyKernelWidth() int {
	return 2 * hwy.NumLanes[float32]()
}

// HwyKernel returns a vectorized float32 micro-kernel for tiles of height x HwyKernelWidth().
//
// height must be a multiple of 3: 3 rows x 2 vectors are accumulated per pass over k.
func HwyKernel(height int) Kernel[float32, float32] {
	if height%hwyKernelRows != 0 {
		exceptions.Panicf("HwyKernel requires a height multiple of %d, got %d", hwyKernelRows, height)
	}
	numLanes := hwy.NumLanes[float32]()
	width := 2 * numLanes
	return func(lhs, rhs []float32, k int, out []float32) {
		_ = out[height*width-1]
		_ = rhs[k*width-1]
		for r := 0; r < height; r += hwyKernelRows {
			accum_lhs0_rhs0 := hwy.Zero[float32]()
			accum_lhs0_rhs1 := hwy.Zero[float32]()
			accum_lhs1_rhs0 := hwy.Zero[float32]()
			accum_lhs1_rhs1 := hwy.Zero[float32]()
			accum_lhs2_rhs0 := hwy.Zero[float32]()
			accum_lhs2_rhs1 := hwy.Zero[float32]()

			lhsIdx, rhsIdx := r, 0
			for range k {
				rhsVec0 := hwy.Load(rhs[rhsIdx:])
				rhsVec1 := hwy.Load(rhs[rhsIdx+numLanes:])
				rhsIdx += width

				lhsVec0 := hwy.Set(lhs[lhsIdx])
				accum_lhs0_rhs0 = hwy.MulAdd(rhsVec0, lhsVec0, accum_lhs0_rhs0)
				accum_lhs0_rhs1 = hwy.MulAdd(rhsVec1, lhsVec0, accum_lhs0_rhs1)

				lhsVec1 := hwy.Set(lhs[lhsIdx+1])
				accum_lhs1_rhs0 = hwy.MulAdd(rhsVec0, lhsVec1, accum_lhs1_rhs0)
				accum_lhs1_rhs1 = hwy.MulAdd(rhsVec1, lhsVec1, accum_lhs1_rhs1)

				lhsVec2 := hwy.Set(lhs[lhsIdx+2])
				accum_lhs2_rhs0 = hwy.MulAdd(rhsVec0, lhsVec2, accum_lhs2_rhs0)
				accum_lhs2_rhs1 = hwy.MulAdd(rhsVec1, lhsVec2, accum_lhs2_rhs1)

				lhsIdx += height
			}

			outIdx0 := r * width
			outIdx1 := outIdx0 + width
			outIdx2 := outIdx1 + width
			hwy.Store(accum_lhs0_rhs0, out[outIdx0:])
			hwy.Store(accum_lhs0_rhs1, out[outIdx0+numLanes:])
			hwy.Store(accum_lhs1_rhs0, out[outIdx1:])
			hwy.Store(accum_lhs1_rhs1, out[outIdx1+numLanes:])
			hwy.Store(accum_lhs2_rhs0, out[outIdx2:])
			hwy.Store(accum_lhs2_rhs1, out[outIdx2+numLanes:])
		}
	}
}

// HwyGemvKernel returns a vectorized float32 matrix-vector micro-kernel for tiles of height x 1.
//
// The rows of the packed LHS tile are contiguous for each p, so they are loaded as vectors and
// multiplied by the broadcast x[p]. height must be a multiple of the number of float32 lanes.
func HwyGemvKernel(height int) Kernel[float32, float32] {
	numLanes := hwy.NumLanes[float32]()
	if height%numLanes != 0 {
		exceptions.Panicf("HwyGemvKernel requires a height multiple of %d lanes, got %d", numLanes, height)
	}
	return func(lhs, rhs []float32, k int, out []float32) {
		_ = out[height-1]
		_ = lhs[k*height-1]
		rhs = rhs[:k]
		for r := 0; r < height; r += numLanes {
			accum := hwy.Zero[float32]()
			lhsIdx := r
			for _, x := range rhs {
				accum = hwy.MulAdd(hwy.Load(lhs[lhsIdx:]), hwy.Set(x), accum)
				lhsIdx += height
			}
			hwy.Store(accum, out[r:])
		}
	}
}

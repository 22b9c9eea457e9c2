// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import "github.com/gomlx/exceptions"

// UnrolledKernel8 returns a register-blocked micro-kernel for tiles of height x 8, with height even.
//
// It computes 2 rows x 8 columns at a time, with the 16 accumulators held in local variables.
func UnrolledKernel8[In Input, Out Output](height int) Kernel[In, Out] {
	if height%2 != 0 {
		exceptions.Panicf("UnrolledKernel8 requires an even height, got %d", height)
	}
	const width = 8
	return func(lhs, rhs []In, k int, out []Out) {
		_ = out[height*width-1]
		for r := 0; r < height; r += 2 {
			var c00, c01, c02, c03, c04, c05, c06, c07 Out
			var c10, c11, c12, c13, c14, c15, c16, c17 Out
			lhsIdx, rhsIdx := r, 0
			for range k {
				// Force early bound-check to eliminate bounds checks in the inner loop.
				lhsWindow := lhs[lhsIdx : lhsIdx+2]
				_ = lhsWindow[1]
				rhsWindow := rhs[rhsIdx : rhsIdx+width]
				_ = rhsWindow[width-1]

				a0, a1 := Out(lhsWindow[0]), Out(lhsWindow[1])
				b0, b1, b2, b3 := Out(rhsWindow[0]), Out(rhsWindow[1]), Out(rhsWindow[2]), Out(rhsWindow[3])
				b4, b5, b6, b7 := Out(rhsWindow[4]), Out(rhsWindow[5]), Out(rhsWindow[6]), Out(rhsWindow[7])

				c00 += a0 * b0
				c01 += a0 * b1
				c02 += a0 * b2
				c03 += a0 * b3
				c04 += a0 * b4
				c05 += a0 * b5
				c06 += a0 * b6
				c07 += a0 * b7

				c10 += a1 * b0
				c11 += a1 * b1
				c12 += a1 * b2
				c13 += a1 * b3
				c14 += a1 * b4
				c15 += a1 * b5
				c16 += a1 * b6
				c17 += a1 * b7

				lhsIdx += height
				rhsIdx += width
			}
			row0 := out[r*width : r*width+width]
			_ = row0[width-1]
			row0[0], row0[1], row0[2], row0[3] = c00, c01, c02, c03
			row0[4], row0[5], row0[6], row0[7] = c04, c05, c06, c07
			row1 := out[(r+1)*width : (r+1)*width+width]
			_ = row1[width-1]
			row1[0], row1[1], row1[2], row1[3] = c10, c11, c12, c13
			row1[4], row1[5], row1[6], row1[7] = c14, c15, c16, c17
		}
	}
}

// UnrolledGemvKernel returns a matrix-vector micro-kernel for tiles of height x 1, with height even.
//
// Two rows are accumulated per pass over k, each in its own register.
func UnrolledGemvKernel[In Input, Out Output](height int) Kernel[In, Out] {
	if height%2 != 0 {
		exceptions.Panicf("UnrolledGemvKernel requires an even height, got %d", height)
	}
	return func(lhs, rhs []In, k int, out []Out) {
		_ = out[height-1]
		rhs = rhs[:k]
		for r := 0; r < height; r += 2 {
			var acc0, acc1 Out
			lhsIdx := r
			for _, x := range rhs {
				lhsWindow := lhs[lhsIdx : lhsIdx+2]
				_ = lhsWindow[1]
				b := Out(x)
				acc0 += Out(lhsWindow[0]) * b
				acc1 += Out(lhsWindow[1]) * b
				lhsIdx += height
			}
			out[r] = acc0
			out[r+1] = acc1
		}
	}
}

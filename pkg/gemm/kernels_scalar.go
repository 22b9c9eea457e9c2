// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// ScalarKernel returns a straightforward height x width micro-kernel.
//
// It is the reference all other kernels must agree with.
func ScalarKernel[In Input, Out Output](height, width int) Kernel[In, Out] {
	return func(lhs, rhs []In, k int, out []Out) {
		_ = out[height*width-1]
		for r := range height {
			for c := range width {
				var acc Out
				lhsIdx, rhsIdx := r, c
				for range k {
					acc += Out(lhs[lhsIdx]) * Out(rhs[rhsIdx])
					lhsIdx += height
					rhsIdx += width
				}
				out[r*width+c] = acc
			}
		}
	}
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// Reference is a brute-force triple loop computing C = alpha * op(A) x op(B) + beta * C, with the same
// operand layouts and write-back semantics as Executor.Run.
//
// It is slow, and only meant as a correctness reference.
func Reference[In Input, Out Output](transA, transB bool, m, n, k int,
	alpha float32, a []In, lda int, b []In, ldb int, beta float32, c []Out, ldc int) {
	writeBack := writeBackFor[Out]()
	var acc [1]Out
	for i := range m {
		for j := range n {
			acc[0] = 0
			for p := range k {
				var aValue, bValue In
				if transA {
					aValue = a[p*lda+i]
				} else {
					aValue = a[i*lda+p]
				}
				if transB {
					bValue = b[j*ldb+p]
				} else {
					bValue = b[p*ldb+j]
				}
				acc[0] += Out(aValue) * Out(bValue)
			}
			writeBack(alpha, beta, acc[:], 1, c, ldc, i, j, 1, 1)
		}
	}
}

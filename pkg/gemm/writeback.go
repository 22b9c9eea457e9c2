// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"math"
)

// writeBackFn combines a rows x cols block of an output tile (row-major, with tileWidth columns) into
// the destination c (with row stride ldc) at (row0, col0): c = alpha * tile + beta * c.
type writeBackFn[Out Output] func(alpha, beta float32, tile []Out, tileWidth int, c []Out, ldc, row0, col0, rows, cols int)

// writeBackFor returns the write-back function for the output type.
func writeBackFor[Out Output]() writeBackFn[Out] {
	var fn any
	switch any(*new(Out)).(type) {
	case float32:
		fn = writeBackFloat32
	case int32:
		fn = writeBackInt32
	}
	return fn.(func(alpha, beta float32, tile []Out, tileWidth int, c []Out, ldc, row0, col0, rows, cols int))
}

// writeBackFloat32: if beta is 0 the previous contents of c are ignored (even NaNs).
func writeBackFloat32(alpha, beta float32, tile []float32, tileWidth int, c []float32, ldc, row0, col0, rows, cols int) {
	for r := range rows {
		src := tile[r*tileWidth : r*tileWidth+cols]
		dstIdx := (row0+r)*ldc + col0
		dst := c[dstIdx : dstIdx+cols]
		switch {
		case alpha == 1 && beta == 0:
			copy(dst, src)
		case beta == 0:
			for ii, v := range src {
				dst[ii] = alpha * v
			}
		default:
			for ii, v := range src {
				dst[ii] = alpha*v + beta*dst[ii]
			}
		}
	}
}

// writeBackInt32 stores the accumulators exactly when alpha == 1 and beta == 0.
// Otherwise, the combination is computed in float64 and rounded half away from zero, saturating
// to the int32 range.
func writeBackInt32(alpha, beta float32, tile []int32, tileWidth int, c []int32, ldc, row0, col0, rows, cols int) {
	a, b := float64(alpha), float64(beta)
	for r := range rows {
		src := tile[r*tileWidth : r*tileWidth+cols]
		dstIdx := (row0+r)*ldc + col0
		dst := c[dstIdx : dstIdx+cols]
		if alpha == 1 && beta == 0 {
			copy(dst, src)
			continue
		}
		for ii, v := range src {
			value := a * float64(v)
			if beta != 0 {
				value += b * float64(dst[ii])
			}
			dst[ii] = saturateInt32(math.Round(value))
		}
	}
}

func saturateInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

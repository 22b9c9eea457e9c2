// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// packRHS packs the columns [colStart, colStart+numCols) of op(B) (a K x N matrix) into dst.
//
// The columns are arranged in tiles of width columns, each laid out as [k][width], so the tile starting
// at column offset c (a multiple of width) begins at dst[c*k]. Tiles at the edge of the matrix are zero-padded.
//
// If transB is false B is stored as [K][ldb], otherwise as [N][ldb].
func packRHS[In Input](dst, b []In, ldb int, transB bool, k, colStart, numCols, width int) {
	dstIdx := 0
	for tileStart := 0; tileStart < numCols; tileStart += width {
		validCols := min(width, numCols-tileStart)
		col0 := colStart + tileStart
		for p := range k {
			row := dst[dstIdx : dstIdx+width]
			if !transB {
				srcIdx := p*ldb + col0
				copy(row, b[srcIdx:srcIdx+validCols])
			} else {
				srcIdx := col0*ldb + p
				for c := range validCols {
					row[c] = b[srcIdx]
					srcIdx += ldb
				}
			}
			// Zero-pad if tile is incomplete (edge of matrix)
			for c := validCols; c < width; c++ {
				row[c] = 0
			}
			dstIdx += width
		}
	}
}

// packLHS packs numRows rows of op(A) (an M x K matrix), starting at rowStart, into dst laid out as [k][height].
// Rows beyond numRows (up to height) are zero-padded.
//
// If transA is false A is stored as [M][lda], otherwise as [K][lda].
func packLHS[In Input](dst, a []In, lda int, transA bool, rowStart, numRows, k, height int) {
	if !transA {
		for r := range numRows {
			srcIdx := (rowStart + r) * lda
			dstIdx := r
			for _, value := range a[srcIdx : srcIdx+k] {
				dst[dstIdx] = value
				dstIdx += height
			}
		}
		if numRows < height {
			for p := range k {
				column := dst[p*height+numRows : (p+1)*height]
				for ii := range column {
					column[ii] = 0
				}
			}
		}
		return
	}
	for p := range k {
		column := dst[p*height : (p+1)*height]
		srcIdx := p*lda + rowStart
		copy(column, a[srcIdx:srcIdx+numRows])
		for ii := numRows; ii < height; ii++ {
			column[ii] = 0
		}
	}
}

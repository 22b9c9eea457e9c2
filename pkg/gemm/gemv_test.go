// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm_test

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/gomlx/qgemm/pkg/core/hardware"
	"github.com/gomlx/qgemm/pkg/gemm"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/google/go-cmp/cmp"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func TestGemvExecutor_Float32(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, strategy := range gemm.Registered[float32, float32](gemm.KindGEMV) {
		for _, hw := range testHardware {
			for _, transA := range []bool{false, true} {
				for _, m := range testDims {
					for _, n := range testDims {
						name := fmt.Sprintf("%s/threads=%d/transA=%v/%dx%d", strategy.Name, hw.NumThreads, transA, m, n)
						aRows, aCols, lda := operandLayout(m, n, transA)
						a := randomFloat32(rng, aRows*lda)
						x := randomFloat32(rng, n)
						y := randomFloat32(rng, m)
						want := slices.Clone(y)

						exec, err := gemm.NewGemvExecutor[float32, float32](hw, transA, m, n, gemm.WithStrategy(strategy))
						require.NoError(t, err, name)
						assert.Equal(t, m, exec.M())
						assert.Equal(t, n, exec.N())
						exec.Run(2, a, lda, x, 0.25, y)
						exec.Close()

						trans := blas.NoTrans
						if transA {
							trans = blas.Trans
						}
						blas32.Gemv(trans, 2, blas32.General{Rows: aRows, Cols: aCols, Stride: lda, Data: a},
							blas32.Vector{N: n, Inc: 1, Data: x}, 0.25, blas32.Vector{N: m, Inc: 1, Data: want})
						requireFloat32Close(t, want, y, n, "%s", name)
					}
				}
			}
		}
	}
}

func TestGemvExecutor_Int8(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	hw := hardware.Descriptor{L1CacheSize: 1024, L2CacheSize: 8 * 1024, NumThreads: 3}
	for _, strategy := range gemm.Registered[int8, int32](gemm.KindGEMV) {
		for _, transA := range []bool{false, true} {
			m, n := 37, 301
			aRows, _, lda := operandLayout(m, n, transA)
			a := randomInt8(rng, aRows*lda)
			x := randomInt8(rng, n)
			y := make([]int32, m)
			want := make([]int32, m)

			exec := must.M1(gemm.NewGemvExecutor[int8, int32](hw, transA, m, n, gemm.WithStrategy(strategy)))
			exec.Run(1, a, lda, x, 0, y)
			exec.Close()
			gemm.Reference(transA, false, m, 1, n, 1, a, lda, x, 1, 0, want, 1)
			if diff := cmp.Diff(want, y); diff != "" {
				t.Fatalf("%s transA=%v: mismatch (-want +got):\n%s", strategy.Name, transA, diff)
			}
		}
	}
}

func TestGemvExecutor_Errors(t *testing.T) {
	hw := hardware.Descriptor{L1CacheSize: 1024, L2CacheSize: 8 * 1024, NumThreads: 1}
	_, err := gemm.NewGemvExecutor[float32, float32](hw, false, 0, 4)
	assert.True(t, xerrors.IsInvalidArgument(err))
	_, err = gemm.NewGemvExecutor[float32, float32](hw, false, 4, 0)
	assert.True(t, xerrors.IsInvalidArgument(err))

	exec := must.M1(gemm.NewGemvExecutor[float32, float32](hw, false, 4, 3))
	assert.Equal(t, 1, exec.Strategy().Width)
	assert.Positive(t, exec.WorkspaceSize())
	assert.Panics(t, func() { exec.Run(1, make([]float32, 12), 3, make([]float32, 2), 0, make([]float32, 4)) }, "short x")
	exec.Close()
	assert.Panics(t, func() { exec.Run(1, make([]float32, 12), 3, make([]float32, 3), 0, make([]float32, 4)) }, "closed")
}

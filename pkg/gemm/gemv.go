// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"github.com/gomlx/qgemm/internal/workerspool"
	"github.com/gomlx/qgemm/pkg/core/hardware"
)

// GemvExecutor computes y = alpha * op(A) x + beta * y, for op(A) of shape M x N.
//
// It follows the same tiling as Executor with output tiles of width 1: the vector x is packed once
// as the only RHS column, and the rows of op(A) are split in tiles of the strategy height across threads.
type GemvExecutor[In Input, Out Output] struct {
	exec *Executor[In, Out]
}

// NewGemvExecutor creates a matrix-vector executor for op(A) of shape M x N, x of length N and y of length M.
//
// If transA is set, A is stored as N x M.
//
// It returns an error wrapping xerrors.ErrInvalidArgument if M or N are not positive or the hardware
// descriptor is invalid, and xerrors.ErrOutOfMemory if the workspace cannot be allocated.
func NewGemvExecutor[In Input, Out Output](hw hardware.Descriptor, transA bool, m, n int, opts ...Option) (*GemvExecutor[In, Out], error) {
	exec, err := newExecutor[In, Out](KindGEMV, hw, transA, false, m, 1, n, opts)
	if err != nil {
		return nil, err
	}
	return &GemvExecutor[In, Out]{exec: exec}, nil
}

// M returns the number of rows of op(A), the length of y.
func (g *GemvExecutor[In, Out]) M() int { return g.exec.m }

// N returns the number of columns of op(A), the length of x.
func (g *GemvExecutor[In, Out]) N() int { return g.exec.k }

// Strategy returns the width-1 micro-kernel strategy used.
func (g *GemvExecutor[In, Out]) Strategy() Strategy[In, Out] { return g.exec.strategy }

// WorkspaceSize returns the size in bytes of the workspace regions.
func (g *GemvExecutor[In, Out]) WorkspaceSize() int { return g.exec.WorkspaceSize() }

// SetPool changes the pool of workers used by Run, see Executor.SetPool.
func (g *GemvExecutor[In, Out]) SetPool(pool *workerspool.Pool) { g.exec.SetPool(pool) }

// Close releases the workspace and the executor's own pool of workers, if any.
func (g *GemvExecutor[In, Out]) Close() { g.exec.Close() }

// Run computes y = alpha * op(A) x + beta * y.
//
// A is stored row-major with row stride lda: as [M][lda] or, if transA, as [N][lda].
// x and y are contiguous. If beta is 0, y is write-only.
func (g *GemvExecutor[In, Out]) Run(alpha float32, a []In, lda int, x []In, beta float32, y []Out) {
	g.exec.Run(alpha, a, lda, x, 1, beta, y, 1)
}

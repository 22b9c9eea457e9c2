// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/qgemm/internal/workerspool"
	"github.com/gomlx/qgemm/pkg/core/dtypes"
	"github.com/gomlx/qgemm/pkg/core/hardware"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Executor computes C = alpha * op(A) x op(B) + beta * C for a fixed problem size M x N x K.
//
// It owns its workspace, so it is not safe to call Run concurrently on the same Executor.
// An Executor is single-use per shape: create a new one to change M, N or K.
type Executor[In Input, Out Output] struct {
	kind           Kind
	hw             hardware.Descriptor
	strategy       Strategy[In, Out]
	transA, transB bool
	m, n, k        int

	numThreads             int
	lhsTileNum, rhsTileNum int

	ws        *workspace[In, Out]
	pool      *workerspool.Pool
	ownsPool  bool
	writeBack writeBackFn[Out]
}

// Option configures an Executor.
type Option func(opts *executorOptions)

type executorOptions struct {
	strategy any
	pool     *workerspool.Pool
}

// WithStrategy forces the strategy to use, instead of the one selected by probing the CPU.
// The strategy input/output types must match the executor's.
func WithStrategy[In Input, Out Output](strategy Strategy[In, Out]) Option {
	return func(opts *executorOptions) {
		opts.strategy = strategy
	}
}

// WithPool makes the executor use the given pool of workers, instead of creating its own.
// The pool must not have more workers than the hardware descriptor's NumThreads.
// The caller keeps ownership of the pool.
func WithPool(pool *workerspool.Pool) Option {
	return func(opts *executorOptions) {
		opts.pool = pool
	}
}

// NewExecutor creates a GEMM executor for op(A) of shape M x K and op(B) of shape K x N.
//
// If transA is set, A is stored as K x M, and if transB is set, B is stored as N x K.
//
// It returns an error wrapping xerrors.ErrInvalidArgument if M, N or K are not positive or the hardware
// descriptor is invalid, and xerrors.ErrOutOfMemory if the workspace cannot be allocated.
func NewExecutor[In Input, Out Output](hw hardware.Descriptor, transA, transB bool, m, n, k int, opts ...Option) (*Executor[In, Out], error) {
	return newExecutor[In, Out](KindGEMM, hw, transA, transB, m, n, k, opts)
}

func newExecutor[In Input, Out Output](kind Kind, hw hardware.Descriptor, transA, transB bool, m, n, k int, opts []Option) (*Executor[In, Out], error) {
	if m <= 0 || n <= 0 || k <= 0 {
		return nil, xerrors.InvalidArgumentf("%s dimensions must be positive, got M=%d, N=%d, K=%d", kind, m, n, k)
	}
	if err := hw.Validate(); err != nil {
		return nil, err
	}
	var options executorOptions
	for _, opt := range opts {
		opt(&options)
	}

	e := &Executor[In, Out]{
		kind:       kind,
		hw:         hw,
		transA:     transA,
		transB:     transB,
		m:          m,
		n:          n,
		k:          k,
		numThreads: hw.NumThreads,
		writeBack:  writeBackFor[Out](),
	}
	if options.strategy != nil {
		strategy, ok := options.strategy.(Strategy[In, Out])
		if !ok {
			return nil, xerrors.InvalidArgumentf("strategy of type %T given to a %s executor for %s -> %s",
				options.strategy, kind, dtypes.FromGenericsType[In](), dtypes.FromGenericsType[Out]())
		}
		if kind == KindGEMV && strategy.Width != 1 {
			return nil, xerrors.InvalidArgumentf("GEMV requires a strategy of width 1, got %s", strategy)
		}
		e.strategy = strategy
	} else {
		var err error
		e.strategy, err = SelectStrategy[In, Out](kind, hw.Features)
		if err != nil {
			return nil, err
		}
	}
	height, width := e.strategy.Height, e.strategy.Width

	// Number of RHS columns packed at once: as many as fit in 90% of the L1 cache, in multiples
	// of the tile width, and no more than N needs.
	inSize := dtypes.FromGenericsType[In]().Size()
	l1Budget := hw.L1CacheSize * L1Fraction / 10
	e.rhsTileNum = l1Budget / (k * inSize)
	e.rhsTileNum = (e.rhsTileNum / width) * width
	e.rhsTileNum = max(e.rhsTileNum, width)
	e.rhsTileNum = min(e.rhsTileNum, CeilDiv(n, width)*width)

	// One live LHS tile per thread.
	e.lhsTileNum = e.numThreads * height

	var err error
	e.ws, err = newWorkspace[In, Out](e.numThreads, e.lhsTileNum*k, e.rhsTileNum*k, height*width*e.numThreads)
	if err != nil {
		return nil, errors.WithMessagef(err, "New%sExecutor(M=%d, N=%d, K=%d)", kind, m, n, k)
	}

	if options.pool != nil {
		e.pool = options.pool
	} else {
		e.pool = workerspool.New(e.numThreads)
		e.ownsPool = true
		runtime.AddCleanup(e, func(pool *workerspool.Pool) { pool.Close() }, e.pool)
	}

	if klog.V(1).Enabled() {
		klog.Infof("gemm: %s executor M=%d N=%d K=%d transA=%v transB=%v strategy=%s threads=%d "+
			"rhs_tile_num=%d lhs_tile_num=%d workspace=%s",
			kind, m, n, k, transA, transB, e.strategy, e.numThreads,
			e.rhsTileNum, e.lhsTileNum, humanize.IBytes(uint64(e.ws.Size())))
	}
	return e, nil
}

// M returns the number of rows of op(A) and C.
func (e *Executor[In, Out]) M() int { return e.m }

// N returns the number of columns of op(B) and C.
func (e *Executor[In, Out]) N() int { return e.n }

// K returns the contracting dimension.
func (e *Executor[In, Out]) K() int { return e.k }

// Strategy returns the micro-kernel strategy used by the executor.
func (e *Executor[In, Out]) Strategy() Strategy[In, Out] { return e.strategy }

// NumThreads returns the number of threads the workspace was partitioned for.
func (e *Executor[In, Out]) NumThreads() int { return e.numThreads }

// RHSTileNum returns the number of RHS columns packed per N chunk.
func (e *Executor[In, Out]) RHSTileNum() int { return e.rhsTileNum }

// LHSTileNum returns the number of LHS rows packed at once across all threads.
func (e *Executor[In, Out]) LHSTileNum() int { return e.lhsTileNum }

// WorkspaceSize returns the size in bytes of the workspace regions.
// It returns 0 after Close.
func (e *Executor[In, Out]) WorkspaceSize() int {
	if e.ws == nil {
		return 0
	}
	return e.ws.Size()
}

// SetPool changes the pool of workers used by Run. If the executor created its own pool, it is closed.
//
// It panics if pool is nil. The number of workers is only checked by Run, which panics if it has more
// workers than NumThreads.
func (e *Executor[In, Out]) SetPool(pool *workerspool.Pool) {
	if pool == nil {
		exceptions.Panicf("gemm: %s executor SetPool(nil), a pool of workers is required", e.kind)
	}
	if e.ownsPool && e.pool != nil {
		e.pool.Close()
	}
	e.pool = pool
	e.ownsPool = false
}

// Close releases the workspace and the executor's own pool of workers, if any.
// The executor cannot be used afterwards. It is safe to call Close more than once.
func (e *Executor[In, Out]) Close() {
	if e.ws != nil {
		e.ws.release()
		e.ws = nil
	}
	if e.ownsPool && e.pool != nil {
		e.pool.Close()
	}
	e.pool = nil
}

// Run computes C = alpha * op(A) x op(B) + beta * C.
//
// A is stored row-major with row stride lda: as [M][lda] or, if transA, as [K][lda].
// B is stored with row stride ldb: as [K][ldb] or, if transB, as [N][ldb].
// C is stored as [M][ldc].
//
// If beta is 0, C is write-only: its previous contents are ignored.
//
// Run panics if the executor was closed, if the operands are too small for the dimensions, or if the
// pool of workers has more workers than the threads the workspace was partitioned for.
func (e *Executor[In, Out]) Run(alpha float32, a []In, lda int, b []In, ldb int, beta float32, c []Out, ldc int) {
	if e.ws == nil {
		exceptions.Panicf("gemm: %s executor used after Close", e.kind)
	}
	if numWorkers := e.pool.NumWorkers(); numWorkers > e.numThreads {
		exceptions.Panicf("gemm: pool has %d workers, but the executor workspace was built for %d threads",
			numWorkers, e.numThreads)
	}
	e.checkOperands(len(a), lda, len(b), ldb, len(c), ldc)

	m, n, k := e.m, e.n, e.k
	height, width := e.strategy.Height, e.strategy.Width
	kernel := e.strategy.Kernel
	ws := e.ws
	numRowChunks := CeilDiv(m, height)

	for colStart := 0; colStart < n; colStart += e.rhsTileNum {
		numCols := min(e.rhsTileNum, n-colStart)
		packRHS(ws.rhs, b, ldb, e.transB, k, colStart, numCols, width)

		e.pool.ParallelFor(numRowChunks, func(threadID, chunk int) {
			rowStart := chunk * height
			numRows := min(height, m-rowStart)
			lhsTile := ws.lhsTile(threadID)
			packLHS(lhsTile, a, lda, e.transA, rowStart, numRows, k, height)
			outTile := ws.outTile(threadID)
			for tileStart := 0; tileStart < numCols; tileStart += width {
				rhsTile := ws.rhs[tileStart*k : (tileStart+width)*k]
				kernel(lhsTile, rhsTile, k, outTile)
				e.writeBack(alpha, beta, outTile, width, c, ldc, rowStart, colStart+tileStart,
					numRows, min(width, numCols-tileStart))
			}
		})
	}
}

// checkOperands panics if the strides or lengths of the operands don't fit the dimensions.
func (e *Executor[In, Out]) checkOperands(lenA, lda, lenB, ldb, lenC, ldc int) {
	aRows, aCols := e.m, e.k
	if e.transA {
		aRows, aCols = e.k, e.m
	}
	bRows, bCols := e.k, e.n
	if e.transB {
		bRows, bCols = e.n, e.k
	}
	check := func(name string, length, rows, cols, stride int) {
		if stride < cols {
			exceptions.Panicf("gemm: %s stride %d smaller than its %d columns", name, stride, cols)
		}
		if need := (rows-1)*stride + cols; length < need {
			exceptions.Panicf("gemm: %s has %d elements, but %dx%d with stride %d requires %d",
				name, length, rows, cols, stride, need)
		}
	}
	check("A", lenA, aRows, aCols, lda)
	check("B", lenB, bRows, bCols, ldb)
	check("C", lenC, e.m, e.n, ldc)
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/gomlx/qgemm/pkg/core/dtypes"
	"github.com/gomlx/qgemm/pkg/core/hardware"
	"github.com/gomlx/qgemm/pkg/gemm"
	"github.com/janpfeifer/must"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

const implGonum = "gonum"

// benchCase is one matrix size, input dtype and implementation to benchmark.
type benchCase struct {
	size  int
	dtype dtypes.DType
	impl  string // "qgemm" or implGonum.
}

func (c benchCase) String() string {
	return fmt.Sprintf("%s %s %dx%d", c.impl, c.dtype, c.size, c.size)
}

// result of one benchCase.
type result struct {
	benchCase
	strategy  string
	workspace int
	perRun    time.Duration
	gflops    float64
}

func benchmarkCases(sizes []int, dtypesToRun []dtypes.DType, baseline bool) []benchCase {
	var cases []benchCase
	for _, size := range sizes {
		for _, dtype := range dtypesToRun {
			cases = append(cases, benchCase{size: size, dtype: dtype, impl: "qgemm"})
			if baseline && dtype == dtypes.Float32 {
				cases = append(cases, benchCase{size: size, dtype: dtype, impl: implGonum})
			}
		}
	}
	return cases
}

func (c benchCase) run(hw hardware.Descriptor, numWarmup, numRuns int) result {
	switch {
	case c.impl == implGonum:
		return runGonum(c, numWarmup, numRuns)
	case c.dtype == dtypes.Int8:
		return runExecutor[int8, int32](c, hw, numWarmup, numRuns)
	default:
		return runExecutor[float32, float32](c, hw, numWarmup, numRuns)
	}
}

// fillOperand fills the operand with small deterministic values.
func fillOperand[T gemm.Input](data []T) {
	for ii := range data {
		data[ii] = T(ii%7 - 3)
	}
}

// timeRuns calls fn numWarmup times, and then times numRuns calls, returning the average time per run.
func timeRuns(numWarmup, numRuns int, fn func()) time.Duration {
	for range numWarmup {
		fn()
	}
	start := time.Now()
	for range numRuns {
		fn()
	}
	return time.Since(start) / time.Duration(numRuns)
}

func newResult(c benchCase, perRun time.Duration) result {
	numOps := 2 * float64(c.size) * float64(c.size) * float64(c.size) // 1 mult + 1 add.
	return result{benchCase: c, perRun: perRun, gflops: numOps / perRun.Seconds() / 1e9}
}

func runExecutor[In gemm.Input, Out gemm.Output](c benchCase, hw hardware.Descriptor, numWarmup, numRuns int) result {
	size := c.size
	a, b, out := make([]In, size*size), make([]In, size*size), make([]Out, size*size)
	fillOperand(a)
	fillOperand(b)
	exec := must.M1(gemm.NewExecutor[In, Out](hw, false, false, size, size, size))
	defer exec.Close()
	r := newResult(c, timeRuns(numWarmup, numRuns, func() {
		exec.Run(1, a, size, b, size, 0, out, size)
	}))
	r.strategy = exec.Strategy().Name
	r.workspace = exec.WorkspaceSize()
	return r
}

func runGonum(c benchCase, numWarmup, numRuns int) result {
	size := c.size
	newMatrix := func() blas32.General {
		return blas32.General{Rows: size, Cols: size, Stride: size, Data: make([]float32, size*size)}
	}
	a, b, out := newMatrix(), newMatrix(), newMatrix()
	fillOperand(a.Data)
	fillOperand(b.Data)
	r := newResult(c, timeRuns(numWarmup, numRuns, func() {
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, a, b, 0, out)
	}))
	r.strategy = "blas32.Gemm"
	return r
}

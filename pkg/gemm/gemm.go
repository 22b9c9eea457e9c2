// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gemm implements a cache-aware, multi-threaded GEMM (general matrix multiplication) executor,
// and its matrix-vector (GEMV) specialization, for float32 and for int8 inputs accumulating into int32.
//
// The executor computes C = alpha * op(A) x op(B) + beta * C, where op() optionally transposes the operand.
// It is constructed once per problem size (M, N, K), and it owns a single 64-byte aligned workspace arena,
// partitioned into the packed LHS tiles (one per thread), the packed RHS panel, and the per-thread
// output tiles.
//
// The innermost computation is done by a micro-kernel Strategy, selected once by probing the CPU
// features (see hardware.Features). A scalar strategy is always registered and serves as reference.
package gemm

// AllocRound is the granularity, in bytes, to which each workspace region is rounded up.
const AllocRound = 64

// Alignment of the workspace arena, in bytes.
const Alignment = 64

// L1Fraction is the fraction (in tenths) of the L1 cache budgeted for the packed RHS panel.
const L1Fraction = 9

// Input is the constraint of the input (operand) types of the kernels.
type Input interface {
	float32 | int8
}

// Output is the constraint of the output (accumulator) types of the kernels.
type Output interface {
	float32 | int32
}

// RoundUp rounds x up to a multiple of AllocRound.
func RoundUp(x int) int {
	return ((x + AllocRound - 1) / AllocRound) * AllocRound
}

// CeilDiv returns x/y rounded up.
func CeilDiv(x, y int) int {
	return (x + y - 1) / y
}

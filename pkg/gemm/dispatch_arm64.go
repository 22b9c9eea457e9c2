// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build arm64

package gemm

// kernelHeight on arm64: 32 vector registers fit 12x8 accumulators.
const kernelHeight = 12

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build !arm64

package gemm

// kernelHeight on architectures with 16 vector registers (or none).
const kernelHeight = 6

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import "fmt"

// Output tile shape of the GEMM strategies. The height (kernelHeight) is set per architecture.
const kernelWidth = 8

func init() {
	registerStrategies[float32, float32]()
	registerStrategies[int8, int32]()
}

func registerStrategies[In Input, Out Output]() {
	RegisterStrategy(KindGEMM, Strategy[In, Out]{
		Name:   fmt.Sprintf("scalar-%dx%d", kernelHeight, kernelWidth),
		Height: kernelHeight, Width: kernelWidth,
		Kernel: ScalarKernel[In, Out](kernelHeight, kernelWidth),
	}, PriorityBase, Always)
	RegisterStrategy(KindGEMM, Strategy[In, Out]{
		Name:   fmt.Sprintf("unrolled-%dx%d", kernelHeight, kernelWidth),
		Height: kernelHeight, Width: kernelWidth,
		Kernel: UnrolledKernel8[In, Out](kernelHeight),
	}, PriorityBase+1, Always)

	RegisterStrategy(KindGEMV, Strategy[In, Out]{
		Name:   fmt.Sprintf("scalar-%dx1", kernelHeight),
		Height: kernelHeight, Width: 1,
		Kernel: ScalarKernel[In, Out](kernelHeight, 1),
	}, PriorityBase, Always)
	RegisterStrategy(KindGEMV, Strategy[In, Out]{
		Name:   fmt.Sprintf("unrolled-%dx1", kernelHeight),
		Height: kernelHeight, Width: 1,
		Kernel: UnrolledGemvKernel[In, Out](kernelHeight),
	}, PriorityBase+1, Always)
}

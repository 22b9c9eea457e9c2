// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the data type and axes' dimensions of a row-major tensor.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/qgemm/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// Shape represents the shape of a tensor: its data type and the dimensions of each axis.
//
// A shape with no dimensions is a scalar. The memory layout is always row-major.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape structure filled with the values given.
// It panics if any of the dimensions is negative.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	for _, dim := range dimensions {
		if dim < 0 {
			panic(errors.Errorf("shapes.Make(%s, %v): cannot create a shape with a negative axis dimension", dtype, dimensions))
		}
	}
	return Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
}

// Ok returns whether this is a valid Shape.
func (s Shape) Ok() bool { return s.DType.IsSupported() }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar.
func (s Shape) IsScalar() bool { return s.Ok() && len(s.Dimensions) == 0 }

// Dim returns the dimension of the given axis. Negative axes are counted from the end.
func (s Shape) Dim(axis int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += s.Rank()
	}
	if adjusted < 0 || adjusted >= s.Rank() {
		panic(errors.Errorf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s))
	}
	return s.Dimensions[adjusted]
}

// Size returns the number of elements of the shape: the product of its dimensions.
// A scalar has size 1.
func (s Shape) Size() int {
	size := 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return size
}

// Memory returns the number of bytes used to store a tensor of this shape.
func (s Shape) Memory() uintptr {
	return uintptr(s.DType.SizeForDimensions(s.Dimensions...))
}

// Strides returns the strides for each axis of the shape, assuming the row-major layout.
//
// Notice the strides are **not in bytes**, but in indices.
func (s Shape) Strides() (strides []int) {
	rank := s.Rank()
	if rank == 0 {
		return
	}
	strides = make([]int, rank)
	currentStride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= s.Dimensions[axis]
	}
	return
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	return s.DType == s2.DType && slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// String implements fmt.Stringer, e.g.: "(Float32)[4 4]".
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, len(s.Dimensions))
	for ii, dim := range s.Dimensions {
		parts[ii] = fmt.Sprintf("%d", dim)
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

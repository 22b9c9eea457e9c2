// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements Tensor, a typed, row-major, contiguous multidimensional array held in local memory.
//
// It is the thin tensor abstraction the quantization and GEMM kernels read from and write to:
// the kernels themselves only see flat slices, and tensors carry the shape alongside.
//
// There are various ways to construct a Tensor:
//
//   - FromShape[T](dimensions...): creates a tensor with the given dimensions, and zero values.
//   - FromScalarAndDimensions[T](value, dimensions...): creates a Tensor filled with the given value.
//   - FromFlatDataAndDimensions[T](data, dimensions...): creates a Tensor that shares the given flat data.
//     Example:
//
//     t := FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
package tensors

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/qgemm/pkg/core/dtypes"
	"github.com/gomlx/qgemm/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Tensor is a multidimensional array of T, stored flat in row-major order.
//
// Tensors are not safe for concurrent mutation; the owner (the caller of the kernels) is
// responsible for synchronization.
type Tensor[T dtypes.Supported] struct {
	shape shapes.Shape
	flat  []T
}

// FromShape returns a zero-initialized tensor with the given dimensions.
func FromShape[T dtypes.Supported](dimensions ...int) *Tensor[T] {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	return &Tensor[T]{shape: shape, flat: make([]T, shape.Size())}
}

// FromScalarAndDimensions returns a tensor with the given dimensions, filled with value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor[T] {
	t := FromShape[T](dimensions...)
	for ii := range t.flat {
		t.flat[ii] = value
	}
	return t
}

// FromFlatDataAndDimensions returns a tensor that shares the storage of data, with the given dimensions.
//
// It returns an error if the number of elements doesn't match the dimensions.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) (*Tensor[T], error) {
	for _, dim := range dimensions {
		if dim < 0 {
			return nil, errors.Errorf("FromFlatDataAndDimensions: negative dimension in %v", dimensions)
		}
	}
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if shape.Size() != len(data) {
		return nil, errors.Errorf("FromFlatDataAndDimensions: dimensions %v require %d elements, got %d",
			dimensions, shape.Size(), len(data))
	}
	return &Tensor[T]{shape: shape, flat: data}, nil
}

// MustFromFlatDataAndDimensions is like FromFlatDataAndDimensions, but panics on error.
func MustFromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor[T] {
	t, err := FromFlatDataAndDimensions(data, dimensions...)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns the shape of the tensor. It should not be modified.
func (t *Tensor[T]) Shape() shapes.Shape { return t.shape }

// DType returns the data type of the tensor's elements.
func (t *Tensor[T]) DType() dtypes.DType { return t.shape.DType }

// Rank returns the number of axes of the tensor.
func (t *Tensor[T]) Rank() int { return t.shape.Rank() }

// Size returns the number of elements of the tensor.
func (t *Tensor[T]) Size() int { return len(t.flat) }

// Memory returns the number of bytes used by the tensor's data.
func (t *Tensor[T]) Memory() uintptr { return t.shape.Memory() }

// Flat returns the underlying flat data of the tensor, shared (not copied).
func (t *Tensor[T]) Flat() []T { return t.flat }

// CopyFlatData returns a copy of the flat data.
func (t *Tensor[T]) CopyFlatData() []T { return slices.Clone(t.flat) }

// Reshape returns a tensor sharing the same data with new dimensions.
// It panics if the number of elements differs.
func (t *Tensor[T]) Reshape(dimensions ...int) *Tensor[T] {
	newT, err := FromFlatDataAndDimensions(t.flat, dimensions...)
	if err != nil {
		exceptions.Panicf("Tensor.Reshape(%v) from %s: %v", dimensions, t.shape, err)
	}
	return newT
}

// At returns the element at the given indices. It panics if the indices are out of bounds.
func (t *Tensor[T]) At(indices ...int) T {
	return t.flat[t.flatIndex(indices)]
}

// Set sets the element at the given indices. It panics if the indices are out of bounds.
func (t *Tensor[T]) Set(value T, indices ...int) {
	t.flat[t.flatIndex(indices)] = value
}

func (t *Tensor[T]) flatIndex(indices []int) int {
	if len(indices) != t.shape.Rank() {
		exceptions.Panicf("tensor of shape %s indexed with %d indices", t.shape, len(indices))
	}
	idx := 0
	for axis, i := range indices {
		dim := t.shape.Dimensions[axis]
		if i < 0 || i >= dim {
			exceptions.Panicf("index %d out of bounds for axis %d of tensor shape %s", i, axis, t.shape)
		}
		idx = idx*dim + i
	}
	return idx
}

// ToScalar returns the only element of a tensor of size 1.
func ToScalar[T dtypes.Supported](t *Tensor[T]) T {
	if t.Size() != 1 {
		exceptions.Panicf("ToScalar requires a tensor of size 1, got shape %s", t.shape)
	}
	return t.flat[0]
}

// String implements fmt.Stringer, printing the shape and up to the first 16 elements.
func (t *Tensor[T]) String() string {
	if len(t.flat) <= 16 {
		return fmt.Sprintf("%s%v", t.shape, t.flat)
	}
	return fmt.Sprintf("%s%v...", t.shape, t.flat[:16])
}

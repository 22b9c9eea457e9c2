// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes includes the DType enum for the data types handled by the quantized GEMM runtime,
// and the generics constraints used by its kernels.
//
// It is a narrow fork of github.com/gomlx/gomlx/pkg/core/dtypes: only the types that flow through
// quantization (float32 -> int8) and integer accumulation (int8 x int8 -> int32) are supported.
package dtypes

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// panicf panics with the formatted description.
//
// It is only used for "bugs in the code" -- when parameters don't follow the specifications.
func panicf(format string, args ...any) {
	panic(errors.Errorf(format, args...))
}

// Supported lists the Go types that have a corresponding DType.
type Supported interface {
	float32 | int8 | int32
}

// Number is any Go numeric type that can be used in generic arithmetic.
type Number interface {
	constraints.Integer | constraints.Float
}

// FromGenericsType returns the DType enum for the given type that this package knows about.
func FromGenericsType[T Supported]() DType {
	var t T
	switch (any(t)).(type) {
	case float32:
		return Float32
	case int8:
		return Int8
	case int32:
		return Int32
	}
	return InvalidDType
}

// FromName returns the DType for the given name (case-insensitive aliases included), or an error.
func FromName(name string) (DType, error) {
	dtype, found := MapOfNames[name]
	if !found {
		return InvalidDType, errors.Errorf("unknown dtype %q", name)
	}
	return dtype, nil
}

// Size returns the number of bytes for the given DType.
// It panics for InvalidDType.
func (dtype DType) Size() int {
	switch dtype {
	case Int8:
		return 1
	case Int32, Float32:
		return 4
	default:
		panicf("Size() not defined for dtype %s", dtype)
	}
	return 0
}

// Bits returns the number of bits for the given DType.
func (dtype DType) Bits() int {
	return dtype.Size() * 8
}

// SizeForDimensions returns the size in bytes used for the given dimensions.
func (dtype DType) SizeForDimensions(dimensions ...int) int {
	numElements := 1
	for _, dim := range dimensions {
		if dim < 0 {
			panicf("dim cannot be negative for SizeForDimensions, got %v", dimensions)
		}
		numElements *= dim
	}
	return numElements * dtype.Size()
}

// IsFloat returns whether dtype is a floating point type.
func (dtype DType) IsFloat() bool {
	return dtype == Float32
}

// IsInt returns whether dtype is a signed integer type.
func (dtype DType) IsInt() bool {
	return dtype == Int8 || dtype == Int32
}

// IsSupported returns whether dtype is one of the DTypes handled by this package.
func (dtype DType) IsSupported() bool {
	return dtype == Float32 || dtype == Int8 || dtype == Int32
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xerrors defines the error kinds returned by the quantization and GEMM kernels.
//
// Errors are created with github.com/pkg/errors, so they carry a stack trace (print with "%+v"),
// and they wrap one of the sentinels below, so callers can test the kind with errors.Is.
package xerrors

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for non-positive dimensions, unsupported rounding policies,
	// malformed configurations and mismatched buffer sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfMemory is returned when a workspace cannot be allocated.
	ErrOutOfMemory = errors.New("out of memory")
)

// InvalidArgumentf returns an error wrapping ErrInvalidArgument with the formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// OutOfMemoryf returns an error wrapping ErrOutOfMemory with the formatted message.
func OutOfMemoryf(format string, args ...any) error {
	return errors.Wrapf(ErrOutOfMemory, format, args...)
}

// IsInvalidArgument reports whether err is (or wraps) ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsOutOfMemory reports whether err is (or wraps) ErrOutOfMemory.
func IsOutOfMemory(err error) bool {
	return errors.Is(err, ErrOutOfMemory)
}

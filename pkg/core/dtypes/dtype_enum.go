// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

// DType is an enum that represents the data type of a tensor or of the operands of a kernel.
//
// The numeric values follow the PJRT buffer type numbering used across GoMLX, so values
// can be exchanged with other GoMLX packages.
type DType int32

const (
	// InvalidDType is the zero value, used for unsupported or unknown types.
	InvalidDType DType = 0

	// Int8 is a signed 8-bit integer, the storage type of quantized values.
	Int8 DType = 2

	// Int32 is a signed 32-bit integer, the accumulator type of int8 GEMM.
	Int32 DType = 4

	// Float32 is the 32-bit IEEE 754 floating point type.
	Float32 DType = 11
)

// MapOfNames maps the names (and lower-case aliases) to the DType values.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"Int8":         Int8,
	"Int32":        Int32,
	"Float32":      Float32,
	"invaliddtype": InvalidDType,
	"int8":         Int8,
	"int32":        Int32,
	"float32":      Float32,
	"i8":           Int8,
	"i32":          Int32,
	"f32":          Float32,
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	switch dtype {
	case Int8:
		return "Int8"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	default:
		return "InvalidDType"
	}
}

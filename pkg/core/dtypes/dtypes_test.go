// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGenericsType(t *testing.T) {
	assert.Equal(t, Float32, FromGenericsType[float32]())
	assert.Equal(t, Int8, FromGenericsType[int8]())
	assert.Equal(t, Int32, FromGenericsType[int32]())
}

func TestSize(t *testing.T) {
	assert.Equal(t, 1, Int8.Size())
	assert.Equal(t, 4, Int32.Size())
	assert.Equal(t, 32, Float32.Bits())
	assert.Equal(t, 2*3*4, Float32.SizeForDimensions(2, 3))
	assert.Panics(t, func() { _ = InvalidDType.Size() })
	assert.Panics(t, func() { _ = Int8.SizeForDimensions(-1) })
}

func TestFromName(t *testing.T) {
	for _, name := range []string{"Float32", "float32", "f32"} {
		dtype, err := FromName(name)
		require.NoError(t, err)
		assert.Equal(t, Float32, dtype)
	}
	_, err := FromName("complex64")
	require.Error(t, err)
	assert.Equal(t, "Int8", Int8.String())
	assert.True(t, Int32.IsInt())
	assert.False(t, Float32.IsInt())
	assert.False(t, InvalidDType.IsSupported())
}

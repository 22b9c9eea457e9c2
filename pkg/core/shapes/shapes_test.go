// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/qgemm/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3, 4)
	require.True(t, s.Ok())
	assert.Equal(t, 3, s.Rank())
	assert.Equal(t, 24, s.Size())
	assert.Equal(t, uintptr(96), s.Memory())
	assert.Equal(t, 4, s.Dim(-1))
	assert.Equal(t, 2, s.Dim(0))
	assert.Panics(t, func() { _ = s.Dim(3) })
	assert.Equal(t, "(Float32)[2 3 4]", s.String())

	scalar := Make(dtypes.Int8)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 1, scalar.Size())
	assert.Equal(t, "(Int8)", scalar.String())

	assert.Panics(t, func() { _ = Make(dtypes.Int32, 2, -1) })
}

func TestShape_Strides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Make(dtypes.Int32, 2, 3, 4).Strides())
	assert.Nil(t, Make(dtypes.Int32).Strides())
}

func TestShape_EqualAndClone(t *testing.T) {
	s := Make(dtypes.Int8, 4, 4)
	c := s.Clone()
	assert.True(t, s.Equal(c))
	c.Dimensions[0] = 5
	assert.False(t, s.Equal(c))
	assert.False(t, s.Equal(Make(dtypes.Int32, 4, 4)))
}

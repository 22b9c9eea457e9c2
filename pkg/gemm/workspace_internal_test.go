// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"math"
	"testing"
	"unsafe"

	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundUpAndCeilDiv(t *testing.T) {
	assert.Equal(t, 0, RoundUp(0))
	assert.Equal(t, 64, RoundUp(1))
	assert.Equal(t, 64, RoundUp(64))
	assert.Equal(t, 128, RoundUp(65))
	assert.Equal(t, 3, CeilDiv(7, 3))
	assert.Equal(t, 2, CeilDiv(6, 3))
}

func addressOf[T any](s []T) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(s)))
}

func TestWorkspace_Layout(t *testing.T) {
	const numThreads, k = 3, 17
	ws, err := newWorkspace[int8, int32](numThreads, numThreads*6*k, 24*k, numThreads*6*8)
	require.NoError(t, err)

	assert.Equal(t, RoundUp(numThreads*6*k), ws.lhsBytes)
	assert.Equal(t, RoundUp(24*k), ws.rhsBytes)
	assert.Equal(t, RoundUp(numThreads*6*8*4), ws.outBytes)
	assert.Equal(t, ws.lhsBytes+ws.rhsBytes+ws.outBytes, ws.Size())

	// Every region starts 64-bytes aligned, in order, without overlapping.
	lhsAddr, rhsAddr, outAddr := addressOf(ws.lhs), addressOf(ws.rhs), addressOf(ws.out)
	for _, addr := range []uintptr{lhsAddr, rhsAddr, outAddr} {
		assert.Zero(t, addr%Alignment)
	}
	assert.Equal(t, lhsAddr+uintptr(ws.lhsBytes), rhsAddr)
	assert.Equal(t, rhsAddr+uintptr(ws.rhsBytes), outAddr)
	assert.LessOrEqual(t, lhsAddr+uintptr(len(ws.lhs)), rhsAddr)
	assert.LessOrEqual(t, rhsAddr+uintptr(len(ws.rhs)), outAddr)
	arenaEnd := addressOf(ws.arena) + uintptr(len(ws.arena))
	assert.LessOrEqual(t, outAddr+uintptr(4*len(ws.out)), arenaEnd)

	// Per-thread tiles are disjoint: fill each with its thread id and check nothing was overwritten.
	for threadID := range numThreads {
		for ii := range ws.lhsTile(threadID) {
			ws.lhsTile(threadID)[ii] = int8(threadID + 1)
		}
		for ii := range ws.outTile(threadID) {
			ws.outTile(threadID)[ii] = int32(threadID + 1)
		}
	}
	for threadID := range numThreads {
		for _, v := range ws.lhsTile(threadID) {
			require.Equal(t, int8(threadID+1), v)
		}
		for _, v := range ws.outTile(threadID) {
			require.Equal(t, int32(threadID+1), v)
		}
		assert.Len(t, ws.lhsTile(threadID), 6*k)
		assert.Len(t, ws.outTile(threadID), 6*8)
	}

	ws.release()
	assert.Nil(t, ws.arena)
	assert.Nil(t, ws.lhs)
}

func TestWorkspace_Errors(t *testing.T) {
	_, err := newWorkspace[float32, float32](2, 3, 8, 8)
	assert.True(t, xerrors.IsInvalidArgument(err), "lhs elements not divisible by threads: %v", err)

	_, err = newWorkspace[float32, float32](1, math.MaxInt/2, 8, 8)
	assert.True(t, xerrors.IsOutOfMemory(err), "overflowing request: %v", err)

	saved := MaxWorkspaceBytes
	defer func() { MaxWorkspaceBytes = saved }()
	MaxWorkspaceBytes = 1024
	_, err = newWorkspace[float32, float32](1, 1024, 8, 8)
	assert.True(t, xerrors.IsOutOfMemory(err), "request above MaxWorkspaceBytes: %v", err)
	_, err = newWorkspace[float32, float32](1, 16, 16, 16)
	assert.NoError(t, err)
}

func TestPackRHS(t *testing.T) {
	// B is K x N = 2 x 5, stored [K][ldb] with ldb=6.
	b := []int8{
		1, 2, 3, 4, 5, -1,
		6, 7, 8, 9, 10, -1,
	}
	dst := make([]int8, 2*2*4)
	packRHS(dst, b, 6, false, 2, 1, 4, 2) // columns [1, 5) in tiles of width 2.
	want := []int8{
		2, 3, 7, 8, // tile 0: [k][2]
		4, 5, 9, 10, // tile 1
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("packRHS mismatch (-want +got):\n%s", diff)
	}

	// Same B transposed: stored [N][ldb] = 5 x 2 with ldb=3, and zero-padding of the last tile.
	bT := []int8{
		1, 6, -1,
		2, 7, -1,
		3, 8, -1,
		4, 9, -1,
		5, 10, -1,
	}
	for ii := range dst {
		dst[ii] = 99
	}
	packRHS(dst, bT, 3, true, 2, 2, 3, 2) // columns [2, 5)
	want = []int8{
		3, 4, 8, 9,
		5, 0, 10, 0,
		99, 99, 99, 99,
		99, 99, 99, 99,
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("packRHS(transposed) mismatch (-want +got):\n%s", diff)
	}
}

func TestPackLHS(t *testing.T) {
	// A is M x K = 3 x 2 stored [M][lda] with lda=3.
	a := []float32{
		1, 2, -1,
		3, 4, -1,
		5, 6, -1,
	}
	dst := make([]float32, 2*4)
	packLHS(dst, a, 3, false, 1, 2, 2, 4) // rows [1, 3), height 4.
	want := []float32{
		3, 5, 0, 0, // k=0
		4, 6, 0, 0, // k=1
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("packLHS mismatch (-want +got):\n%s", diff)
	}

	// A transposed: stored [K][lda] = 2 x 3 with lda=4.
	aT := []float32{
		1, 3, 5, -1,
		2, 4, 6, -1,
	}
	for ii := range dst {
		dst[ii] = 99
	}
	packLHS(dst, aT, 4, true, 0, 3, 2, 4)
	want = []float32{
		1, 3, 5, 0,
		2, 4, 6, 0,
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("packLHS(transposed) mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteBack(t *testing.T) {
	tile := []int32{10, 20, 30, 40}
	c := []int32{1, 2, 3, 4}
	writeBackInt32(1, 0, tile, 2, c, 2, 0, 0, 2, 2)
	assert.Equal(t, []int32{10, 20, 30, 40}, c)

	c = []int32{1, 2, 3, 4}
	writeBackInt32(0.5, 2, tile, 2, c, 2, 0, 0, 2, 1)
	assert.Equal(t, []int32{7, 2, 21, 4}, c)

	c = []int32{0}
	writeBackInt32(1e10, 0, tile, 2, c, 1, 0, 0, 1, 1)
	assert.Equal(t, int32(math.MaxInt32), c[0])

	cf := []float32{float32(math.NaN()), 1}
	writeBackFloat32(2, 0, []float32{1.5, 2}, 2, cf, 2, 0, 0, 1, 2)
	assert.Equal(t, []float32{3, 4}, cf)
	writeBackFloat32(1, 1, []float32{1.5, 2}, 2, cf, 2, 0, 0, 1, 2)
	assert.Equal(t, []float32{4.5, 6}, cf)
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"math"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/qgemm/pkg/core/dtypes"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
)

// MaxWorkspaceBytes is the largest workspace an executor is allowed to allocate.
// Larger requests fail with xerrors.ErrOutOfMemory.
var MaxWorkspaceBytes = 1 << 30

// workspace is a single aligned arena partitioned in three disjoint regions:
//
//   - lhs: numThreads packed LHS tiles, one per thread, each of lhsStride elements.
//   - rhs: the packed RHS panel, shared (read-only) by all threads during a parallel region.
//   - out: numThreads output tiles, one per thread, each of outStride elements.
//
// The views are offsets into arena: they are never handed to callers.
type workspace[In Input, Out Output] struct {
	arena []byte

	lhs, rhs []In
	out      []Out

	lhsStride, outStride int

	// Region sizes in bytes, rounded up to AllocRound.
	lhsBytes, rhsBytes, outBytes int
}

// newWorkspace allocates the arena for the given number of elements per region.
// lhsElems and outElems are split evenly among numThreads.
func newWorkspace[In Input, Out Output](numThreads, lhsElems, rhsElems, outElems int) (*workspace[In, Out], error) {
	inSize := dtypes.FromGenericsType[In]().Size()
	outSize := dtypes.FromGenericsType[Out]().Size()
	if numThreads <= 0 || lhsElems <= 0 || rhsElems <= 0 || outElems <= 0 ||
		lhsElems%numThreads != 0 || outElems%numThreads != 0 {
		return nil, xerrors.InvalidArgumentf("invalid workspace request: threads=%d lhs=%d rhs=%d out=%d",
			numThreads, lhsElems, rhsElems, outElems)
	}
	ws := &workspace[In, Out]{
		lhsStride: lhsElems / numThreads,
		outStride: outElems / numThreads,
	}
	var ok bool
	if ws.lhsBytes, ok = regionBytes(lhsElems, inSize); !ok {
		return nil, xerrors.OutOfMemoryf("LHS workspace of %d x %d bytes overflows", lhsElems, inSize)
	}
	if ws.rhsBytes, ok = regionBytes(rhsElems, inSize); !ok {
		return nil, xerrors.OutOfMemoryf("RHS workspace of %d x %d bytes overflows", rhsElems, inSize)
	}
	if ws.outBytes, ok = regionBytes(outElems, outSize); !ok {
		return nil, xerrors.OutOfMemoryf("output workspace of %d x %d bytes overflows", outElems, outSize)
	}
	total := ws.Size()
	if total > MaxWorkspaceBytes-Alignment || total < 0 {
		return nil, xerrors.OutOfMemoryf("workspace of %d bytes exceeds the limit of %d bytes", total, MaxWorkspaceBytes)
	}

	// Allocate with slack for the alignment.
	err := exceptions.TryCatch[error](func() {
		ws.arena = make([]byte, total+Alignment)
	})
	if err != nil {
		return nil, xerrors.OutOfMemoryf("failed to allocate workspace of %d bytes: %v", total+Alignment, err)
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(ws.arena)))
	offset := int((Alignment - base%Alignment) % Alignment)
	ws.lhs = unsafe.Slice((*In)(unsafe.Pointer(&ws.arena[offset])), lhsElems)
	offset += ws.lhsBytes
	ws.rhs = unsafe.Slice((*In)(unsafe.Pointer(&ws.arena[offset])), rhsElems)
	offset += ws.rhsBytes
	ws.out = unsafe.Slice((*Out)(unsafe.Pointer(&ws.arena[offset])), outElems)
	return ws, nil
}

// regionBytes returns RoundUp(numElems*elemSize), and false if it overflows.
func regionBytes(numElems, elemSize int) (int, bool) {
	if numElems > (math.MaxInt-AllocRound)/elemSize {
		return 0, false
	}
	return RoundUp(numElems * elemSize), true
}

// Size of the three regions in bytes, not counting the alignment slack.
func (ws *workspace[In, Out]) Size() int {
	return ws.lhsBytes + ws.rhsBytes + ws.outBytes
}

// lhsTile returns the packed LHS tile owned by threadID.
func (ws *workspace[In, Out]) lhsTile(threadID int) []In {
	start := threadID * ws.lhsStride
	return ws.lhs[start : start+ws.lhsStride : start+ws.lhsStride]
}

// outTile returns the output tile owned by threadID.
func (ws *workspace[In, Out]) outTile(threadID int) []Out {
	start := threadID * ws.outStride
	return ws.out[start : start+ws.outStride : start+ws.outStride]
}

// release drops the references to the arena.
func (ws *workspace[In, Out]) release() {
	ws.lhs, ws.rhs, ws.out = nil, nil, nil
	ws.arena = nil
}

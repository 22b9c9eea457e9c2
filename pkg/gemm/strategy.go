// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/qgemm/pkg/core/dtypes"
	"github.com/gomlx/qgemm/pkg/core/hardware"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"k8s.io/klog/v2"
)

// Kernel computes one Height x Width output tile.
//
// lhs is a packed LHS tile laid out as [k][Height], rhs is a packed RHS tile laid out as [k][Width],
// and out receives the row-major [Height][Width] tile: out[r*Width+c] = sum_p lhs[p*Height+r] * rhs[p*Width+c].
// Every output is accumulated in increasing p order, so results don't depend on how tiles are scheduled.
type Kernel[In Input, Out Output] func(lhs, rhs []In, k int, out []Out)

// Strategy describes a micro-kernel: the output tile shape it computes and the function that computes it.
type Strategy[In Input, Out Output] struct {
	// Name of the strategy, used for logging and testing.
	Name string

	// Height and Width of the output tile computed by Kernel.
	Height, Width int

	// Kernel that computes one output tile.
	Kernel Kernel[In, Out]
}

// DTypes returns the input and output dtypes of the strategy.
func (s Strategy[In, Out]) DTypes() DTypePair {
	return DTypePair{Input: dtypes.FromGenericsType[In](), Output: dtypes.FromGenericsType[Out]()}
}

// String implements fmt.Stringer.
func (s Strategy[In, Out]) String() string {
	return fmt.Sprintf("%s(%s->%s, %dx%d)", s.Name, s.DTypes().Input, s.DTypes().Output, s.Height, s.Width)
}

// Kind of computation a strategy is used for.
type Kind int

const (
	// KindGEMM strategies compute matrix x matrix tiles.
	KindGEMM Kind = iota

	// KindGEMV strategies compute matrix x vector tiles: their Width is always 1.
	KindGEMV
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindGEMM:
		return "GEMM"
	case KindGEMV:
		return "GEMV"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DTypePair represents the input/output types of a strategy.
type DTypePair struct {
	Input, Output dtypes.DType
}

// Priority of a registered strategy: the available strategy with the highest priority is selected.
type Priority int

const (
	// PriorityBase is the priority of the scalar strategies, always available.
	PriorityBase Priority = 0

	// PriorityDTypeSIMD is the priority of strategies that require vector registers.
	PriorityDTypeSIMD Priority = 10
)

// registration of a strategy: the strategy itself is stored as an `any`, and cast back to
// Strategy[In, Out] by the generic accessors.
type registration struct {
	name        string
	kind        Kind
	dtypes      DTypePair
	priority    Priority
	isAvailable func(hardware.Features) bool
	strategy    any
}

type registryKey struct {
	kind   Kind
	dtypes DTypePair
}

type selectionKey struct {
	registryKey
	features hardware.Features
}

var (
	registryMu sync.Mutex
	registry   = make(map[registryKey][]*registration)
	selected   = make(map[selectionKey]*registration)
)

// Always can be used as the availability check of strategies that run everywhere.
func Always(hardware.Features) bool { return true }

// RegisterStrategy registers a strategy for the given kind of computation.
//
// isAvailable is called (once per distinct set of features) to check whether the strategy can run on the CPU.
// It should be called during package initialization. It panics if the strategy is malformed.
func RegisterStrategy[In Input, Out Output](kind Kind, strategy Strategy[In, Out], priority Priority, isAvailable func(hardware.Features) bool) {
	if strategy.Kernel == nil || strategy.Height <= 0 || strategy.Width <= 0 {
		exceptions.Panicf("gemm.RegisterStrategy(%s): invalid strategy %s", kind, strategy)
	}
	if kind == KindGEMV && strategy.Width != 1 {
		exceptions.Panicf("gemm.RegisterStrategy(%s): GEMV strategy %s must have Width 1", kind, strategy)
	}
	if isAvailable == nil {
		isAvailable = Always
	}
	reg := &registration{
		name:        strategy.Name,
		kind:        kind,
		dtypes:      strategy.DTypes(),
		priority:    priority,
		isAvailable: isAvailable,
		strategy:    strategy,
	}
	key := registryKey{kind: kind, dtypes: reg.dtypes}

	registryMu.Lock()
	defer registryMu.Unlock()
	regs := append(registry[key], reg)
	// Highest priority first, stable for equal priorities.
	slices.SortStableFunc(regs, func(a, b *registration) int { return int(b.priority) - int(a.priority) })
	registry[key] = regs
	// Invalidate previous selections for this key.
	for selKey := range selected {
		if selKey.registryKey == key {
			delete(selected, selKey)
		}
	}
}

// Registered returns all strategies registered for the kind and types, highest priority first,
// regardless of whether they are available on the current CPU.
func Registered[In Input, Out Output](kind Kind) []Strategy[In, Out] {
	key := registryKey{kind: kind, dtypes: DTypePair{Input: dtypes.FromGenericsType[In](), Output: dtypes.FromGenericsType[Out]()}}
	registryMu.Lock()
	defer registryMu.Unlock()
	strategies := make([]Strategy[In, Out], 0, len(registry[key]))
	for _, reg := range registry[key] {
		strategies = append(strategies, reg.strategy.(Strategy[In, Out]))
	}
	return strategies
}

// Available returns the strategies registered for the kind and types that can run with the given features,
// highest priority first.
func Available[In Input, Out Output](kind Kind, features hardware.Features) []Strategy[In, Out] {
	key := registryKey{kind: kind, dtypes: DTypePair{Input: dtypes.FromGenericsType[In](), Output: dtypes.FromGenericsType[Out]()}}
	registryMu.Lock()
	defer registryMu.Unlock()
	var strategies []Strategy[In, Out]
	for _, reg := range registry[key] {
		if reg.isAvailable(features) {
			strategies = append(strategies, reg.strategy.(Strategy[In, Out]))
		}
	}
	return strategies
}

// SelectStrategy returns the highest priority strategy available for the features.
//
// The selection is resolved once per kind, dtypes and features, and cached.
// It returns an error wrapping xerrors.ErrInvalidArgument if there are no strategies for the types.
func SelectStrategy[In Input, Out Output](kind Kind, features hardware.Features) (Strategy[In, Out], error) {
	pair := DTypePair{Input: dtypes.FromGenericsType[In](), Output: dtypes.FromGenericsType[Out]()}
	key := selectionKey{registryKey: registryKey{kind: kind, dtypes: pair}, features: features}

	registryMu.Lock()
	defer registryMu.Unlock()
	reg, found := selected[key]
	if !found {
		for _, candidate := range registry[key.registryKey] {
			if candidate.isAvailable(features) {
				reg = candidate
				break
			}
		}
		if reg == nil {
			return Strategy[In, Out]{}, xerrors.InvalidArgumentf("gemm: no %s strategy registered for %s -> %s",
				kind, pair.Input, pair.Output)
		}
		selected[key] = reg
		klog.V(1).Infof("gemm: selected %s strategy %q for %s -> %s (features=%s)",
			kind, reg.name, pair.Input, pair.Output, features)
	}
	return reg.strategy.(Strategy[In, Out]), nil
}

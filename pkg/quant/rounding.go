// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package quant

import "math"

// RoundingPolicy defines how scaled values are rounded to integers during quantization.
type RoundingPolicy int

//go:generate go tool enumer -type=RoundingPolicy -trimprefix=Round -transform=snake -text -output=gen_roundingpolicy_enumer.go rounding.go

const (
	// RoundNearestEven rounds to the nearest integer, with halfway values resolved to the even one
	// (banker's rounding): 0.5 -> 0, 1.5 -> 2, 2.5 -> 2.
	RoundNearestEven RoundingPolicy = iota

	// RoundTowardZero truncates the fractional part: 1.9 -> 1, -1.9 -> -1.
	RoundTowardZero

	// RoundAwayFromZero rounds halfway values away from zero: 0.5 -> 1, -0.5 -> -1.
	RoundAwayFromZero
)

// roundFn returns the rounding function for the policy, or nil if the policy is unknown.
func (p RoundingPolicy) roundFn() func(float64) float64 {
	switch p {
	case RoundNearestEven:
		return math.RoundToEven
	case RoundTowardZero:
		return math.Trunc
	case RoundAwayFromZero:
		return math.Round
	default:
		return nil
	}
}

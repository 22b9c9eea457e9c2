// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build arm64

package hardware

import "golang.org/x/sys/cpu"

func probeFeatures() Features {
	return Features{
		HasASIMD: cpu.ARM64.HasASIMD,
		HasSVE:   cpu.ARM64.HasSVE,
	}
}

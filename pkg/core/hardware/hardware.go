// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package hardware describes the CPU the kernels run on: cache sizes, thread count and SIMD features.
//
// A Descriptor is an immutable snapshot: executors read it at construction time and never mutate it.
// Use New to get the default descriptor for the machine, which can be overridden with the environment
// variable QGEMM_HARDWARE, or NewWithConfig for an explicit configuration.
package hardware

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Default cache sizes, used when they cannot be probed.
const (
	DefaultL1CacheSize = 32 * 1024
	DefaultL2CacheSize = 512 * 1024
)

// Descriptor holds the hardware parameters used to tile the computations.
type Descriptor struct {
	// L1CacheSize is the size in bytes of the per-core L1 data cache.
	L1CacheSize int

	// L2CacheSize is the size in bytes of the L2 cache.
	L2CacheSize int

	// NumThreads is the number of worker threads used by executors.
	NumThreads int

	// Features available in the CPU, used to select micro-kernels.
	Features Features
}

// Features lists the SIMD capabilities relevant to the micro-kernels.
type Features struct {
	// amd64
	HasAVX2, HasFMA, HasAVX512F bool

	// arm64
	HasASIMD, HasSVE bool
}

// HasSIMD returns whether any vector extension usable by the register-blocked kernels is available.
func (f Features) HasSIMD() bool {
	return f.HasAVX2 || f.HasAVX512F || f.HasASIMD
}

// String lists the available features, or "scalar" if none.
func (f Features) String() string {
	var parts []string
	add := func(has bool, name string) {
		if has {
			parts = append(parts, name)
		}
	}
	add(f.HasAVX2, "AVX2")
	add(f.HasFMA, "FMA")
	add(f.HasAVX512F, "AVX512F")
	add(f.HasASIMD, "ASIMD")
	add(f.HasSVE, "SVE")
	if len(parts) == 0 {
		return "scalar"
	}
	return strings.Join(parts, "+")
}

// String implements fmt.Stringer.
func (d Descriptor) String() string {
	return fmt.Sprintf("L1=%s, L2=%s, threads=%d, features=%s",
		humanize.IBytes(uint64(max(d.L1CacheSize, 0))), humanize.IBytes(uint64(max(d.L2CacheSize, 0))),
		d.NumThreads, d.Features)
}

// Validate returns an error wrapping xerrors.ErrInvalidArgument if any of the parameters is not positive.
func (d Descriptor) Validate() error {
	if d.L1CacheSize <= 0 {
		return xerrors.InvalidArgumentf("hardware L1 cache size must be > 0, got %d", d.L1CacheSize)
	}
	if d.L2CacheSize <= 0 {
		return xerrors.InvalidArgumentf("hardware L2 cache size must be > 0, got %d", d.L2CacheSize)
	}
	if d.NumThreads <= 0 {
		return xerrors.InvalidArgumentf("hardware number of threads must be > 0, got %d", d.NumThreads)
	}
	return nil
}

// WithNumThreads returns a copy of the descriptor with the number of threads changed.
func (d Descriptor) WithNumThreads(numThreads int) Descriptor {
	d.NumThreads = numThreads
	return d
}

// Scalar returns a copy of the descriptor with all SIMD features disabled.
func (d Descriptor) Scalar() Descriptor {
	d.Features = Features{}
	return d
}

// Detect probes the current machine.
//
// Cache sizes that cannot be probed fall back to DefaultL1CacheSize and DefaultL2CacheSize.
// The number of threads is runtime.NumCPU(). If the environment variable QGEMM_NO_SIMD is set
// to true, SIMD features are reported as absent.
func Detect() Descriptor {
	d := Descriptor{
		L1CacheSize: DefaultL1CacheSize,
		L2CacheSize: DefaultL2CacheSize,
		NumThreads:  runtime.NumCPU(),
	}
	l1, l2, err := probeCacheSizes()
	if err != nil {
		klog.Warningf("hardware: failed to probe cache sizes, using defaults: %v", err)
	}
	if l1 > 0 {
		d.L1CacheSize = l1
	}
	if l2 > 0 {
		d.L2CacheSize = l2
	}
	if !NoSimdEnv() {
		d.Features = probeFeatures()
	}
	return d
}

// QGEMM_HARDWARE is the environment variable with the default hardware configuration to use.
//
// See NewWithConfig for the format.
const QGEMM_HARDWARE = "QGEMM_HARDWARE"

// QGEMM_NO_SIMD is the environment variable that, when set to true, disables SIMD kernels.
const QGEMM_NO_SIMD = "QGEMM_NO_SIMD"

// DefaultConfig is used by New if QGEMM_HARDWARE is not set.
var DefaultConfig string

// NoSimdEnv returns whether the QGEMM_NO_SIMD environment variable requests scalar kernels only.
func NoSimdEnv() bool {
	value, found := os.LookupEnv(QGEMM_NO_SIMD)
	if !found {
		return false
	}
	noSimd, err := strconv.ParseBool(value)
	if err != nil {
		klog.Warningf("hardware: invalid value %q for %s, ignoring it", value, QGEMM_NO_SIMD)
		return false
	}
	return noSimd
}

// New returns the default hardware Descriptor.
//
// The default is:
//
//  1. The environment variable QGEMM_HARDWARE is used as a configuration if defined.
//  2. Next the variable DefaultConfig is used as a configuration if defined.
//  3. The probed values from Detect.
func New() (Descriptor, error) {
	config, found := os.LookupEnv(QGEMM_HARDWARE)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig returns the probed Descriptor with the overrides given in config.
//
// The format of config is a comma-separated list of "key=value" pairs, with the keys:
//
//   - "l1": L1 data cache size, e.g. "32KiB" or "32768".
//   - "l2": L2 cache size, e.g. "1MiB".
//   - "threads": number of worker threads.
//   - "simd": "false" to disable SIMD kernels.
//
// An empty config returns the probed Descriptor.
func NewWithConfig(config string) (Descriptor, error) {
	d := Detect()
	config = strings.TrimSpace(config)
	if config == "" {
		return d, d.Validate()
	}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return d, xerrors.InvalidArgumentf("hardware config %q: missing '=' in %q", config, part)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "l1", "l2":
			size, err := humanize.ParseBytes(value)
			if err != nil {
				return d, errors.Wrapf(xerrors.ErrInvalidArgument, "hardware config %q: invalid size for %q: %v", config, key, err)
			}
			if size > math.MaxInt {
				return d, errors.Wrapf(xerrors.ErrInvalidArgument, "hardware config %q: size %s for %q overflows int", config, value, key)
			}
			if key == "l1" {
				d.L1CacheSize = int(size)
			} else {
				d.L2CacheSize = int(size)
			}
		case "threads":
			n, err := strconv.Atoi(value)
			if err != nil {
				return d, errors.Wrapf(xerrors.ErrInvalidArgument, "hardware config %q: invalid threads: %v", config, err)
			}
			d.NumThreads = n
		case "simd":
			simd, err := strconv.ParseBool(value)
			if err != nil {
				return d, errors.Wrapf(xerrors.ErrInvalidArgument, "hardware config %q: invalid simd: %v", config, err)
			}
			if !simd {
				d.Features = Features{}
			}
		default:
			return d, xerrors.InvalidArgumentf("hardware config %q: unknown key %q", config, key)
		}
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	klog.V(1).Infof("hardware: %s", d)
	return d, nil
}

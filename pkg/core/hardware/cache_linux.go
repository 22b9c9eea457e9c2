// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build linux

package hardware

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// sysfsCacheDir lists the caches of the first CPU, one "index<N>" sub-directory per cache.
var sysfsCacheDir = "/sys/devices/system/cpu/cpu0/cache"

// probeCacheSizes reads the L1 data and L2 cache sizes from sysfs.
// A zero value is returned for a level that could not be found.
func probeCacheSizes() (l1, l2 int, err error) {
	entries, err := filepath.Glob(filepath.Join(sysfsCacheDir, "index*"))
	if err != nil {
		return 0, 0, errors.Wrapf(err, "listing %q", sysfsCacheDir)
	}
	if len(entries) == 0 {
		return 0, 0, errors.Errorf("no cache entries found in %q", sysfsCacheDir)
	}
	for _, dir := range entries {
		level, err := readSysfsString(filepath.Join(dir, "level"))
		if err != nil {
			return l1, l2, err
		}
		cacheType, err := readSysfsString(filepath.Join(dir, "type"))
		if err != nil {
			return l1, l2, err
		}
		if cacheType == "Instruction" {
			continue
		}
		sizeStr, err := readSysfsString(filepath.Join(dir, "size"))
		if err != nil {
			return l1, l2, err
		}
		size, err := parseSysfsSize(sizeStr)
		if err != nil {
			return l1, l2, errors.WithMessagef(err, "cache %q", dir)
		}
		switch level {
		case "1":
			l1 = size
		case "2":
			l2 = size
		}
	}
	return l1, l2, nil
}

func readSysfsString(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %q", path)
	}
	return strings.TrimSpace(string(contents)), nil
}

// parseSysfsSize parses sizes like "48K" or "2048K", where the suffixes are binary (KiB, MiB).
func parseSysfsSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty cache size")
	}
	if _, err := strconv.Atoi(s); err == nil {
		// Plain bytes.
		return strconv.Atoi(s)
	}
	switch s[len(s)-1] {
	case 'K', 'M', 'G':
		s += "iB"
	}
	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing cache size %q", s)
	}
	return int(size), nil
}

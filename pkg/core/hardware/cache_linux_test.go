// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build linux

package hardware

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSysfsSize(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"48K", 48 * 1024},
		{"2048K", 2 * 1024 * 1024},
		{"1M", 1024 * 1024},
		{"32768", 32768},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSysfsSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := parseSysfsSize("")
	require.Error(t, err)
	_, err = parseSysfsSize("big")
	require.Error(t, err)
}

func TestProbeCacheSizes(t *testing.T) {
	dir := t.TempDir()
	writeCache := func(index, level, cacheType, size string) {
		indexDir := filepath.Join(dir, "index"+index)
		require.NoError(t, os.MkdirAll(indexDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(indexDir, "level"), []byte(level+"\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(indexDir, "type"), []byte(cacheType+"\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(indexDir, "size"), []byte(size+"\n"), 0o644))
	}
	writeCache("0", "1", "Data", "48K")
	writeCache("1", "1", "Instruction", "32K")
	writeCache("2", "2", "Unified", "2048K")
	writeCache("3", "3", "Unified", "30720K")

	saved := sysfsCacheDir
	sysfsCacheDir = dir
	defer func() { sysfsCacheDir = saved }()

	l1, l2, err := probeCacheSizes()
	require.NoError(t, err)
	assert.Equal(t, 48*1024, l1)
	assert.Equal(t, 2048*1024, l2)

	sysfsCacheDir = filepath.Join(dir, "missing")
	_, _, err = probeCacheSizes()
	require.Error(t, err)
}

// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.LeadsPerPart)
	assert.Equal(t, 7, cfg.Search.Parts)
	assert.Equal(t, 10, cfg.Search.CompsToKeep)
	assert.Equal(t, "comps.lst", cfg.OutputFile)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `search:
  methods: [Cambridge, Yorkshire]
  leadsPerPart: 8
  parts: 5
  tenorsTogether: true
  calls: 1
  minCOM: 4
outputFile: out.lst
logLevel: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cambridge", "Yorkshire"}, cfg.Search.Methods)
	assert.Equal(t, 8, cfg.Search.LeadsPerPart)
	assert.Equal(t, 5, cfg.Search.Parts)
	assert.True(t, cfg.Search.TenorsTogether)
	assert.Equal(t, 1, cfg.Search.Calls)
	assert.Equal(t, 4, cfg.Search.MinCOM)
	assert.Equal(t, "out.lst", cfg.OutputFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0o644))
	_, err := loadConfig(path)
	assert.Error(t, err)
}

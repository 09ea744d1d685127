// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_FirstRunCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notesmith.yaml")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	// The file now exists and loads identically.
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
	again, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notesmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  type: ollama\ndebounce_ms: 500\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Backend.Type)
	assert.Equal(t, 500, cfg.DebounceMs)
	// Unspecified fields fall back to defaults.
	assert.Equal(t, DefaultConfig().Retry, cfg.Retry)
	assert.Equal(t, DefaultConfig().History, cfg.History)
}

func TestLoadFrom_InvalidValuesRejected(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "backend:\n  type: bedrock\n"},
		{"debounce too small", "debounce_ms: 10\n"},
		{"debounce too large", "debounce_ms: 120000\n"},
		{"max backoff below initial", "retry:\n  max_attempts: 3\n  initial_backoff_ms: 5000\n  max_backoff_ms: 100\n"},
		{"bad log level", "logging:\n  level: verbose\n"},
		{"not yaml", "{{{{\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "notesmith.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate_ZeroValuesDisableOptionalBehavior(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownS = 0
	cfg.MinChangedLines = 0
	assert.NoError(t, cfg.Validate())
}

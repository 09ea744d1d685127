// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("notes"), 0644))
	return path
}

func TestResolve_PlainPath(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "notes.md")

	target, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, path, target.Path)
	assert.Equal(t, dir, target.Dir)
	assert.Equal(t, "notes.md", target.Name())
}

func TestResolve_StripsWhitespaceAndQuotes(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "notes.md")

	tests := []struct {
		name string
		raw  string
	}{
		{"surrounding spaces", "  " + path + "  "},
		{"trailing newline", path + "\n"},
		{"double quotes", `"` + path + `"`},
		{"single quotes", "'" + path + "'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, path, target.Path)
		})
	}
}

func TestResolve_WhitespaceInFileName(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "meeting notes 2026.md")

	target, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, path, target.Path)
}

func TestResolve_RelativePathBecomesAbsolute(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "notes.md")
	t.Chdir(dir)

	target, err := Resolve("notes.md")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(target.Path))
	assert.Equal(t, "notes.md", target.Name())
}

func TestResolve_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"only whitespace", "   "},
		{"only quotes", `""`},
		{"nonexistent file", filepath.Join(dir, "missing.md")},
		{"directory", dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.raw)
			require.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pathutil resolves user-supplied file paths into watch targets.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath indicates the supplied path does not resolve to an
// existing, readable regular file. Fatal at startup.
var ErrInvalidPath = errors.New("invalid path")

// Target is the resolved watch target. Immutable once resolved.
type Target struct {
	// Path is the canonical absolute path to the watched file.
	Path string

	// Dir is the parent directory of Path. The filesystem watch is
	// installed here, because editors replace files via rename and a
	// watch on the file node itself is lost on the first save.
	Dir string
}

// Name returns the base name of the watched file.
func (t Target) Name() string {
	return filepath.Base(t.Path)
}

// Resolve normalizes a user-provided path and validates it.
//
// The raw string may carry surrounding whitespace or shell quotes from
// copy-paste; both are stripped before resolution. A leading ~ is
// expanded to the user's home directory. The result is absolute and
// cleaned.
//
// Returns ErrInvalidPath (wrapped with detail) if the path is empty,
// does not exist, is not a regular file, or cannot be opened for
// reading. No side effects beyond the read check.
func Resolve(raw string) (Target, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, `"'`)
	if cleaned == "" {
		return Target{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if cleaned == "~" || strings.HasPrefix(cleaned, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Target{}, fmt.Errorf("%w: cannot expand ~: %v", ErrInvalidPath, err)
		}
		cleaned = filepath.Join(home, strings.TrimPrefix(cleaned, "~"))
	}

	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %s: %v", ErrInvalidPath, abs, err)
	}
	if !info.Mode().IsRegular() {
		return Target{}, fmt.Errorf("%w: %s is not a regular file", ErrInvalidPath, abs)
	}

	// Readability check, not a content read.
	f, err := os.Open(abs)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %s is not readable: %v", ErrInvalidPath, abs, err)
	}
	f.Close()

	return Target{Path: abs, Dir: filepath.Dir(abs)}, nil
}

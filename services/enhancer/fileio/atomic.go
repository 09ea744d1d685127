// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fileio provides crash-safe file persistence.
package fileio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWrite indicates the atomic write could not be completed. The
// target file is guaranteed unchanged when this is returned.
var ErrWrite = errors.New("write failed")

// WriteAtomic writes content to path atomically using rename.
//
// The content is written to a temporary sibling file in the same
// directory (same filesystem, so the rename is atomic), synced to
// disk, and renamed over the target. At every observable moment the
// target holds either its pre-write or its post-write content, never
// a truncated intermediate. The temporary file is removed on any
// failure.
func WriteAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrWrite, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing content: %v", ErrWrite, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: syncing to disk: %v", ErrWrite, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file: %v", ErrWrite, err)
	}

	// Set permissions before the rename so the target never exists
	// with the restrictive CreateTemp mode.
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("%w: setting permissions: %v", ErrWrite, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: renaming into place: %v", ErrWrite, err)
	}

	success = true
	return nil
}

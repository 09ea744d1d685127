// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 40 * time.Millisecond

// startTestDetector builds a detector without an OS watcher, started
// and wired for direct event injection.
func startTestDetector(t *testing.T, path string) *Detector {
	t.Helper()
	d := newDetector(path, Options{DebounceWindow: testWindow, BufferSize: 16})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(d.Stop)
	require.NoError(t, d.Start(ctx))
	return d
}

func (d *Detector) inject(kind EventKind) {
	d.events <- Event{Path: d.path, Kind: kind, Time: time.Now()}
}

// expectSettled waits for one settled signal.
func expectSettled(t *testing.T, d *Detector) {
	t.Helper()
	select {
	case <-d.Settled():
	case <-time.After(20 * testWindow):
		t.Fatal("no settled signal arrived")
	case <-d.Lost():
		t.Fatal("target reported lost")
	}
}

// expectQuiet asserts no settled signal arrives within a couple of
// debounce windows.
func expectQuiet(t *testing.T, d *Detector) {
	t.Helper()
	select {
	case <-d.Settled():
		t.Fatal("unexpected settled signal")
	case <-time.After(3 * testWindow):
	}
}

func TestDetector_BurstCoalescesToOneSignal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	d := startTestDetector(t, path)
	for i := 0; i < 5; i++ {
		d.inject(KindModified)
		time.Sleep(testWindow / 8)
	}

	expectSettled(t, d)
	expectQuiet(t, d)
}

func TestDetector_SpacedEventsSignalSeparately(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	d := startTestDetector(t, path)

	d.inject(KindModified)
	expectSettled(t, d)

	d.inject(KindModified)
	expectSettled(t, d)
}

func TestDetector_RemoveOfMissingFileIsLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.md")

	d := startTestDetector(t, path)
	d.inject(KindRemoved)

	select {
	case <-d.Lost():
	case <-d.Settled():
		t.Fatal("settled fired for a missing file")
	case <-time.After(20 * testWindow):
		t.Fatal("loss was not reported")
	}
}

func TestDetector_SaveViaRenameIsNotLost(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	d := startTestDetector(t, path)

	// Editors replace the file: the target is renamed or removed and a
	// new file appears under the same name before the window closes.
	d.inject(KindRenamed)
	d.inject(KindCreated)

	expectSettled(t, d)
}

func TestDetector_RemoveEventWithFileStillPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	d := startTestDetector(t, path)
	d.inject(KindRemoved)

	// The file exists at the post-window check, so this was a
	// transient remove/recreate, not a loss.
	expectSettled(t, d)
}

func TestDetector_StartTwice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	d := startTestDetector(t, path)
	assert.ErrorIs(t, d.Start(context.Background()), ErrAlreadyStarted)
}

func TestConvertOp(t *testing.T) {
	tests := []struct {
		name     string
		op       fsnotify.Op
		want     EventKind
		relevant bool
	}{
		{"create", fsnotify.Create, KindCreated, true},
		{"write", fsnotify.Write, KindModified, true},
		{"remove", fsnotify.Remove, KindRemoved, true},
		{"rename", fsnotify.Rename, KindRenamed, true},
		{"chmod only", fsnotify.Chmod, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, relevant := convertOp(tt.op)
			assert.Equal(t, tt.relevant, relevant)
			if relevant {
				assert.Equal(t, tt.want, kind)
			}
		})
	}
}

// TestDetector_RealWatcher runs the full fsnotify path against a real
// directory.
func TestDetector_RealWatcher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping filesystem watcher test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0644))

	d, err := New(path, Options{DebounceWindow: testWindow})
	require.NoError(t, err)
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, d.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("second"), 0644))
	expectSettled(t, d)

	// A write to a sibling file must not signal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("x"), 0644))
	expectQuiet(t, d)
}

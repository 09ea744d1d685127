// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch turns raw filesystem events for a single file into
// debounced "edit settled" signals.
//
// # Debouncing
//
// Editors emit several raw write/rename events per logical save. The
// detector runs a small state machine (Idle -> PendingDebounce -> Idle):
// any matching event arms a timer, further events reset it, and only a
// full quiet window produces one settled signal.
//
// # Target loss
//
// A remove or rename of the watched file is not immediately fatal:
// many editors save by renaming a temp file over the target, which
// shows up as a rename/remove followed by a create. The detector
// waits out the debounce window and then checks whether the file
// still exists; only a genuinely missing file surfaces as Lost.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind classifies a raw filesystem event for the target file.
type EventKind int

const (
	// KindCreated indicates the target file appeared (including
	// rename-over saves).
	KindCreated EventKind = iota

	// KindModified indicates the target file was written in place.
	KindModified

	// KindRemoved indicates the target file was deleted.
	KindRemoved

	// KindRenamed indicates the target file was moved away.
	KindRenamed
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindModified:
		return "modified"
	case KindRemoved:
		return "removed"
	case KindRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is a single raw filesystem event. Transient: produced by the
// OS notification layer, consumed and discarded by the detector.
type Event struct {
	Path string
	Kind EventKind
	Time time.Time
}

// Options configures the Detector.
type Options struct {
	// DebounceWindow is the quiet period required before an edit is
	// considered settled. Default: 1500ms.
	DebounceWindow time.Duration

	// BufferSize is the capacity of the internal raw event channel.
	// Default: 64.
	BufferSize int

	// Logger receives watcher errors. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 1500 * time.Millisecond,
		BufferSize:     64,
	}
}

// ErrAlreadyStarted is returned by Start when the detector is running.
var ErrAlreadyStarted = errors.New("detector already started")

// Detector watches one file's parent directory and emits debounced
// settled signals for that file.
//
// Thread Safety: safe for concurrent use. Signals are delivered on
// the Settled and Lost channels from a single goroutine.
type Detector struct {
	path   string // absolute path of the watched file
	dir    string
	window time.Duration
	log    *slog.Logger

	fsw     *fsnotify.Watcher // nil when fed directly (tests)
	events  chan Event
	settled chan time.Time
	lost    chan struct{}
	done    chan struct{}

	stopOnce sync.Once

	mu      sync.Mutex
	started bool
}

// New creates a detector for the file at path, watching its parent
// directory. Call Start to begin receiving signals and Stop (or
// cancel the context) to release the OS watch.
func New(path string, opts Options) (*Detector, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	d := newDetector(path, opts)
	d.fsw = fsw
	return d, nil
}

// newDetector builds a detector without an OS watcher. Tests feed the
// events channel directly, which keeps the debounce state machine
// independent of a real filesystem notification layer.
func newDetector(path string, opts Options) *Detector {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultOptions().DebounceWindow
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Detector{
		path:    filepath.Clean(path),
		dir:     filepath.Dir(filepath.Clean(path)),
		window:  opts.DebounceWindow,
		log:     log,
		events:  make(chan Event, opts.BufferSize),
		settled: make(chan time.Time, 1),
		lost:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Settled delivers one value per logical edit, after the debounce
// window has passed without further events. The channel has capacity
// one: signals arriving while the consumer is busy coalesce instead
// of queuing unboundedly, and the consumer re-reads the file fresh,
// so the most recent edit always wins.
func (d *Detector) Settled() <-chan time.Time {
	return d.settled
}

// Lost is closed when the watched file has been deleted or moved away
// and did not reappear within the debounce window.
func (d *Detector) Lost() <-chan struct{} {
	return d.lost
}

// Start installs the directory watch and begins signal delivery.
// Signal delivery stops when ctx is canceled or Stop is called.
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	d.started = true
	d.mu.Unlock()

	if d.fsw != nil {
		if err := d.fsw.Add(d.dir); err != nil {
			return err
		}
		go d.forward(ctx)
	}
	go d.debounce(ctx)
	return nil
}

// Stop releases the OS watch and halts signal delivery.
func (d *Detector) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		if d.fsw != nil {
			d.fsw.Close()
		}
	})
}

// forward filters fsnotify events down to the target file and feeds
// the debounce state machine.
func (d *Detector) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case ev, ok := <-d.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != d.path {
				continue
			}
			kind, relevant := convertOp(ev.Op)
			if !relevant {
				continue
			}
			select {
			case d.events <- Event{Path: d.path, Kind: kind, Time: time.Now()}:
			default:
				// Buffer full during an event storm; the debouncer
				// only needs to learn that something happened, so
				// dropping is safe.
			}
		case err, ok := <-d.fsw.Errors:
			if !ok {
				return
			}
			d.log.Warn("filesystem watcher error", "error", err)
		}
	}
}

// convertOp maps an fsnotify op to an EventKind. Chmod-only events
// carry no content change and are not relevant.
func convertOp(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return KindCreated, true
	case op.Has(fsnotify.Write):
		return KindModified, true
	case op.Has(fsnotify.Remove):
		return KindRemoved, true
	case op.Has(fsnotify.Rename):
		return KindRenamed, true
	default:
		return 0, false
	}
}

// debounce runs the Idle -> PendingDebounce -> Idle state machine.
func (d *Detector) debounce(ctx context.Context) {
	timer := time.NewTimer(d.window)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	lostPending := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case ev := <-d.events:
			switch ev.Kind {
			case KindRemoved, KindRenamed:
				lostPending = true
			default:
				lostPending = false
			}
			if armed && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.window)
			armed = true
		case <-timer.C:
			armed = false
			if lostPending {
				if _, err := os.Stat(d.path); err != nil {
					close(d.lost)
					return
				}
				// The file was renamed away and came back: a
				// save-via-rename, not a loss.
				lostPending = false
			}
			select {
			case d.settled <- time.Now():
			default:
			}
		}
	}
}

// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists pre-enhancement snapshots of the watched
// file in a local BadgerDB, so an unwanted enhancement can always be
// rolled back. One revision is saved before every enhancement write;
// retention is bounded per target.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrNotFound indicates no revision matched the query.
var ErrNotFound = errors.New("revision not found")

// Revision is one saved snapshot of the watched file.
type Revision struct {
	// ID identifies the revision within its target.
	ID string `json:"id"`

	// Target is the absolute path the snapshot was taken from.
	Target string `json:"target"`

	// SavedAt is when the snapshot was persisted.
	SavedAt time.Time `json:"saved_at"`

	// Fingerprint is the SHA-256 hex digest of Content.
	Fingerprint string `json:"fingerprint"`

	// Content is the raw file content. Omitted by List.
	Content []byte `json:"content,omitempty"`
}

// Config holds configuration for the revision store.
type Config struct {
	// Dir is the directory for BadgerDB files. Required unless
	// InMemory is true.
	Dir string

	// InMemory enables in-memory mode (tests).
	InMemory bool

	// Keep is the number of revisions retained per target.
	// Default: 20.
	Keep int

	// Logger receives BadgerDB logs. Nil disables them.
	Logger *slog.Logger
}

// Store is a per-target revision store backed by BadgerDB.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	db   *badger.DB
	keep int
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open creates or opens the revision store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("dir is required for a persistent store")
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 20
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(!cfg.InMemory)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db, keep: cfg.Keep}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// targetPrefix namespaces keys per watched file. Hashing keeps path
// separators and length out of the key space.
func targetPrefix(target string) []byte {
	sum := sha256.Sum256([]byte(target))
	return []byte("rev/" + hex.EncodeToString(sum[:8]) + "/")
}

// revisionKey orders revisions chronologically within their prefix.
// RFC3339Nano timestamps sort lexically, so iteration order is save
// order; the uuid suffix breaks same-nanosecond ties.
func revisionKey(target string, savedAt time.Time, id string) []byte {
	return append(targetPrefix(target), []byte(savedAt.UTC().Format(time.RFC3339Nano)+"-"+id)...)
}

// Save persists a snapshot of content for target and prunes old
// revisions beyond the retention limit.
func (s *Store) Save(target string, content []byte) (Revision, error) {
	sum := sha256.Sum256(content)
	rev := Revision{
		ID:          uuid.NewString()[:8],
		Target:      target,
		SavedAt:     time.Now().UTC(),
		Fingerprint: hex.EncodeToString(sum[:]),
		Content:     content,
	}

	value, err := json.Marshal(rev)
	if err != nil {
		return Revision{}, fmt.Errorf("marshal revision: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(revisionKey(target, rev.SavedAt, rev.ID), value)
	})
	if err != nil {
		return Revision{}, fmt.Errorf("save revision: %w", err)
	}

	if err := s.prune(target); err != nil {
		return Revision{}, fmt.Errorf("prune revisions: %w", err)
	}
	return rev, nil
}

// List returns all revisions for target, oldest first, without
// content.
func (s *Store) List(target string) ([]Revision, error) {
	var revs []Revision
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := targetPrefix(target)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rev Revision
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rev)
			})
			if err != nil {
				return err
			}
			rev.Content = nil
			revs = append(revs, rev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].SavedAt.Before(revs[j].SavedAt) })
	return revs, nil
}

// Get returns one revision with content. An empty or "latest" id
// selects the most recent revision.
func (s *Store) Get(target, id string) (Revision, error) {
	var found *Revision
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := targetPrefix(target)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rev Revision
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rev)
			})
			if err != nil {
				return err
			}
			if id == "" || strings.EqualFold(id, "latest") {
				// Keys iterate in save order; the last one wins.
				found = &rev
				continue
			}
			if rev.ID == id {
				found = &rev
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return Revision{}, err
	}
	if found == nil {
		return Revision{}, fmt.Errorf("%w: target %s id %q", ErrNotFound, target, id)
	}
	return *found, nil
}

// Latest returns the most recent revision with content.
func (s *Store) Latest(target string) (Revision, error) {
	return s.Get(target, "")
}

// prune deletes the oldest revisions beyond the retention limit.
func (s *Store) prune(target string) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := targetPrefix(target)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(keys) <= s.keep {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys[:len(keys)-s.keep] {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

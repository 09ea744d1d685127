// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guard distinguishes the enhancer's own writes from user edits.
//
// Every write the system performs is fingerprinted; when the change
// detector fires on that write, the loop compares the observed content
// fingerprint against the recorded one and skips the cycle on a match.
// A match is consumed, so a later user edit that restores identical
// content still triggers a fresh cycle.
package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Fingerprint is a hex-encoded SHA-256 digest of file content.
type Fingerprint string

// Compute returns the fingerprint of raw content.
func Compute(content []byte) Fingerprint {
	sum := sha256.Sum256(content)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Guard tracks the fingerprint of the most recent self-write.
//
// Thread Safety: safe for concurrent use.
type Guard struct {
	mu   sync.Mutex
	last Fingerprint
}

// New returns an empty guard with no recorded self-write.
func New() *Guard {
	return &Guard{}
}

// RecordSelfWrite stores the fingerprint of content the system just
// committed. Called immediately after a successful atomic write,
// before the loop re-arms, so the detector can never observe the
// write ahead of the record.
func (g *Guard) RecordSelfWrite(fp Fingerprint) {
	g.mu.Lock()
	g.last = fp
	g.mu.Unlock()
}

// IsSelfWrite reports whether observed matches the most recent
// self-write fingerprint. A match clears the record: each self-write
// suppresses at most one cycle and never blocks genuine user edits,
// including edits that coincidentally restore prior content.
func (g *Guard) IsSelfWrite(observed Fingerprint) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == "" || observed != g.last {
		return false
	}
	g.last = ""
	return true
}

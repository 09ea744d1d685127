// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm wraps remote text-generation backends behind a single
// Enhancer interface and classifies their failures.
package llm

import (
	"context"
	"strings"
)

// Instruction is the fixed system prompt sent with every document.
// The verbatim note text follows it; nothing else is sent.
const Instruction = `Take the notes below and improve them:
1. Correct spelling and grammar errors in place; never remove or shorten content.
2. Clarifications go inline in brackets; supplemental information goes in parentheses under a bullet or sub-bullet.
3. Preserve the original formatting, indentation, bullet points, and line breaks exactly as provided.
4. Do not include code fences, apologies, or filler phrases.
5. Reply only once, with the improved content and nothing else.`

// Enhancer sends a whole document to a text-generation backend and
// returns the enhanced replacement text.
//
// Implementations must honor ctx cancellation and deadlines, and must
// map failures onto the package sentinel errors. A source that is
// empty after trimming whitespace short-circuits: it is returned
// unchanged with no remote call.
//
// Thread Safety: implementations must be safe for concurrent use.
type Enhancer interface {
	Enhance(ctx context.Context, source string) (string, error)
}

// emptySource reports whether source contains nothing to enhance.
func emptySource(source string) bool {
	return strings.TrimSpace(source) == ""
}

// userPrompt builds the single-prompt form used by backends without a
// separate system role.
func userPrompt(source string) string {
	return Instruction + "\n\nNotes:\n" + source
}

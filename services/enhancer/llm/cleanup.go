// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import "strings"

// CleanOutput strips model boilerplate from a completion before it is
// written back to the user's file:
//
//   - code fence lines (``` markers the instruction forbids anyway)
//   - "Okay, ... markdown ..." style preamble lines
//   - consecutive duplicate non-empty lines
//
// Leading and trailing blank lines are dropped; interior structure is
// preserved.
func CleanOutput(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	cleaned := make([]string, 0, len(lines))
	prev := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "okay") && strings.Contains(lower, "markdown") {
			continue
		}
		if trimmed != "" && line == prev {
			continue
		}
		cleaned = append(cleaned, line)
		prev = line
	}

	return strings.Join(cleaned, "\n")
}

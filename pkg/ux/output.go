// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides the styled status lines notesmith prints while
// watching a file. These are the user-facing surface; structured logs
// go to pkg/logging.
package ux

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Palette - deep ocean teals and arctic waters.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // main brand color
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text
	ColorWarning     = lipgloss.Color("#F4D03F") // gold/amber
	ColorError       = lipgloss.Color("#E74C3C") // red
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Success: lipgloss.NewStyle().Foreground(ColorTealBright),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
}

func statusLine(style lipgloss.Style, marker, msg string) {
	fmt.Fprintf(os.Stdout, "%s %s\n", style.Render(marker), msg)
}

// WatchStarted announces the watch on a resolved target.
func WatchStarted(path string) {
	fmt.Fprintln(os.Stdout, Styles.Title.Render("notesmith")+Styles.Muted.Render(" · watching ")+path)
}

// EditDetected announces a settled edit about to be enhanced.
func EditDetected() {
	statusLine(Styles.Muted, "✎", "edit detected, enhancing...")
}

// EnhanceApplied announces a committed enhancement.
func EnhanceApplied(bytes int, took time.Duration) {
	statusLine(Styles.Success, "✔", fmt.Sprintf("enhanced notes applied (%d bytes, %s)", bytes, took.Round(time.Millisecond)))
}

// EnhanceSkipped announces a cycle skipped with a short reason.
func EnhanceSkipped(reason string) {
	statusLine(Styles.Muted, "·", "skipped: "+reason)
}

// EnhanceFailed announces a failed cycle; the file is untouched.
func EnhanceFailed(reason string) {
	statusLine(Styles.Error, "✘", "enhancement failed: "+reason+" (file left unchanged)")
}

// TargetLost announces that the watched file disappeared and the
// watch is ending.
func TargetLost(path string) {
	statusLine(Styles.Warning, "!", "watched file removed or moved: "+path)
}

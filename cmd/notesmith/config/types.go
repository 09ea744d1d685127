// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"github.com/go-playground/validator/v10"
)

// NotesmithConfig is the on-disk configuration, created with defaults
// on first run at ~/.notesmith/notesmith.yaml. CLI flags override
// individual fields after loading.
type NotesmithConfig struct {
	// Backend selects and configures the text-generation service.
	Backend BackendConfig `yaml:"backend"`

	// DebounceMs is the quiet window after the last filesystem event
	// before an edit counts as settled.
	DebounceMs int `yaml:"debounce_ms" validate:"gte=100,lte=60000"`

	// RequestTimeoutS bounds a single enhancement attempt.
	RequestTimeoutS int `yaml:"request_timeout_s" validate:"gte=1,lte=600"`

	// CooldownS is the minimum interval between remote calls.
	// Zero disables the cooldown.
	CooldownS int `yaml:"cooldown_s" validate:"gte=0,lte=3600"`

	// MinChangedLines skips enhancement when fewer lines changed
	// since the last processed content. Zero disables the threshold.
	MinChangedLines int `yaml:"min_changed_lines" validate:"gte=0"`

	// Retry is the backoff policy for transient failures.
	Retry RetryConfig `yaml:"retry"`

	// History configures local pre-write revision snapshots.
	History HistoryConfig `yaml:"history"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig decides which service enhances the notes.
type BackendConfig struct {
	// Type can be "openai" or "ollama".
	Type string `yaml:"type" validate:"oneof=openai ollama"`

	// BaseURL overrides the backend endpoint. Empty uses the
	// backend's default (api.openai.com / localhost:11434).
	BaseURL string `yaml:"base_url,omitempty"`

	// Model names the generation model. Empty uses the backend's
	// default.
	Model string `yaml:"model,omitempty"`
}

// RetryConfig mirrors llm.RetryConfig in file-friendly units.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" validate:"gte=1,lte=10"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" validate:"gte=10,lte=60000"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" validate:"gtefield=InitialBackoffMs"`
}

// HistoryConfig configures the revision store.
type HistoryConfig struct {
	// Enabled toggles pre-write snapshots.
	Enabled bool `yaml:"enabled"`

	// Dir is the BadgerDB directory. Supports ~ expansion.
	Dir string `yaml:"dir"`

	// Keep bounds revisions retained per watched file.
	Keep int `yaml:"keep" validate:"gte=1,lte=1000"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir enables file logging when set. Supports ~ expansion.
	Dir string `yaml:"dir,omitempty"`

	// JSON switches stderr logs to JSON.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() NotesmithConfig {
	return NotesmithConfig{
		Backend: BackendConfig{
			Type: "openai",
		},
		DebounceMs:      1500,
		RequestTimeoutS: 60,
		CooldownS:       3,
		MinChangedLines: 0,
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMs: 1000,
			MaxBackoffMs:     30000,
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "~/.notesmith/history",
			Keep:    20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks field ranges and cross-field constraints.
func (c NotesmithConfig) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

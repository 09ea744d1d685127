// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the notesmith YAML configuration, creating it
// with defaults on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Path returns the config file location (~/.notesmith/notesmith.yaml).
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".notesmith", "notesmith.yaml"), nil
}

// Load reads the config file, creating it with defaults first if it
// does not exist, and validates the result.
func Load() (NotesmithConfig, error) {
	path, err := Path()
	if err != nil {
		return NotesmithConfig{}, err
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the config at an explicit path,
// creating it with defaults on first run.
func LoadFrom(path string) (NotesmithConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return NotesmithConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return NotesmithConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return NotesmithConfig{}, fmt.Errorf("failed to parse the config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return NotesmithConfig{}, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

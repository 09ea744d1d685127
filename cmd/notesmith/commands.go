// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// --- Global Command Variables ---
var (
	backendType string
	modelName   string
	baseURL     string
	debounceMs  int
	cooldownS   int
	minLines    int
	metricsAddr string
	logLevel    string
	logDir      string
	jsonLogs    bool
	quietLogs   bool
	noHistory   bool
	noCleanup   bool

	rootCmd = &cobra.Command{
		Use:   "notesmith [file]",
		Short: "Watch a notes file and enhance it with AI whenever you pause editing",
		Long: `Notesmith watches a single notes file. When you stop typing, the
whole document is sent to a text-generation backend with a fixed
"improve these notes" instruction, and the enhanced version is
written back atomically. Your previous content is snapshotted
locally before every write.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runWatch(cmd, args)
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch [file]",
		Short: "Watch a file and enhance it on every settled edit",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatch,
	}

	historyCmd = &cobra.Command{
		Use:   "history [file]",
		Short: "List saved pre-enhancement revisions for a file",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runHistory,
	}

	restoreCmd = &cobra.Command{
		Use:   "restore [file] [revision-id]",
		Short: "Restore a file from a saved revision (latest when no id is given)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRestore,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the notesmith version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("notesmith " + version)
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, watchCmd} {
		cmd.Flags().StringVar(&backendType, "backend", "", "Generation backend: openai or ollama (overrides config)")
		cmd.Flags().StringVar(&modelName, "model", "", "Model name (overrides config)")
		cmd.Flags().StringVar(&baseURL, "base-url", "", "Backend endpoint override")
		cmd.Flags().IntVar(&debounceMs, "debounce", 0, "Debounce window in milliseconds (overrides config)")
		cmd.Flags().IntVar(&cooldownS, "cooldown", -1, "Minimum seconds between remote calls, 0 disables (overrides config)")
		cmd.Flags().IntVar(&minLines, "min-lines", -1, "Skip cycles with fewer changed lines, 0 disables (overrides config)")
		cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9173)")
		cmd.Flags().BoolVar(&noHistory, "no-history", false, "Disable pre-write revision snapshots")
		cmd.Flags().BoolVar(&noCleanup, "no-cleanup", false, "Keep model output verbatim, without boilerplate stripping")
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write JSON logs to this directory")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit stderr logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&quietLogs, "quiet", false, "Suppress stderr logs (file logging still applies)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(versionCmd)
}

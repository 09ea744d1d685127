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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/notesmith/cmd/notesmith/config"
	"github.com/AleutianAI/notesmith/pkg/logging"
	"github.com/AleutianAI/notesmith/services/enhancer/guard"
	"github.com/AleutianAI/notesmith/services/enhancer/history"
	"github.com/AleutianAI/notesmith/services/enhancer/llm"
	"github.com/AleutianAI/notesmith/services/enhancer/loop"
	"github.com/AleutianAI/notesmith/services/enhancer/pathutil"
	"github.com/AleutianAI/notesmith/services/enhancer/telemetry"
	"github.com/AleutianAI/notesmith/services/enhancer/watch"
)

// Environment variables checked for the API credential, in order.
var credentialEnvVars = []string{"NOTESMITH_API_KEY", "OPENAI_API_KEY"}

func runWatch(cmd *cobra.Command, args []string) error {
	// Paths pasted from a shell may arrive split across arguments;
	// rejoin before resolving.
	rawPath := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg)

	logger := newLogger(cfg)
	defer logger.Close()

	target, err := pathutil.Resolve(rawPath)
	if err != nil {
		return err
	}

	detector, err := watch.New(target.Path, watch.Options{
		DebounceWindow: time.Duration(cfg.DebounceMs) * time.Millisecond,
		Logger:         logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("could not create the filesystem watcher: %w", err)
	}
	defer detector.Stop()

	enhancer, err := newEnhancer(cfg, logger)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.History.Enabled && !noHistory {
		store, err = history.Open(history.Config{
			Dir:  expandHome(cfg.History.Dir),
			Keep: cfg.History.Keep,
		})
		if err != nil {
			return fmt.Errorf("could not open the revision store: %w", err)
		}
		defer store.Close()
	}

	var metrics *telemetry.Metrics
	if metricsAddr != "" {
		metrics = telemetry.New()
	}

	lp, err := loop.New(loop.Options{
		Target:   target,
		Detector: detector,
		Enhancer: enhancer,
		Guard:    guard.New(),
		History:  store,
		Metrics:  metrics,
		Logger:   logger,
		Retry: llm.RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
			BackoffFactor:  2.0,
			JitterFactor:   0.2,
		},
		RequestTimeout:  time.Duration(cfg.RequestTimeoutS) * time.Second,
		Cooldown:        time.Duration(cfg.CooldownS) * time.Second,
		MinChangedLines: cfg.MinChangedLines,
		DisableCleanup:  noCleanup,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := detector.Start(ctx); err != nil {
		return fmt.Errorf("could not start watching %s: %w", target.Dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The watch ending (shutdown or target lost) also stops the
		// metrics listener.
		defer cancel()
		return lp.Run(gctx)
	})
	if metrics != nil {
		g.Go(func() error {
			logger.Info("metrics listener started", "addr", metricsAddr)
			return metrics.Serve(gctx, metricsAddr)
		})
	}
	return g.Wait()
}

// applyFlagOverrides layers explicit CLI flags over the file config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.NotesmithConfig) {
	if backendType != "" {
		cfg.Backend.Type = backendType
	}
	if modelName != "" {
		cfg.Backend.Model = modelName
	}
	if baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if debounceMs > 0 {
		cfg.DebounceMs = debounceMs
	}
	if cooldownS >= 0 && cmd.Flags().Changed("cooldown") {
		cfg.CooldownS = cooldownS
	}
	if minLines >= 0 && cmd.Flags().Changed("min-lines") {
		cfg.MinChangedLines = minLines
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logDir != "" {
		cfg.Logging.Dir = logDir
	}
	if jsonLogs {
		cfg.Logging.JSON = true
	}
}

func newLogger(cfg config.NotesmithConfig) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "notesmith",
		JSON:    cfg.Logging.JSON,
		Quiet:   quietLogs,
	})
}

// newEnhancer builds the configured backend. No network access and no
// credential check happens here: a missing key surfaces as an
// authentication failure on the first remote call, per the loop's
// error policy.
func newEnhancer(cfg config.NotesmithConfig, logger *logging.Logger) (llm.Enhancer, error) {
	switch cfg.Backend.Type {
	case "openai":
		return llm.NewOpenAIEnhancer(llm.OpenAIOptions{
			Model:      cfg.Backend.Model,
			BaseURL:    cfg.Backend.BaseURL,
			Credential: llm.CredentialFromEnv(credentialEnvVars...),
			Logger:     logger.Slog(),
		}), nil
	case "ollama":
		return llm.NewOllamaEnhancer(llm.OllamaOptions{
			BaseURL: cfg.Backend.BaseURL,
			Model:   cfg.Backend.Model,
			Logger:  logger.Slog(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q (expected openai or ollama)", cfg.Backend.Type)
	}
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

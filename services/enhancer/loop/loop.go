// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loop orchestrates the watch-debounce-enhance-write cycle.
//
// The loop is single-threaded by design: the detector delivers
// debounced signals on a channel, and each cycle runs read ->
// self-write check -> enhance (with retry) -> snapshot -> atomic
// write -> fingerprint record to completion before the next signal is
// taken. The detector's settled channel has capacity one, so signals
// arriving mid-cycle coalesce into a single follow-up cycle that
// re-reads the file fresh; at most one remote call is ever in flight
// and the most recent edit always wins.
//
// Every failure is caught here, converted to a log line plus a status
// line, and the loop re-arms. Only startup errors are fatal to the
// process.
package loop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/notesmith/pkg/logging"
	"github.com/AleutianAI/notesmith/pkg/ux"
	"github.com/AleutianAI/notesmith/services/enhancer/fileio"
	"github.com/AleutianAI/notesmith/services/enhancer/guard"
	"github.com/AleutianAI/notesmith/services/enhancer/history"
	"github.com/AleutianAI/notesmith/services/enhancer/llm"
	"github.com/AleutianAI/notesmith/services/enhancer/pathutil"
	"github.com/AleutianAI/notesmith/services/enhancer/telemetry"
)

// defaultRequestTimeout bounds a single enhancement attempt.
const defaultRequestTimeout = 60 * time.Second

// defaultFileMode is used when the watched file's mode cannot be read.
const defaultFileMode = os.FileMode(0644)

// Detector is the signal source consumed by the loop. Satisfied by
// *watch.Detector; tests substitute channel-backed fakes.
type Detector interface {
	// Settled delivers one value per debounced logical edit.
	Settled() <-chan time.Time

	// Lost is closed when the watched file is deleted or moved away.
	Lost() <-chan struct{}
}

// Options configures a Loop. Target, Detector, Enhancer, and Guard
// are required.
type Options struct {
	Target   pathutil.Target
	Detector Detector
	Enhancer llm.Enhancer
	Guard    *guard.Guard

	// History receives a pre-write snapshot before every enhancement
	// write. Optional.
	History *history.Store

	// Metrics records cycle outcomes. Optional (nil is a no-op).
	Metrics *telemetry.Metrics

	// Logger defaults to logging.Default().
	Logger *logging.Logger

	// Retry is the backoff policy for transient failures.
	// Zero value uses llm.DefaultRetryConfig().
	Retry llm.RetryConfig

	// RequestTimeout bounds each enhancement attempt. Default: 60s.
	RequestTimeout time.Duration

	// Cooldown is the minimum interval between remote calls.
	// Zero disables the limiter.
	Cooldown time.Duration

	// MinChangedLines skips cycles where fewer than this many lines
	// differ from the previously processed content. Zero disables
	// the threshold.
	MinChangedLines int

	// DisableCleanup skips boilerplate stripping of model output.
	DisableCleanup bool

	// Silent suppresses user-facing status lines (tests).
	Silent bool
}

// Loop owns the only mutable cross-component state: the in-flight
// flag, the self-write guard, and the last processed content.
type Loop struct {
	target  pathutil.Target
	det     Detector
	enh     llm.Enhancer
	guard   *guard.Guard
	hist    *history.Store
	metrics *telemetry.Metrics
	log     *logging.Logger
	limiter *rate.Limiter

	retry    llm.RetryConfig
	timeout  time.Duration
	minLines int
	cleanup  bool
	silent   bool

	inFlight atomic.Bool

	// lastLines is the line set of the content last seen by a
	// completed cycle, for the minimum-change threshold.
	lastLines map[string]struct{}
}

// New validates options and builds a Loop.
func New(opts Options) (*Loop, error) {
	if opts.Target.Path == "" {
		return nil, errors.New("loop: target is required")
	}
	if opts.Detector == nil {
		return nil, errors.New("loop: detector is required")
	}
	if opts.Enhancer == nil {
		return nil, errors.New("loop: enhancer is required")
	}
	if opts.Guard == nil {
		return nil, errors.New("loop: guard is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Retry == (llm.RetryConfig{}) {
		opts.Retry = llm.DefaultRetryConfig()
	}
	if err := opts.Retry.Validate(); err != nil {
		return nil, err
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	var limiter *rate.Limiter
	if opts.Cooldown > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Cooldown), 1)
	}

	return &Loop{
		target:   opts.Target,
		det:      opts.Detector,
		enh:      opts.Enhancer,
		guard:    opts.Guard,
		hist:     opts.History,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		limiter:  limiter,
		retry:    opts.Retry,
		timeout:  opts.RequestTimeout,
		minLines: opts.MinChangedLines,
		cleanup:  !opts.DisableCleanup,
		silent:   opts.Silent,
	}, nil
}

// InFlight reports whether an enhancement call is currently
// outstanding.
func (l *Loop) InFlight() bool {
	return l.inFlight.Load()
}

// Run processes settled-edit signals until ctx is canceled or the
// target is lost. Both are clean exits: no new write is begun once
// shutdown starts, and a loss simply ends the watch.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("watch started", "path", l.target.Path, "dir", l.target.Dir)
	if !l.silent {
		ux.WatchStarted(l.target.Path)
	}

	for {
		select {
		case <-ctx.Done():
			l.log.Info("watch stopped", "path", l.target.Path)
			return nil
		case <-l.det.Lost():
			l.log.Info("target lost", "path", l.target.Path)
			if !l.silent {
				ux.TargetLost(l.target.Path)
			}
			return nil
		case <-l.det.Settled():
			l.cycle(ctx)
		}
	}
}

// cycle handles one settled-edit signal end to end. Failures are
// absorbed: the file on disk stays untouched and the loop re-arms.
func (l *Loop) cycle(ctx context.Context) {
	log := l.log.With("cycle_id", uuid.NewString()[:8])

	content, mode, err := l.readTarget()
	if err != nil {
		// A vanished file is the detector's to report; anything else
		// is a transient read problem worth a log line.
		if !errors.Is(err, os.ErrNotExist) {
			log.Error("could not read watched file", "error", err)
		}
		return
	}

	fp := guard.Compute(content)
	if l.guard.IsSelfWrite(fp) {
		log.Debug("own write observed, skipping", "fingerprint", string(fp[:12]))
		l.metrics.Cycle(telemetry.OutcomeSkippedSelf)
		return
	}

	text := string(content)
	if strings.TrimSpace(text) == "" {
		log.Debug("file is empty, skipping")
		l.metrics.Cycle(telemetry.OutcomeSkippedEmpty)
		return
	}

	if l.belowChangeThreshold(text, log) {
		l.metrics.Cycle(telemetry.OutcomeSkippedSmall)
		if !l.silent {
			ux.EnhanceSkipped("change below the minimum line threshold")
		}
		return
	}

	log.Info("edit detected", "bytes", len(content))
	if !l.silent {
		ux.EditDetected()
	}

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return
		}
	}

	l.inFlight.Store(true)
	defer l.inFlight.Store(false)

	start := time.Now()
	var enhanced string
	result, err := llm.Retry(ctx, l.retry, func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()
		out, enhErr := l.enh.Enhance(attemptCtx, text)
		if enhErr != nil {
			log.Warn("enhancement attempt failed", "attempt", attempt, "error", enhErr)
			return enhErr
		}
		enhanced = out
		return nil
	})
	took := time.Since(start)
	l.metrics.Retries(result.Backoffs)
	l.metrics.ObserveEnhance(took)

	if err != nil {
		l.reportFailure(log, err, result.Attempts)
		return
	}

	// Shutdown may have raced the response; a write must not begin
	// once the process is stopping, and a partially received
	// response is never written (Enhance returns an error for those).
	if ctx.Err() != nil {
		log.Info("shutdown during enhancement, discarding response")
		return
	}

	if l.cleanup {
		enhanced = llm.CleanOutput(enhanced)
	}
	if strings.TrimSpace(enhanced) == "" {
		l.reportFailure(log, fmt.Errorf("%w: nothing left after cleanup", llm.ErrEmptyResponse), result.Attempts)
		return
	}

	// The response applies to the snapshot that was sent. If the file
	// moved on while the call was in flight, the response is stale:
	// discard it and let the pending settled signal re-process the
	// latest content instead of clobbering the newer edit.
	current, _, err := l.readTarget()
	if err != nil || guard.Compute(current) != fp {
		log.Info("content changed during enhancement, discarding stale response")
		l.metrics.Cycle(telemetry.OutcomeSuperseded)
		return
	}

	if enhanced == text {
		log.Info("enhancement is a no-op", "took", took)
		l.metrics.Cycle(telemetry.OutcomeSkippedNoChange)
		if !l.silent {
			ux.EnhanceSkipped("model returned identical content")
		}
		l.rememberLines(text)
		return
	}

	if l.hist != nil {
		if _, err := l.hist.Save(l.target.Path, content); err != nil {
			log.Warn("could not save pre-write revision", "error", err)
		}
	}

	if err := fileio.WriteAtomic(l.target.Path, []byte(enhanced), mode); err != nil {
		log.Error("write failed, file unchanged", "error", err)
		l.metrics.Cycle(telemetry.OutcomeFailed)
		l.metrics.Failure("write")
		if !l.silent {
			ux.EnhanceFailed(err.Error())
		}
		return
	}

	// Recorded before the loop re-arms, so the detector can never
	// observe this write ahead of the record.
	l.guard.RecordSelfWrite(guard.Compute([]byte(enhanced)))
	l.rememberLines(enhanced)

	log.Info("enhancement applied", "bytes", len(enhanced), "took", took, "attempts", result.Attempts)
	l.metrics.Cycle(telemetry.OutcomeApplied)
	if !l.silent {
		ux.EnhanceApplied(len(enhanced), took)
	}
}

// readTarget reads the watched file and its current mode.
func (l *Loop) readTarget() ([]byte, os.FileMode, error) {
	content, err := os.ReadFile(l.target.Path)
	if err != nil {
		return nil, 0, err
	}
	mode := defaultFileMode
	if info, err := os.Stat(l.target.Path); err == nil {
		mode = info.Mode().Perm()
	}
	return content, mode, nil
}

// belowChangeThreshold applies the minimum-changed-lines filter. The
// comparison is a line-set difference against the content last
// processed, which approximates "added lines" without a structural
// diff. A skipped cycle does not advance the snapshot, so incremental
// typing accumulates against the last processed state and eventually
// crosses the threshold.
func (l *Loop) belowChangeThreshold(text string, log *logging.Logger) bool {
	if l.minLines <= 0 {
		return false
	}
	if l.lastLines == nil {
		// First observation: treat the whole file as changed.
		return false
	}
	changed := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := l.lastLines[line]; !ok {
			changed++
		}
	}
	if changed >= l.minLines {
		return false
	}
	log.Debug("change below threshold, skipping", "changed_lines", changed, "min", l.minLines)
	return true
}

// rememberLines snapshots the line set of processed content.
func (l *Loop) rememberLines(text string) {
	lines := strings.Split(text, "\n")
	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		set[line] = struct{}{}
	}
	l.lastLines = set
}

// reportFailure converts an enhancement error into a log line, a
// metric, and a status line. The file is untouched in every case.
func (l *Loop) reportFailure(log *logging.Logger, err error, attempts int) {
	kind := failureKind(err)
	log.Error("enhancement failed", "kind", kind, "attempts", attempts, "error", err)
	l.metrics.Cycle(telemetry.OutcomeFailed)
	l.metrics.Failure(kind)
	if !l.silent {
		ux.EnhanceFailed(kind)
	}
}

// failureKind names an enhancement error for metrics and status lines.
func failureKind(err error) string {
	switch {
	case errors.Is(err, llm.ErrAuth):
		return "auth"
	case errors.Is(err, llm.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, llm.ErrTimeout):
		return "timeout"
	case errors.Is(err, llm.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exposes Prometheus metrics for the enhancement
// loop. Metrics are optional: a nil *Metrics is a no-op everywhere,
// and the HTTP listener only starts when an address is configured.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcome labels for CyclesTotal.
const (
	OutcomeApplied         = "applied"
	OutcomeFailed          = "failed"
	OutcomeSkippedSelf     = "skipped_self_write"
	OutcomeSkippedEmpty    = "skipped_empty"
	OutcomeSkippedSmall    = "skipped_small_change"
	OutcomeSkippedNoChange = "skipped_no_change"
	OutcomeSuperseded      = "superseded"
)

// Metrics contains pre-defined metrics for the enhancement loop.
// All metrics use the "notesmith_" prefix.
//
// Thread Safety: safe for concurrent use after creation.
type Metrics struct {
	registry *prometheus.Registry

	// CyclesTotal counts settled-edit cycles by outcome.
	CyclesTotal *prometheus.CounterVec

	// FailuresTotal counts enhancement failures by kind.
	FailuresTotal *prometheus.CounterVec

	// RetriesTotal counts backoff waits performed before success or
	// exhaustion.
	RetriesTotal prometheus.Counter

	// EnhanceDuration records remote enhancement latency in seconds,
	// including retries.
	EnhanceDuration prometheus.Histogram
}

// New creates the metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notesmith_cycles_total",
			Help: "Settled-edit cycles processed, by outcome.",
		}, []string{"outcome"}),
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notesmith_failures_total",
			Help: "Enhancement failures, by kind.",
		}, []string{"kind"}),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "notesmith_retries_total",
			Help: "Backoff waits performed for transient failures.",
		}),
		EnhanceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notesmith_enhance_duration_seconds",
			Help:    "End-to-end enhancement call latency including retries.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
}

// Cycle records one cycle outcome. Nil-safe.
func (m *Metrics) Cycle(outcome string) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
}

// Failure records one failure kind. Nil-safe.
func (m *Metrics) Failure(kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(kind).Inc()
}

// Retries adds observed backoff waits. Nil-safe.
func (m *Metrics) Retries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RetriesTotal.Add(float64(n))
}

// ObserveEnhance records the latency of one enhancement call. Nil-safe.
func (m *Metrics) ObserveEnhance(d time.Duration) {
	if m == nil {
		return
	}
	m.EnhanceDuration.Observe(d.Seconds())
}

// Handler returns the /metrics HTTP handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs a /metrics endpoint on addr until ctx is canceled.
// Returns nil on clean shutdown.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

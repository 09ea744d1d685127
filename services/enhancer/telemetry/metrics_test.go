// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Cycle(OutcomeApplied)
	m.Cycle(OutcomeApplied)
	m.Cycle(OutcomeSkippedSelf)
	m.Failure("timeout")
	m.Retries(2)
	m.Retries(0)
	m.ObserveEnhance(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues(OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues(OutcomeSkippedSelf)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetriesTotal))
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics

	// All recording methods must tolerate an unconfigured telemetry.
	m.Cycle(OutcomeApplied)
	m.Failure("timeout")
	m.Retries(3)
	m.ObserveEnhance(time.Second)
}

func TestMetrics_HandlerExposesSeries(t *testing.T) {
	m := New()
	m.Cycle(OutcomeApplied)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "notesmith_cycles_total"))
}

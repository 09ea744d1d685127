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

import (
	"context"
	"errors"
)

// Sentinel errors for enhancement failures. Every provider maps its
// transport- and API-level failures onto exactly one of these so the
// loop can pick a retry policy without knowing the backend.
var (
	// ErrAuth indicates a missing or rejected credential. Not
	// retryable: the user must fix the credential; the next edit
	// will try again.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited indicates the service rejected the call due to
	// rate or quota limits. Retryable with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates the call exceeded its deadline. Retryable.
	ErrTimeout = errors.New("request timed out")

	// ErrUnavailable indicates a transport failure or a 5xx from the
	// service. Retryable.
	ErrUnavailable = errors.New("service unavailable")

	// ErrMalformedResponse indicates the service answered with a body
	// that could not be parsed. Not retryable for this cycle.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrEmptyResponse indicates the service answered successfully
	// but produced no usable text. Not retryable for this cycle.
	ErrEmptyResponse = errors.New("empty response")
)

// IsRetryable reports whether an enhancement error is transient and
// worth another attempt. Auth failures and malformed or empty
// responses are deterministic for the current cycle and are not
// retried.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}

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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEnhancer_Success(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "- buy milk")
		assert.Contains(t, req.Prompt, "improve them")

		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "- Buy milk", Done: true})
	}))
	defer srv.Close()

	enh := NewOllamaEnhancer(OllamaOptions{BaseURL: srv.URL, Model: "test-model"})
	out, err := enh.Enhance(context.Background(), "- buy milk")
	require.NoError(t, err)
	assert.Equal(t, "- Buy milk", out)
	assert.EqualValues(t, 1, requests)
}

func TestOllamaEnhancer_EmptySourceSkipsRemoteCall(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	}))
	defer srv.Close()

	enh := NewOllamaEnhancer(OllamaOptions{BaseURL: srv.URL})
	out, err := enh.Enhance(context.Background(), "   \n\t  ")
	require.NoError(t, err)
	assert.Equal(t, "   \n\t  ", out)
	assert.EqualValues(t, 0, requests)
}

func TestOllamaEnhancer_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{}`,
			wantErr: ErrRateLimited,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error":"boom"}`,
			wantErr: ErrUnavailable,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"response": 42`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "blank completion",
			status:  http.StatusOK,
			body:    `{"response":"  \n ","done":true}`,
			wantErr: ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			enh := NewOllamaEnhancer(OllamaOptions{BaseURL: srv.URL})
			_, err := enh.Enhance(context.Background(), "notes")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOllamaEnhancer_ModelNotFoundHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"missing\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	enh := NewOllamaEnhancer(OllamaOptions{BaseURL: srv.URL, Model: "missing"})
	_, err := enh.Enhance(context.Background(), "notes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull missing")
	assert.False(t, IsRetryable(err), "a missing model does not heal on retry")
}

func TestOllamaEnhancer_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	enh := NewOllamaEnhancer(OllamaOptions{BaseURL: srv.URL})
	_, err := enh.Enhance(ctx, "notes")
	require.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRetryable(err))
}

func TestOllamaEnhancer_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens on the URL anymore

	enh := NewOllamaEnhancer(OllamaOptions{BaseURL: srv.URL})
	_, err := enh.Enhance(context.Background(), "notes")
	require.ErrorIs(t, err, ErrUnavailable)
}

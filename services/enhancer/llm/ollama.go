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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Defaults for the local Ollama backend.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.1"
)

// OllamaOptions configures the local Ollama backend.
type OllamaOptions struct {
	// BaseURL of the Ollama server. Default: DefaultOllamaBaseURL.
	BaseURL string

	// Model to generate with. Default: DefaultOllamaModel.
	Model string

	// HTTPClient overrides the default client (tests). Per-call
	// deadlines come from the context, not the client.
	HTTPClient *http.Client

	// Logger receives request lifecycle logs. Nil disables logging.
	Logger *slog.Logger
}

// OllamaEnhancer enhances notes via a local Ollama server. No
// credential is required.
//
// Thread Safety: safe for concurrent use.
type OllamaEnhancer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaEnhancer creates the backend. No network access happens
// here; an unreachable server surfaces on the first call.
func NewOllamaEnhancer(opts OllamaOptions) *OllamaEnhancer {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOllamaBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultOllamaModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &OllamaEnhancer{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		model:      opts.Model,
		httpClient: opts.HTTPClient,
		log:        log,
	}
}

// Enhance implements the Enhancer interface.
func (o *OllamaEnhancer) Enhance(ctx context.Context, source string) (string, error) {
	if emptySource(source) {
		return source, nil
	}

	payload := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: userPrompt(source),
		Stream: false,
		Options: map[string]any{
			"temperature": enhanceTemperature,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	o.log.Debug("requesting enhancement", "backend", "ollama", "model", o.model, "source_bytes", len(source))
	resp, err := o.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		switch {
		case resp.StatusCode == http.StatusNotFound:
			var errResp struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(respBody, &errResp) == nil &&
				strings.Contains(errResp.Error, "model") && strings.Contains(errResp.Error, "not found") {
				return "", fmt.Errorf("model %q not found, run: ollama pull %s", o.model, o.model)
			}
			return "", fmt.Errorf("ollama failed with status %d: %s", resp.StatusCode, respBody)
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
		case resp.StatusCode >= 500:
			return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, respBody)
		default:
			return "", fmt.Errorf("ollama failed with status %d: %s", resp.StatusCode, respBody)
		}
	}

	var generated ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &generated); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if emptySource(generated.Response) {
		return "", fmt.Errorf("%w: blank completion", ErrEmptyResponse)
	}
	o.log.Debug("enhancement received", "backend", "ollama")
	return generated.Response, nil
}

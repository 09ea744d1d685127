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
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// enhanceTemperature keeps the rewrite close to the source text.
const enhanceTemperature = 0.3

// OpenAIOptions configures the OpenAI-compatible backend.
type OpenAIOptions struct {
	// Model is the chat completion model. Default: DefaultOpenAIModel.
	Model string

	// BaseURL overrides the API endpoint for OpenAI-compatible
	// servers. Empty uses the official endpoint.
	BaseURL string

	// Credential is the sealed API key. Nil is allowed at
	// construction; the first Enhance call then fails with ErrAuth.
	Credential *Credential

	// Logger receives request lifecycle logs. Nil disables logging.
	Logger *slog.Logger
}

// OpenAIEnhancer enhances notes via an OpenAI-compatible chat
// completion endpoint.
//
// Thread Safety: safe for concurrent use.
type OpenAIEnhancer struct {
	model   string
	baseURL string
	cred    *Credential
	log     *slog.Logger
}

// NewOpenAIEnhancer creates the backend. No network access happens
// here; credentials are only checked on the first call.
func NewOpenAIEnhancer(opts OpenAIOptions) *OpenAIEnhancer {
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &OpenAIEnhancer{
		model:   opts.Model,
		baseURL: opts.BaseURL,
		cred:    opts.Credential,
		log:     log,
	}
}

// Enhance implements the Enhancer interface.
func (o *OpenAIEnhancer) Enhance(ctx context.Context, source string) (string, error) {
	if emptySource(source) {
		return source, nil
	}

	key, err := o.cred.Open()
	if err != nil {
		return "", err
	}
	cfg := openai.DefaultConfig(key.String())
	key.Destroy()
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	o.log.Debug("requesting enhancement", "backend", "openai", "model", o.model, "source_bytes", len(source))
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: enhanceTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: Instruction},
			{Role: openai.ChatMessageRoleUser, Content: source},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrEmptyResponse)
	}
	text := resp.Choices[0].Message.Content
	if emptySource(text) {
		return "", fmt.Errorf("%w: blank completion", ErrEmptyResponse)
	}
	o.log.Debug("enhancement received", "backend", "openai", "finish_reason", resp.Choices[0].FinishReason)
	return text, nil
}

// classifyOpenAIError maps go-openai errors onto the package
// sentinels so the retry policy is backend-agnostic.
func classifyOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized,
			apiErr.HTTPStatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		default:
			return fmt.Errorf("openai request rejected: %w", err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 500 {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Anything else is a transport-level failure.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package llm abstracts the generative-model collaborator behind a narrow
// chat-completion interface so the agent core stays testable with a
// deterministic stub.
package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sentinel errors for the two transient failure modes callers are expected
// to retry or degrade on. Backends wrap their provider-specific errors so
// callers can use errors.Is.
var (
	ErrTimeout   = errors.New("llm: request timed out")
	ErrRateLimit = errors.New("llm: rate limited")
)

// Message is one role-tagged turn of a structured prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
//
// Chat sends role-tagged messages and returns the completion text. Callers
// own the context deadline; implementations must honor cancellation and map
// provider timeouts and rate limits onto ErrTimeout / ErrRateLimit.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// Float32Ptr returns a pointer to v for building GenerationParams literals.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v for building GenerationParams literals.
func IntPtr(v int) *int { return &v }

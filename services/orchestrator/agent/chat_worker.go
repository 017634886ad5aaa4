// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package agent

import (
	"context"
	"log/slog"

	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
)

// chatHistoryWindow bounds the prompt to the trailing history turns.
const chatHistoryWindow = 10

const chatApology = "Sorry, I'm having trouble answering right now. Please try again in a moment."

// ChatWorker handles conversational queries. Cache first, then one model
// call over a sliding history window. A model failure degrades to a static
// apology; the chat worker never surfaces an error to the orchestrator.
type ChatWorker struct {
	client llm.LLMClient
	cache  *ResponseCache
}

func NewChatWorker(client llm.LLMClient, cache *ResponseCache) *ChatWorker {
	return &ChatWorker{client: client, cache: cache}
}

func (w *ChatWorker) Name() WorkerName { return WorkerChat }

func (w *ChatWorker) Handle(ctx context.Context, query string, snapshot State) (Result, error) {
	ctx, span := tracer.Start(ctx, "ChatWorker.Handle")
	defer span.End()

	if response, source, ok := w.cache.Lookup(query); ok {
		chatCacheHits.WithLabelValues(source).Inc()
		slog.Debug("Chat cache hit", "source", source)
		return Result{Response: response, LoopDelta: 1}, nil
	}

	messages := make([]llm.Message, 0, chatHistoryWindow+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	for _, turn := range snapshot.LastTurns(chatHistoryWindow) {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	out, err := w.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.7),
		MaxTokens:   llm.IntPtr(400),
	})
	if err != nil {
		slog.Warn("Chat LLM call failed, returning apology", "error", err)
		return Result{Response: chatApology, LoopDelta: 1}, nil
	}

	w.cache.Store(query, out)
	return Result{Response: out, LoopDelta: 1}, nil
}

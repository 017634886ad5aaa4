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
	"fmt"
	"log/slog"
	"strings"

	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/rag"
)

const (
	// ragTopK is how many reranked reviews back one answer.
	ragTopK = 5
	// ragConfidenceFloor gates synthesis: below it the worker hedges and
	// shows sources without asking the model to answer.
	ragConfidenceFloor = 0.4
)

// RAGWorker answers questions grounded in retrieved reviews.
type RAGWorker struct {
	client    llm.LLMClient
	retriever Retriever
}

func NewRAGWorker(client llm.LLMClient, retriever Retriever) *RAGWorker {
	return &RAGWorker{client: client, retriever: retriever}
}

func (w *RAGWorker) Name() WorkerName { return WorkerRAG }

func (w *RAGWorker) Handle(ctx context.Context, query string, snapshot State) (Result, error) {
	ctx, span := tracer.Start(ctx, "RAGWorker.Handle")
	defer span.End()

	filter := detectSentimentFilter(query)
	candidates, err := w.retriever.Retrieve(ctx, query, ragTopK, filter)
	if err != nil {
		return Result{}, fmt.Errorf("retrieval failed: %w", err)
	}
	if len(candidates) == 0 {
		return Result{
			Response:  "I couldn't find any reviews matching that. Try rephrasing, or check that a dataset has been uploaded.",
			LoopDelta: 1,
		}, nil
	}

	confidence := rag.OverallConfidence(candidates)
	sources := formatSources(candidates)

	if confidence < ragConfidenceFloor {
		slog.Info("Retrieval confidence below synthesis floor, hedging",
			"confidence", confidence, "floor", ragConfidenceFloor)
		return Result{
			Response: fmt.Sprintf("I found some reviews, but none match your question closely "+
				"(confidence %.0f%%). The closest ones are:\n\n%s", confidence*100, sources),
			LoopDelta: 1,
		}, nil
	}

	var contextBlock strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&contextBlock, "[%d] %s\n", i+1, truncateText(c.Text, 500))
	}

	answer, err := w.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(ragSynthesisPrompt, query, contextBlock.String())},
	}, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.2),
		MaxTokens:   llm.IntPtr(600),
	})
	if err != nil {
		// The retrieval already succeeded; show the sources instead of failing.
		slog.Warn("RAG synthesis call failed, returning sources only", "error", err)
		return Result{
			Response:  "I found these relevant reviews but couldn't generate a summary answer:\n\n" + sources,
			LoopDelta: 1,
		}, nil
	}

	return Result{
		Response:  answer + "\n\nSources:\n" + sources,
		LoopDelta: 1,
	}, nil
}

// detectSentimentFilter spots an explicit sentiment qualifier in the query
// so "find negative reviews about shipping" narrows the vector stage.
func detectSentimentFilter(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "negative") || strings.Contains(q, "complaint") || strings.Contains(q, "unhappy"):
		return "negative"
	case strings.Contains(q, "positive") || strings.Contains(q, "praise") || strings.Contains(q, "happy"):
		return "positive"
	case strings.Contains(q, "neutral"):
		return "neutral"
	}
	return ""
}

func formatSources(candidates []rag.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s", i+1, truncateText(c.Text, 200))
		meta := make([]string, 0, 3)
		if c.Sentiment != "" {
			meta = append(meta, "sentiment: "+c.Sentiment)
		}
		if c.Rating != "" {
			meta = append(meta, "rating: "+c.Rating)
		}
		meta = append(meta, fmt.Sprintf("relevance: %.0f%%", c.Confidence*100))
		fmt.Fprintf(&b, " (%s)\n", strings.Join(meta, ", "))
	}
	return b.String()
}

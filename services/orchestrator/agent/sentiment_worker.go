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
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
)

// SentimentWorker produces the corpus-level sentiment report. The numbers
// come straight from the stored labels; the model only narrates them.
type SentimentWorker struct {
	client llm.LLMClient
	store  *dataset.Store
}

func NewSentimentWorker(client llm.LLMClient, store *dataset.Store) *SentimentWorker {
	return &SentimentWorker{client: client, store: store}
}

func (w *SentimentWorker) Name() WorkerName { return WorkerSentiment }

func (w *SentimentWorker) Handle(ctx context.Context, query string, snapshot State) (Result, error) {
	ctx, span := tracer.Start(ctx, "SentimentWorker.Handle")
	defer span.End()

	reviews := w.store.Snapshot()
	stats := dataset.ComputeSentimentStats(reviews)
	avgRating := dataset.AverageRating(reviews)

	// The prompt sees the clearest complaints and praise: 3 negative, 2
	// positive, most confident first.
	negatives := dataset.SampleBySentiment(reviews, sentiment.Negative, 3)
	positives := dataset.SampleBySentiment(reviews, sentiment.Positive, 2)

	var b strings.Builder
	fmt.Fprintf(&b, "Total reviews: %d\n", stats.Total)
	fmt.Fprintf(&b, "Positive: %d (%.1f%%)\n", stats.Counts[sentiment.Positive], stats.Distribution[sentiment.Positive])
	fmt.Fprintf(&b, "Negative: %d (%.1f%%)\n", stats.Counts[sentiment.Negative], stats.Distribution[sentiment.Negative])
	fmt.Fprintf(&b, "Neutral: %d (%.1f%%)\n", stats.Counts[sentiment.Neutral], stats.Distribution[sentiment.Neutral])
	if avgRating > 0 {
		fmt.Fprintf(&b, "Average rating: %.2f\n", avgRating)
	}
	b.WriteString("\nNegative examples:\n")
	for _, r := range negatives {
		fmt.Fprintf(&b, "- %s\n", truncateText(r.Text, 300))
	}
	b.WriteString("\nPositive examples:\n")
	for _, r := range positives {
		fmt.Fprintf(&b, "- %s\n", truncateText(r.Text, 300))
	}

	write := &AnalysisWrite{Stats: stats, AverageRating: avgRating}

	out, err := w.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(sentimentReportPrompt, b.String())},
	}, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.3),
		MaxTokens:   llm.IntPtr(700),
	})
	if err != nil {
		// Degrade to the raw numbers; they are the part that matters.
		slog.Warn("Sentiment report LLM call failed, returning statistics only", "error", err)
		return Result{
			Response:  "Here is the sentiment breakdown:\n\n" + b.String(),
			Analysis:  write,
			LoopDelta: 1,
		}, nil
	}

	return Result{Response: out, Analysis: write, LoopDelta: 1}, nil
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

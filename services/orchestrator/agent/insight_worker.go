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
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
)

// InsightWorker turns the shared analysis statistics into a business
// report. It prefers numbers already published by earlier workers and only
// recomputes minimal counts when the context is still empty.
type InsightWorker struct {
	client   llm.LLMClient
	store    *dataset.Store
	analysis *AnalysisContext
}

func NewInsightWorker(client llm.LLMClient, store *dataset.Store, analysis *AnalysisContext) *InsightWorker {
	return &InsightWorker{client: client, store: store, analysis: analysis}
}

func (w *InsightWorker) Name() WorkerName { return WorkerInsight }

func (w *InsightWorker) Handle(ctx context.Context, query string, snapshot State) (Result, error) {
	ctx, span := tracer.Start(ctx, "InsightWorker.Handle")
	defer span.End()

	snap, ok := w.analysis.Snapshot()
	var write *AnalysisWrite
	if !ok {
		reviews := w.store.Snapshot()
		stats := dataset.ComputeSentimentStats(reviews)
		avg := dataset.AverageRating(reviews)
		snap = AnalysisSnapshot{
			Total:         stats.Total,
			Counts:        stats.Counts,
			Distribution:  stats.Distribution,
			AverageRating: avg,
		}
		write = &AnalysisWrite{Stats: stats, AverageRating: avg}
		slog.Debug("Analysis context empty, recomputed counts for insight report")
	}

	statsBlock := formatAnalysisSnapshot(snap)

	var out string
	err := retry.Do(
		func() error {
			var callErr error
			out, callErr = w.client.Chat(ctx, []llm.Message{
				{Role: llm.RoleUser, Content: fmt.Sprintf(insightPrompt, statsBlock)},
			}, llm.GenerationParams{
				Temperature: llm.Float32Ptr(0.4),
				MaxTokens:   llm.IntPtr(900),
			})
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		slog.Warn("Insight LLM calls exhausted, returning deterministic report", "error", err)
		out = fallbackInsightReport(snap)
	}

	return Result{Response: out, Analysis: write, LoopDelta: 1}, nil
}

func formatAnalysisSnapshot(snap AnalysisSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total reviews: %d\n", snap.Total)
	for _, label := range []sentiment.Label{sentiment.Positive, sentiment.Negative, sentiment.Neutral} {
		fmt.Fprintf(&b, "%s: %d (%.1f%%)\n", label, snap.Counts[label], snap.Distribution[label])
	}
	if snap.AverageRating > 0 {
		fmt.Fprintf(&b, "Average rating: %.2f\n", snap.AverageRating)
	}
	return b.String()
}

// fallbackInsightReport is the deterministic report used when the model
// stays unreachable: the four sections are still delivered, built only from
// the statistics.
func fallbackInsightReport(snap AnalysisSnapshot) string {
	var b strings.Builder
	b.WriteString("1. Key Findings\n")
	b.WriteString(formatAnalysisSnapshot(snap))

	negShare := snap.Distribution[sentiment.Negative]
	b.WriteString("\n2. Business Implications\n")
	switch {
	case negShare >= 40:
		b.WriteString("A large share of customers report problems; churn risk is elevated.\n")
	case negShare >= 20:
		b.WriteString("A meaningful minority of customers report problems worth triaging.\n")
	default:
		b.WriteString("Customer sentiment is largely favorable.\n")
	}

	b.WriteString("\n3. Recommended Actions\n")
	b.WriteString("- Review the most frequent negative topics and prioritize fixes.\n")
	b.WriteString("- Monitor the sentiment split after each product change.\n")

	b.WriteString("\n4. Risks\n")
	b.WriteString("- This report was generated without model assistance; ask again for a richer analysis.\n")
	return b.String()
}

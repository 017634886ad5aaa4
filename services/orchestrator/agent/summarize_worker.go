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
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
)

// digestSampleSize bounds how many reviews feed one digest.
const digestSampleSize = 30

// SummarizeWorker produces review digests. Every review passes the
// gatekeeper before it can cost a model call, and the digest reports how
// many were skipped and why.
type SummarizeWorker struct {
	client llm.LLMClient
	store  *dataset.Store
}

func NewSummarizeWorker(client llm.LLMClient, store *dataset.Store) *SummarizeWorker {
	return &SummarizeWorker{client: client, store: store}
}

func (w *SummarizeWorker) Name() WorkerName { return WorkerSummarize }

func (w *SummarizeWorker) Handle(ctx context.Context, query string, snapshot State) (Result, error) {
	ctx, span := tracer.Start(ctx, "SummarizeWorker.Handle")
	defer span.End()

	reviews := w.store.Snapshot()
	q := strings.ToLower(query)

	// Digest mode: negative-only unless the query asks for the whole
	// corpus. "sample" limits to a spread across labels.
	var pool []dataset.Review
	var scope string
	switch {
	case strings.Contains(q, "all") || strings.Contains(q, "overview") || strings.Contains(q, "overall"):
		pool = reviews
		scope = "all reviews"
	case strings.Contains(q, "sample"):
		pool = sampleAcrossLabels(reviews, digestSampleSize)
		scope = "a sample of reviews"
	default:
		pool = filterByLabel(reviews, sentiment.Negative)
		scope = "negative reviews"
	}
	if len(pool) > digestSampleSize {
		pool = pool[:digestSampleSize]
	}
	if len(pool) == 0 {
		return Result{
			Response:  fmt.Sprintf("There are no %s to summarize in this dataset.", scope),
			LoopDelta: 1,
		}, nil
	}

	// Gatekeeper pass: collect summarizable texts and skip statistics.
	skips := map[string]int{}
	var kept []dataset.Review
	for _, r := range pool {
		ok, reason := ShouldSummarize(r.Text)
		if !ok {
			skips[reason]++
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return Result{
			Response: fmt.Sprintf("I looked at %d %s but none needed summarizing (%s).",
				len(pool), scope, formatSkips(skips, len(pool))),
			LoopDelta: 1,
		}, nil
	}

	// Topic pass: deterministic keyword classification, counted per topic.
	topicCounts := map[string]int{}
	examples := map[string]string{}
	for _, r := range kept {
		topic, _ := ClassifyTopic(r.Text)
		topicCounts[topic]++
		if _, ok := examples[topic]; !ok {
			examples[topic] = truncateText(r.Text, 250)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scope: %s (%d of %d passed the gatekeeper)\n\nTopic counts:\n", scope, len(kept), len(pool))
	for _, tc := range sortedTopicCounts(topicCounts) {
		fmt.Fprintf(&b, "- %s: %d\n  example: %s\n", tc.topic, tc.count, examples[tc.topic])
	}

	out, err := w.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(digestPrompt, b.String())},
	}, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.3),
		MaxTokens:   llm.IntPtr(700),
	})
	if err != nil {
		slog.Warn("Digest LLM call failed, returning topic counts", "error", err)
		out = "Here is the issue breakdown:\n\n" + b.String()
	}

	if len(skips) > 0 {
		out += fmt.Sprintf("\n\n(%s)", formatSkips(skips, len(pool)))
	}
	return Result{Response: out, LoopDelta: 1}, nil
}

// SummarizeReview extracts a structured issue summary from one review,
// gatekeeper first. Skipped reviews come back with the original text as the
// summary and no model call spent.
func (w *SummarizeWorker) SummarizeReview(ctx context.Context, text string) (IssueSummary, bool, error) {
	if ok, reason := ShouldSummarize(text); !ok {
		slog.Debug("Gatekeeper skipped review", "reason", reason)
		topic, _ := ClassifyTopic(text)
		return IssueSummary{
			MainIssue: topic,
			Severity:  SeverityLow,
			Summary:   text,
		}, true, nil
	}

	out, err := w.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(issueExtractionPrompt, text)},
	}, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0),
		MaxTokens:   llm.IntPtr(300),
	})
	if err != nil {
		return IssueSummary{}, false, fmt.Errorf("issue extraction call failed: %w", err)
	}

	var summary IssueSummary
	if err := json.Unmarshal([]byte(extractJSON(out)), &summary); err != nil {
		return IssueSummary{}, false, fmt.Errorf("issue extraction returned invalid JSON: %w", err)
	}
	switch summary.Severity {
	case SeverityHigh, SeverityMedium, SeverityLow:
	default:
		summary.Severity = SeverityMedium
	}
	return summary, false, nil
}

func filterByLabel(reviews []dataset.Review, label sentiment.Label) []dataset.Review {
	out := make([]dataset.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Sentiment == label {
			out = append(out, r)
		}
	}
	return out
}

// sampleAcrossLabels interleaves labels so a small sample still spans the
// corpus.
func sampleAcrossLabels(reviews []dataset.Review, n int) []dataset.Review {
	perLabel := n / 3
	if perLabel < 1 {
		perLabel = 1
	}
	out := make([]dataset.Review, 0, n)
	for _, label := range []sentiment.Label{sentiment.Negative, sentiment.Positive, sentiment.Neutral} {
		out = append(out, dataset.SampleBySentiment(reviews, label, perLabel)...)
	}
	return out
}

func formatSkips(skips map[string]int, total int) string {
	parts := make([]string, 0, len(skips))
	for _, reason := range []string{SkipTooShort, SkipNoIssue} {
		if skips[reason] > 0 {
			parts = append(parts, fmt.Sprintf("%d skipped: %s", skips[reason], reason))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("0 of %d skipped", total)
	}
	return strings.Join(parts, ", ")
}

type topicCount struct {
	topic string
	count int
}

func sortedTopicCounts(counts map[string]int) []topicCount {
	out := make([]topicCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, topicCount{t, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].topic < out[j].topic
	})
	return out
}

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
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/datatypes"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
)

// ErrPlanUnparseable rejects analytic queries neither the rules nor the
// model could turn into a computation plan. The orchestrator reports it as
// a worker-level failure without merging any state.
var ErrPlanUnparseable = errors.New("agent: could not parse an analysis plan from the query")

// Metric is the quantity a plan computes.
type Metric string

const (
	MetricCount         Metric = "count"
	MetricAverageRating Metric = "average_rating"
	MetricPercentage    Metric = "percentage"
	MetricDistribution  Metric = "distribution"
)

// Target is the dimension a plan computes over.
type Target string

const (
	TargetSentiment Target = "sentiment"
	TargetRating    Target = "rating"
	TargetLength    Target = "length"
)

// Plan is a typed computation the analyst executes against the dataset.
// The model may PRODUCE a plan but never executes one; every number in an
// analyst answer comes from deterministic dataset statistics.
type Plan struct {
	Metric Metric              `json:"metric"`
	Target Target              `json:"target"`
	Label  sentiment.Label     `json:"label,omitempty"`
	Chart  datatypes.ChartKind `json:"chart,omitempty"`
}

// AnalystWorker answers counting, statistics, and chart queries.
type AnalystWorker struct {
	client llm.LLMClient
	store  *dataset.Store
}

func NewAnalystWorker(client llm.LLMClient, store *dataset.Store) *AnalystWorker {
	return &AnalystWorker{client: client, store: store}
}

func (w *AnalystWorker) Name() WorkerName { return WorkerAnalyst }

func (w *AnalystWorker) Handle(ctx context.Context, query string, snapshot State) (Result, error) {
	ctx, span := tracer.Start(ctx, "AnalystWorker.Handle")
	defer span.End()

	plan, ok := parsePlanRules(query)
	if !ok {
		var err error
		plan, err = w.parsePlanLLM(ctx, query)
		if err != nil {
			return Result{}, err
		}
	}
	slog.Debug("Executing analysis plan", "metric", plan.Metric, "target", plan.Target,
		"label", plan.Label, "chart", plan.Chart)

	return w.executePlan(plan)
}

// parsePlanRules is the deterministic fast path. First match wins within
// each dimension.
func parsePlanRules(query string) (Plan, bool) {
	q := strings.ToLower(query)
	var plan Plan

	// Chart kind. Any chart word forces a distribution unless the metric is
	// more specific.
	switch {
	case strings.Contains(q, "pie"):
		plan.Chart = datatypes.ChartPie
	case strings.Contains(q, "line"):
		plan.Chart = datatypes.ChartLine
	case strings.Contains(q, "scatter"):
		plan.Chart = datatypes.ChartScatter
	case strings.Contains(q, "area"):
		plan.Chart = datatypes.ChartArea
	case strings.Contains(q, "radar"):
		plan.Chart = datatypes.ChartRadar
	case strings.Contains(q, "treemap"):
		plan.Chart = datatypes.ChartTreemap
	case strings.Contains(q, "bar") || strings.Contains(q, "histogram"):
		plan.Chart = datatypes.ChartBar
	case strings.Contains(q, "chart") || strings.Contains(q, "plot") ||
		strings.Contains(q, "graph") || strings.Contains(q, "visualiz"):
		plan.Chart = datatypes.ChartPie
	}

	// Target.
	switch {
	case strings.Contains(q, "rating") || strings.Contains(q, "stars"):
		plan.Target = TargetRating
	case strings.Contains(q, "length") || strings.Contains(q, "how long") || strings.Contains(q, "word count"):
		plan.Target = TargetLength
	default:
		plan.Target = TargetSentiment
	}

	// Sentiment label qualifier.
	switch {
	case strings.Contains(q, "positive"):
		plan.Label = sentiment.Positive
	case strings.Contains(q, "negative"):
		plan.Label = sentiment.Negative
	case strings.Contains(q, "neutral"):
		plan.Label = sentiment.Neutral
	}

	// Metric.
	switch {
	case strings.Contains(q, "average") && plan.Target == TargetRating:
		plan.Metric = MetricAverageRating
	case strings.Contains(q, "percent") || strings.Contains(q, "%") || strings.Contains(q, "share of"):
		plan.Metric = MetricPercentage
	case strings.Contains(q, "distribution") || strings.Contains(q, "breakdown") || plan.Chart != "":
		plan.Metric = MetricDistribution
	case strings.Contains(q, "how many") || strings.Contains(q, "count") ||
		strings.Contains(q, "number of") || strings.Contains(q, "total"):
		plan.Metric = MetricCount
	default:
		return Plan{}, false
	}
	return plan, true
}

// parsePlanLLM asks the model for the plan as JSON. The model emits the
// plan, never the numbers.
func (w *AnalystWorker) parsePlanLLM(ctx context.Context, query string) (Plan, error) {
	out, err := w.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: analystPlanPrompt},
		{Role: llm.RoleUser, Content: query},
	}, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0),
		MaxTokens:   llm.IntPtr(120),
	})
	if err != nil {
		return Plan{}, fmt.Errorf("%w: plan call failed: %v", ErrPlanUnparseable, err)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(extractJSON(out)), &plan); err != nil {
		return Plan{}, fmt.Errorf("%w: model output was not a plan: %v", ErrPlanUnparseable, err)
	}
	if !plan.valid() {
		return Plan{}, fmt.Errorf("%w: model produced an invalid plan", ErrPlanUnparseable)
	}
	return plan, nil
}

func (p Plan) valid() bool {
	switch p.Metric {
	case MetricCount, MetricAverageRating, MetricPercentage, MetricDistribution:
	default:
		return false
	}
	switch p.Target {
	case TargetSentiment, TargetRating, TargetLength:
	default:
		return false
	}
	switch p.Label {
	case "", sentiment.Positive, sentiment.Negative, sentiment.Neutral:
	default:
		return false
	}
	return true
}

// executePlan runs the plan against the corpus snapshot. Pure computation,
// no model involvement.
func (w *AnalystWorker) executePlan(plan Plan) (Result, error) {
	reviews := w.store.Snapshot()
	stats := dataset.ComputeSentimentStats(reviews)
	avgRating := dataset.AverageRating(reviews)
	write := &AnalysisWrite{Stats: stats, AverageRating: avgRating}

	switch plan.Metric {
	case MetricCount:
		if plan.Label != "" {
			return Result{
				Response: fmt.Sprintf("There are %d %s reviews out of %d total (%.1f%%).",
					stats.Counts[plan.Label], plan.Label, stats.Total, stats.Distribution[plan.Label]),
				Analysis:  write,
				LoopDelta: 1,
			}, nil
		}
		return Result{
			Response:  fmt.Sprintf("The dataset contains %d reviews.", stats.Total),
			Analysis:  write,
			LoopDelta: 1,
		}, nil

	case MetricAverageRating:
		if avgRating == 0 {
			return Result{
				Response:  "This dataset has no rating column, so I can't compute an average rating.",
				Analysis:  write,
				LoopDelta: 1,
			}, nil
		}
		return Result{
			Response:  fmt.Sprintf("The average rating is %.2f stars across %d reviews.", avgRating, stats.Total),
			Analysis:  write,
			LoopDelta: 1,
		}, nil

	case MetricPercentage:
		label := plan.Label
		if label == "" {
			label = sentiment.Positive
		}
		return Result{
			Response: fmt.Sprintf("%.1f%% of reviews are %s (%d of %d).",
				stats.Distribution[label], label, stats.Counts[label], stats.Total),
			Analysis:  write,
			LoopDelta: 1,
		}, nil

	case MetricDistribution:
		return w.distributionResult(plan, reviews, stats, write)
	}
	return Result{}, fmt.Errorf("%w: unsupported metric %q", ErrPlanUnparseable, plan.Metric)
}

func (w *AnalystWorker) distributionResult(plan Plan, reviews []dataset.Review,
	stats dataset.SentimentStats, write *AnalysisWrite) (Result, error) {

	var series []datatypes.ChartPoint
	var title string
	var b strings.Builder

	switch plan.Target {
	case TargetRating:
		title = "Rating Distribution"
		dist := dataset.RatingDistribution(reviews)
		for _, star := range []string{"1", "2", "3", "4", "5"} {
			series = append(series, datatypes.ChartPoint{
				Name: star + " star", Value: float64(dist[star]),
			})
		}
		fmt.Fprintf(&b, "Rating distribution across %d reviews:\n", stats.Total)
		for _, p := range series {
			fmt.Fprintf(&b, "- %s: %.0f\n", p.Name, p.Value)
		}
	case TargetLength:
		title = "Review Length"
		avgLen := dataset.AverageLength(reviews)
		series = append(series, datatypes.ChartPoint{Name: "average words", Value: avgLen})
		fmt.Fprintf(&b, "Reviews average %.1f words across %d reviews.\n", avgLen, stats.Total)
	default:
		title = "Sentiment Distribution"
		for _, label := range []sentiment.Label{sentiment.Positive, sentiment.Negative, sentiment.Neutral} {
			series = append(series, datatypes.ChartPoint{
				Name: string(label), Value: float64(stats.Counts[label]),
			})
		}
		fmt.Fprintf(&b, "Sentiment distribution across %d reviews:\n", stats.Total)
		for _, label := range []sentiment.Label{sentiment.Positive, sentiment.Negative, sentiment.Neutral} {
			fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", label, stats.Counts[label], stats.Distribution[label])
		}
	}

	result := Result{Response: b.String(), Analysis: write, LoopDelta: 1}
	if plan.Chart != "" {
		result.Chart = &datatypes.ChartPayload{Kind: plan.Chart, Title: title, Series: series}
	}
	return result, nil
}

// extractJSON strips markdown fences and surrounding prose from a model
// answer that should be a JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

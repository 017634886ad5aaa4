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
	"strings"

	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("feedback.orchestrator.agent")

// WorkerName identifies one member of the closed worker set.
type WorkerName string

const (
	WorkerChat      WorkerName = "chat"
	WorkerSentiment WorkerName = "sentiment"
	WorkerRAG       WorkerName = "rag"
	WorkerAnalyst   WorkerName = "analyst"
	WorkerInsight   WorkerName = "insight"
	WorkerSummarize WorkerName = "summarize"
)

// RouteMethod records which path produced a routing decision.
type RouteMethod string

const (
	RouteRules   RouteMethod = "rules"
	RouteLLM     RouteMethod = "llm"
	RouteDefault RouteMethod = "default"
)

// ruleGroup is one keyword rule in the fast path. Groups are evaluated in
// slice order; the first match wins, so the slice order IS the routing
// priority.
type ruleGroup struct {
	worker   WorkerName
	keywords []string
	// unless suppresses the match when any of these words also appear.
	unless []string
}

// routingRules in priority order:
//  1. greetings and meta questions stay conversational
//  2. chart requests outrank every other analytic signal
//  3. counting and statistics
//  4. explicit search
//  5. sentiment analysis, unless chart words already claimed the query
//  6. summaries
//  7. insights and strategy
var routingRules = []ruleGroup{
	{worker: WorkerChat, keywords: []string{"hello", "hi ", "hey", "good morning", "good afternoon", "thank", "help", "what can you do", "who are you"}},
	{worker: WorkerAnalyst, keywords: []string{"chart", "plot", "graph", "visualiz", "pie", "histogram", "treemap"}},
	{worker: WorkerAnalyst, keywords: []string{"how many", "count", "number of", "average rating", "statistics", "percentage", "distribution", "breakdown"}},
	{worker: WorkerRAG, keywords: []string{"search", "find review", "find me", "look up", "show me review", "reviews about", "reviews mention"}},
	{worker: WorkerSentiment, keywords: []string{"sentiment", "feeling", "how do customers feel", "opinion", "satisfaction"},
		unless: []string{"chart", "plot", "graph", "visualiz"}},
	{worker: WorkerSummarize, keywords: []string{"summary", "summarize", "summarise", "digest", "tl;dr", "main issues", "key complaints"}},
	{worker: WorkerInsight, keywords: []string{"insight", "recommend", "strategy", "action", "improve", "what should", "takeaway"}},
}

// Supervisor routes each query to exactly one worker.
//
// # Description
//
// The fast path is a fixed priority list of keyword groups: O(rules) string
// scans, zero network calls. Only when no rule fires does the supervisor
// spend one small model call, and an unrecognized answer falls through to
// the chat worker. Per-path counters are exported under
// feedback_router_decisions_total.
type Supervisor struct {
	client llm.LLMClient
}

func NewSupervisor(client llm.LLMClient) *Supervisor {
	return &Supervisor{client: client}
}

// Route picks the destination worker for a query.
func (s *Supervisor) Route(ctx context.Context, query string) (WorkerName, RouteMethod, error) {
	ctx, span := tracer.Start(ctx, "Supervisor.Route")
	defer span.End()

	if worker, ok := matchRules(query); ok {
		span.SetAttributes(attribute.String("route.worker", string(worker)),
			attribute.String("route.method", string(RouteRules)))
		routeDecisions.WithLabelValues(string(worker), string(RouteRules)).Inc()
		return worker, RouteRules, nil
	}

	worker, method := s.routeWithLLM(ctx, query)
	span.SetAttributes(attribute.String("route.worker", string(worker)),
		attribute.String("route.method", string(method)))
	routeDecisions.WithLabelValues(string(worker), string(method)).Inc()
	return worker, method, nil
}

// matchRules runs the fast path. Exported behavior: first matching group
// wins, the unless list vetoes a group without consuming the query.
func matchRules(query string) (WorkerName, bool) {
	q := " " + strings.ToLower(strings.TrimSpace(query)) + " "
	for _, group := range routingRules {
		vetoed := false
		for _, u := range group.unless {
			if strings.Contains(q, u) {
				vetoed = true
				break
			}
		}
		if vetoed {
			continue
		}
		for _, kw := range group.keywords {
			if strings.Contains(q, kw) {
				return group.worker, true
			}
		}
	}
	return "", false
}

// routeWithLLM asks the model to name a worker. Any failure or unrecognized
// output defaults to chat; routing never fails a turn.
func (s *Supervisor) routeWithLLM(ctx context.Context, query string) (WorkerName, RouteMethod) {
	out, err := s.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: routerSystemPrompt},
		{Role: llm.RoleUser, Content: query},
	}, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0),
		MaxTokens:   llm.IntPtr(8),
	})
	if err != nil {
		slog.Warn("Router LLM call failed, defaulting to chat", "error", err)
		return WorkerChat, RouteDefault
	}

	name := WorkerName(strings.ToLower(strings.TrimSpace(out)))
	switch name {
	case WorkerChat, WorkerSentiment, WorkerRAG, WorkerAnalyst, WorkerInsight, WorkerSummarize:
		return name, RouteLLM
	}
	slog.Warn("Router LLM returned an unknown worker, defaulting to chat", "output", out)
	return WorkerChat, RouteDefault
}

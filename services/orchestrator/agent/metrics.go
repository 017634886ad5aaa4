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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedback",
		Subsystem: "router",
		Name:      "decisions_total",
		Help:      "Routing decisions by destination worker and method (rules, llm, default).",
	}, []string{"worker", "method"})

	workerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedback",
		Subsystem: "agent",
		Name:      "worker_failures_total",
		Help:      "Worker invocations that returned an error (no state was merged).",
	}, []string{"worker"})

	turnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "feedback",
		Subsystem: "agent",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end turn latency by destination worker.",
		Buckets:   []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30},
	}, []string{"worker"})

	noDataShortCircuits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "feedback",
		Subsystem: "agent",
		Name:      "no_data_short_circuits_total",
		Help:      "Turns answered with the data-not-ready message before any worker ran.",
	})

	chatCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedback",
		Subsystem: "chat",
		Name:      "cache_hits_total",
		Help:      "Chat responses served without a model call, by source (canned, ttl).",
	}, []string{"source"})
)

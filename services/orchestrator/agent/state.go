// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package agent is the core of the review-analytics service: a supervisor
// that routes each query to exactly one worker, the workers themselves, the
// per-session state they observe, and the orchestrator that commits their
// results.
package agent

import (
	"sync"

	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/datatypes"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
)

// Turn is one history entry. Role is "user" or "assistant".
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is the conversational state of one session. Workers receive a
// value-copied snapshot and never mutate the live state; the orchestrator is
// the only writer.
//
// LoopCount increments by exactly one per completed worker invocation and is
// never decremented.
type State struct {
	History      []Turn
	LoopCount    int
	DatasetID    string
	ActiveWorker WorkerName
}

// Clone deep-copies the state so a worker snapshot cannot alias the live
// history slice.
func (s State) Clone() State {
	out := s
	out.History = make([]Turn, len(s.History))
	copy(out.History, s.History)
	return out
}

// LastTurns returns up to n trailing history turns for prompt windows.
func (s State) LastTurns(n int) []Turn {
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Result is what a worker hands back on success. The orchestrator merges it
// atomically: history append, loop increment, and analysis writes happen
// together or not at all.
type Result struct {
	Response string
	Chart    *datatypes.ChartPayload
	// Analysis carries derived statistics to publish into the shared
	// AnalysisContext. Nil means no writes.
	Analysis *AnalysisWrite
	// LoopDelta is always 1 for a completed invocation.
	LoopDelta int
}

// AnalysisWrite is the typed payload a worker publishes to the shared
// context.
type AnalysisWrite struct {
	Stats         dataset.SentimentStats
	AverageRating float64
}

// AnalysisSnapshot is a read-only view of the shared context.
type AnalysisSnapshot struct {
	Total         int
	Counts        map[sentiment.Label]int
	Distribution  map[sentiment.Label]float64
	AverageRating float64
}

// AnalysisContext is the corpus-scoped bag of derived statistics workers
// share. It is keyed to the dataset rather than any session: a session
// reset clears history and the loop counter but leaves these numbers
// standing, and every session reads the same values. Last writer wins.
type AnalysisContext struct {
	mu        sync.RWMutex
	populated bool
	snapshot  AnalysisSnapshot
}

func NewAnalysisContext() *AnalysisContext {
	return &AnalysisContext{}
}

// Publish replaces the stored statistics.
func (a *AnalysisContext) Publish(w AnalysisWrite) {
	a.mu.Lock()
	defer a.mu.Unlock()
	counts := make(map[sentiment.Label]int, len(w.Stats.Counts))
	for k, v := range w.Stats.Counts {
		counts[k] = v
	}
	dist := make(map[sentiment.Label]float64, len(w.Stats.Distribution))
	for k, v := range w.Stats.Distribution {
		dist[k] = v
	}
	a.snapshot = AnalysisSnapshot{
		Total:         w.Stats.Total,
		Counts:        counts,
		Distribution:  dist,
		AverageRating: w.AverageRating,
	}
	a.populated = true
}

// Snapshot returns a copy of the stored statistics and whether any worker
// has published yet.
func (a *AnalysisContext) Snapshot() (AnalysisSnapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.populated {
		return AnalysisSnapshot{}, false
	}
	counts := make(map[sentiment.Label]int, len(a.snapshot.Counts))
	for k, v := range a.snapshot.Counts {
		counts[k] = v
	}
	dist := make(map[sentiment.Label]float64, len(a.snapshot.Distribution))
	for k, v := range a.snapshot.Distribution {
		dist[k] = v
	}
	return AnalysisSnapshot{
		Total:         a.snapshot.Total,
		Counts:        counts,
		Distribution:  dist,
		AverageRating: a.snapshot.AverageRating,
	}, true
}

// Clear drops the stored statistics. Called when a new corpus replaces the
// old one, never on session reset.
func (a *AnalysisContext) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.populated = false
	a.snapshot = AnalysisSnapshot{}
}

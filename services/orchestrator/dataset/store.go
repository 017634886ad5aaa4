// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package dataset owns the in-memory review corpus: CSV ingestion, column
// detection, and the deterministic statistics every analytic worker reads
// from.
package dataset

import (
	"sync"

	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
)

// Review is one labeled corpus row. The sentiment label is attached once at
// ingestion and never recomputed afterwards.
type Review struct {
	Text       string          `json:"text"`
	Rating     float64         `json:"rating"`
	Sentiment  sentiment.Label `json:"sentiment"`
	Confidence float64         `json:"confidence"`
}

// Store holds the active corpus behind a RWMutex: ingestion replaces the
// whole corpus under the write lock, workers read concurrently.
type Store struct {
	mu        sync.RWMutex
	datasetID string
	reviews   []Review
}

func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a freshly ingested corpus under the given opaque handle.
func (s *Store) Replace(datasetID string, reviews []Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasetID = datasetID
	s.reviews = reviews
}

// Clear drops the corpus, returning the store to the no-data state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasetID = ""
	s.reviews = nil
}

// Ready reports whether a corpus has been ingested.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews) > 0
}

// ID returns the opaque handle of the active corpus, empty when none.
func (s *Store) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasetID
}

// Len returns the number of reviews in the active corpus.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews)
}

// Snapshot returns a copy of the corpus so callers can iterate without
// holding the lock across LLM calls.
func (s *Store) Snapshot() []Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Review, len(s.reviews))
	copy(out, s.reviews)
	return out
}

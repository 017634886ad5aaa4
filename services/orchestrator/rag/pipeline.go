// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package rag implements the hybrid retrieval pipeline: broad vector search,
// content dedup, cross-encoder rerank, and confidence scoring.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("feedback.orchestrator.rag")

// ErrInvalidTopK rejects non-positive result sizes before any remote call.
var ErrInvalidTopK = errors.New("rag: top-k must be positive")

// Candidate is one retrieved review moving through the pipeline stages.
type Candidate struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Sentiment   string  `json:"sentiment"`
	Rating      string  `json:"rating"`
	Similarity  float64 `json:"similarity"`
	RerankScore float64 `json:"rerank_score"`
	Confidence  float64 `json:"confidence"`
	ContentHash string  `json:"-"`
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher runs the broad vector stage against the index. An empty index
// returns an empty slice and a nil error.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int, sentimentFilter string) ([]Candidate, error)
}

// Reranker scores query/passage pairs with a cross-encoder and returns one
// raw logit per passage, in input order.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// QueryExpander produces up to two reworded variants of the query. Optional;
// the pipeline runs with expansion off by default.
type QueryExpander interface {
	Expand(ctx context.Context, query string) ([]string, error)
}

// PipelineConfig tunes the retrieval stages.
type PipelineConfig struct {
	// BroadMultiplier sets kBroad = BroadMultiplier * kFinal for the vector
	// stage, giving the reranker headroom after dedup.
	BroadMultiplier int
	// RetryAttempts bounds each remote stage.
	RetryAttempts uint
	// RetryBaseDelay seeds the exponential backoff.
	RetryBaseDelay time.Duration
	// ExpandQueries enables the optional LLM expansion stage.
	ExpandQueries bool
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BroadMultiplier: 3,
		RetryAttempts:   3,
		RetryBaseDelay:  200 * time.Millisecond,
		ExpandQueries:   false,
	}
}

func validatePipelineConfig(config PipelineConfig) PipelineConfig {
	defaults := DefaultPipelineConfig()
	if config.BroadMultiplier < 1 {
		slog.Warn("Invalid BroadMultiplier config, using default",
			"provided", config.BroadMultiplier, "default", defaults.BroadMultiplier)
		config.BroadMultiplier = defaults.BroadMultiplier
	}
	if config.RetryAttempts < 1 {
		slog.Warn("Invalid RetryAttempts config, using default",
			"provided", config.RetryAttempts, "default", defaults.RetryAttempts)
		config.RetryAttempts = defaults.RetryAttempts
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = defaults.RetryBaseDelay
	}
	return config
}

// Pipeline wires the retrieval stages together.
//
// # Description
//
// Retrieve runs: embed query -> broad vector search (kBroad) -> dedup by
// normalized content hash -> cross-encoder rerank -> sigmoid confidence ->
// truncate to kFinal. Remote stages retry with exponential backoff; a
// reranker that stays down degrades the result to vector order instead of
// failing the query.
//
// # Thread Safety
//
// Pipeline is safe for concurrent use; all state lives in the injected
// clients.
type Pipeline struct {
	embedder Embedder
	searcher Searcher
	reranker Reranker
	expander QueryExpander
	config   PipelineConfig
}

func NewPipeline(embedder Embedder, searcher Searcher, reranker Reranker, config PipelineConfig) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		searcher: searcher,
		reranker: reranker,
		config:   validatePipelineConfig(config),
	}
}

// WithExpander attaches the optional query-expansion stage.
func (p *Pipeline) WithExpander(e QueryExpander) *Pipeline {
	p.expander = e
	return p
}

// Retrieve returns up to kFinal deduplicated, reranked candidates for the
// query. sentimentFilter narrows the vector stage to one stored label when
// non-empty.
//
// # Outputs
//
//   - []Candidate: sorted by rerank score descending (or similarity when the
//     reranker degraded), no two sharing a content hash.
//   - error: ErrInvalidTopK for kFinal <= 0; otherwise only when the index
//     itself stays unreachable through the retry budget. An empty index is
//     an empty result, not an error.
func (p *Pipeline) Retrieve(ctx context.Context, query string, kFinal int, sentimentFilter string) ([]Candidate, error) {
	if kFinal <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, kFinal)
	}
	ctx, span := tracer.Start(ctx, "Pipeline.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.Int("rag.k_final", kFinal),
		attribute.String("rag.sentiment_filter", sentimentFilter),
	)

	queries := []string{query}
	if p.config.ExpandQueries && p.expander != nil {
		variants, err := p.expander.Expand(ctx, query)
		if err != nil {
			slog.Warn("Query expansion failed, continuing with original query", "error", err)
		} else {
			queries = append(queries, variants...)
		}
	}

	// 1. Broad vector stage over all query variants.
	kBroad := p.config.BroadMultiplier * kFinal
	var pool []Candidate
	for _, q := range queries {
		candidates, err := p.vectorStage(ctx, q, kBroad, sentimentFilter)
		if err != nil {
			return nil, err
		}
		pool = append(pool, candidates...)
	}
	if len(pool) == 0 {
		slog.Info("Vector stage returned no candidates", "query", query)
		return []Candidate{}, nil
	}

	// 2. Dedup: first occurrence in similarity order wins.
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Similarity > pool[j].Similarity })
	deduped := dedupCandidates(pool)
	slog.Debug("Deduplicated vector candidates", "broad", len(pool), "unique", len(deduped))

	// 3. Cross-encoder rerank, degrading to vector order on exhaustion.
	ranked, degraded := p.rerankStage(ctx, query, deduped)
	if degraded {
		for i := range ranked {
			ranked[i].Confidence = ranked[i].Similarity
		}
	} else {
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RerankScore > ranked[j].RerankScore })
		for i := range ranked {
			ranked[i].Confidence = sigmoid(ranked[i].RerankScore)
		}
	}

	if len(ranked) > kFinal {
		ranked = ranked[:kFinal]
	}
	span.SetAttributes(attribute.Int("rag.results", len(ranked)), attribute.Bool("rag.degraded", degraded))
	return ranked, nil
}

func (p *Pipeline) vectorStage(ctx context.Context, query string, limit int, sentimentFilter string) ([]Candidate, error) {
	var vector []float32
	err := retry.Do(
		func() error {
			var embedErr error
			vector, embedErr = p.embedder.Embed(ctx, query)
			return embedErr
		},
		retry.Context(ctx),
		retry.Attempts(p.config.RetryAttempts),
		retry.Delay(p.config.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var candidates []Candidate
	err = retry.Do(
		func() error {
			var searchErr error
			candidates, searchErr = p.searcher.Search(ctx, vector, limit, sentimentFilter)
			return searchErr
		},
		retry.Context(ctx),
		retry.Attempts(p.config.RetryAttempts),
		retry.Delay(p.config.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed after retries: %w", err)
	}
	return candidates, nil
}

// rerankStage scores the candidates, reporting degraded=true when the
// reranker stayed down through the retry budget.
func (p *Pipeline) rerankStage(ctx context.Context, query string, candidates []Candidate) ([]Candidate, bool) {
	if p.reranker == nil || len(candidates) == 0 {
		return candidates, p.reranker == nil
	}
	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Text
	}

	var scores []float64
	err := retry.Do(
		func() error {
			var scoreErr error
			scores, scoreErr = p.reranker.Score(ctx, query, passages)
			if scoreErr == nil && len(scores) != len(passages) {
				return fmt.Errorf("reranker returned %d scores for %d passages", len(scores), len(passages))
			}
			return scoreErr
		},
		retry.Context(ctx),
		retry.Attempts(p.config.RetryAttempts),
		retry.Delay(p.config.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		slog.Warn("Reranker unavailable, degrading to vector order", "error", err)
		return candidates, true
	}
	for i := range candidates {
		candidates[i].RerankScore = scores[i]
	}
	return candidates, false
}

// dedupCandidates drops candidates whose normalized content was already
// seen, preserving input order. Also backfills the ContentHash field.
func dedupCandidates(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		h := ContentHash(c.Text)
		if seen[h] {
			continue
		}
		seen[h] = true
		c.ContentHash = h
		out = append(out, c)
	}
	return out
}

// ContentHash fingerprints review text for dedup: trim, lowercase, hash.
func ContentHash(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// OverallConfidence summarizes a result set as the mean candidate
// confidence, 0 for an empty set. A top rerank logit below zero means even
// the best passage is a weak match, so the aggregate is halved; individual
// candidate confidences stay untouched and monotone with rank.
func OverallConfidence(candidates []Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candidates {
		sum += c.Confidence
	}
	mean := sum / float64(len(candidates))
	if candidates[0].RerankScore < 0 {
		mean /= 2
	}
	return mean
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// ReviewClass is the Weaviate class holding indexed review chunks.
const ReviewClass = "Review"

// WeaviateSearcher implements Searcher over a Weaviate nearVector query
// against the Review class.
//
// # Thread Safety
//
// Safe for concurrent use; the Weaviate client pools connections.
type WeaviateSearcher struct {
	client *weaviate.Client
}

func NewWeaviateSearcher(client *weaviate.Client) *WeaviateSearcher {
	return &WeaviateSearcher{client: client}
}

// Search runs the broad vector stage. sentimentFilter narrows results to
// one stored label when non-empty.
func (s *WeaviateSearcher) Search(ctx context.Context, vector []float32, limit int, sentimentFilter string) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "WeaviateSearcher.Search")
	defer span.End()

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	// Request certainty (always [0,1]) instead of distance which varies by metric.
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "sentiment"},
		{Name: "rating"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}

	query := s.client.GraphQL().Get().
		WithClassName(ReviewClass).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)

	if sentimentFilter != "" {
		where := filters.Where().
			WithPath([]string{"sentiment"}).
			WithOperator(filters.Equal).
			WithValueString(sentimentFilter)
		query = query.WithWhere(where)
	}

	result, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search returned errors: %s", result.Errors[0].Message)
	}

	candidates := parseReviewResults(result.Data)
	slog.Debug("Vector search complete", "limit", limit, "hits", len(candidates),
		"sentiment_filter", sentimentFilter)
	return candidates, nil
}

// parseReviewResults walks the untyped GraphQL response shape
// Get -> Review -> [ {content, sentiment, rating, _additional{id, certainty}} ].
func parseReviewResults(data map[string]models.JSONObject) []Candidate {
	candidates := []Candidate{}
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return candidates
	}
	rows, ok := get[ReviewClass].([]any)
	if !ok {
		return candidates
	}
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		var c Candidate
		if v, ok := obj["content"].(string); ok {
			c.Text = v
		}
		if v, ok := obj["sentiment"].(string); ok {
			c.Sentiment = v
		}
		if v, ok := obj["rating"].(string); ok {
			c.Rating = v
		}
		if add, ok := obj["_additional"].(map[string]any); ok {
			if id, ok := add["id"].(string); ok {
				c.ID = id
			}
			if cert, ok := add["certainty"].(float64); ok {
				c.Similarity = cert
			}
		}
		if c.Text == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

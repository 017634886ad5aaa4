// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
)

// SentimentStats is the deterministic per-label breakdown of a corpus.
// Percentages are rounded to one decimal and always derive from Counts, so
// chart series built from them sum back to Total.
type SentimentStats struct {
	Total        int                         `json:"total_reviews"`
	Counts       map[sentiment.Label]int     `json:"sentiment_counts"`
	Distribution map[sentiment.Label]float64 `json:"sentiment_distribution"`
}

// ComputeSentimentStats tallies stored labels. It never re-classifies.
func ComputeSentimentStats(reviews []Review) SentimentStats {
	stats := SentimentStats{
		Total:        len(reviews),
		Counts:       map[sentiment.Label]int{sentiment.Positive: 0, sentiment.Negative: 0, sentiment.Neutral: 0},
		Distribution: map[sentiment.Label]float64{},
	}
	for _, r := range reviews {
		stats.Counts[r.Sentiment]++
	}
	for label, count := range stats.Counts {
		if stats.Total > 0 {
			stats.Distribution[label] = math.Round(float64(count)/float64(stats.Total)*1000) / 10
		} else {
			stats.Distribution[label] = 0
		}
	}
	return stats
}

// AverageRating returns the mean of the non-zero ratings, or 0 when the
// corpus carries no ratings.
func AverageRating(reviews []Review) float64 {
	var sum float64
	var n int
	for _, r := range reviews {
		if r.Rating > 0 {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*100) / 100
}

// RatingDistribution buckets ratings into whole stars. Keys are "1".."5";
// out-of-range ratings are clamped.
func RatingDistribution(reviews []Review) map[string]int {
	dist := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
	for _, r := range reviews {
		if r.Rating <= 0 {
			continue
		}
		star := int(math.Round(r.Rating))
		if star < 1 {
			star = 1
		}
		if star > 5 {
			star = 5
		}
		dist[fmt.Sprintf("%d", star)]++
	}
	return dist
}

// AverageLength returns the mean review length in words, rounded to one
// decimal.
func AverageLength(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range reviews {
		total += len(strings.Fields(r.Text))
	}
	return math.Round(float64(total)/float64(len(reviews))*10) / 10
}

// SampleBySentiment returns up to n reviews carrying the given label, most
// confident first so the prompts see the clearest examples.
func SampleBySentiment(reviews []Review, label sentiment.Label, n int) []Review {
	matched := make([]Review, 0, n)
	for _, r := range reviews {
		if r.Sentiment == label {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Confidence > matched[j].Confidence
	})
	if len(matched) > n {
		matched = matched[:n]
	}
	return matched
}

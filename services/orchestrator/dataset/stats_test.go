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
	"testing"

	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsFixture() []Review {
	return []Review{
		{Text: "love it so much", Sentiment: sentiment.Positive, Rating: 5, Confidence: 0.9},
		{Text: "pretty good overall", Sentiment: sentiment.Positive, Rating: 4, Confidence: 0.6},
		{Text: "terrible experience", Sentiment: sentiment.Negative, Rating: 1, Confidence: 0.95},
		{Text: "it is fine", Sentiment: sentiment.Neutral, Rating: 3, Confidence: 0.4},
	}
}

func TestComputeSentimentStats(t *testing.T) {
	stats := ComputeSentimentStats(statsFixture())

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Counts[sentiment.Positive])
	assert.Equal(t, 1, stats.Counts[sentiment.Negative])
	assert.Equal(t, 1, stats.Counts[sentiment.Neutral])

	// Counts sum back to the total; the distribution derives from them.
	sum := 0
	for _, c := range stats.Counts {
		sum += c
	}
	assert.Equal(t, stats.Total, sum)
	assert.Equal(t, 50.0, stats.Distribution[sentiment.Positive])
	assert.Equal(t, 25.0, stats.Distribution[sentiment.Negative])
	assert.Equal(t, 25.0, stats.Distribution[sentiment.Neutral])
}

func TestComputeSentimentStats_Empty(t *testing.T) {
	stats := ComputeSentimentStats(nil)
	assert.Equal(t, 0, stats.Total)
	for _, label := range []sentiment.Label{sentiment.Positive, sentiment.Negative, sentiment.Neutral} {
		assert.Equal(t, 0, stats.Counts[label])
		assert.Equal(t, 0.0, stats.Distribution[label])
	}
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 3.25, AverageRating(statsFixture()))
}

func TestAverageRating_IgnoresUnrated(t *testing.T) {
	reviews := []Review{
		{Text: "a", Rating: 4},
		{Text: "b", Rating: 0},
		{Text: "c", Rating: 0},
	}
	assert.Equal(t, 4.0, AverageRating(reviews))
	assert.Equal(t, 0.0, AverageRating([]Review{{Text: "no rating"}}))
}

func TestRatingDistribution_Clamps(t *testing.T) {
	reviews := []Review{
		{Rating: 5}, {Rating: 4.6}, {Rating: 1}, {Rating: 0.4}, {Rating: 7}, {Rating: 0},
	}
	dist := RatingDistribution(reviews)

	assert.Equal(t, 2, dist["5"]) // 5 and the clamped 7
	assert.Equal(t, 2, dist["1"]) // 1 and the clamped 0.4
	assert.Equal(t, 0, dist["4"]+dist["2"]+dist["3"])

	// Unrated rows (rating 0) are excluded entirely.
	total := 0
	for _, c := range dist {
		total += c
	}
	assert.Equal(t, 4, total)
}

func TestAverageLength(t *testing.T) {
	reviews := []Review{
		{Text: "one two three"},
		{Text: "one"},
	}
	assert.Equal(t, 2.0, AverageLength(reviews))
	assert.Equal(t, 0.0, AverageLength(nil))
}

func TestSampleBySentiment_MostConfidentFirst(t *testing.T) {
	sample := SampleBySentiment(statsFixture(), sentiment.Positive, 5)
	require.Len(t, sample, 2)
	assert.Equal(t, "love it so much", sample[0].Text)
	assert.Equal(t, "pretty good overall", sample[1].Text)
}

func TestSampleBySentiment_Truncates(t *testing.T) {
	sample := SampleBySentiment(statsFixture(), sentiment.Positive, 1)
	require.Len(t, sample, 1)
	assert.Equal(t, "love it so much", sample[0].Text)

	assert.Empty(t, SampleBySentiment(nil, sentiment.Negative, 3))
}

package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

// graphqlReviewData builds a response body shaped the way the client hands
// it back: map[string]models.JSONObject at the top, plain any below.
func graphqlReviewData(rows []any) map[string]models.JSONObject {
	return map[string]models.JSONObject{
		"Get": map[string]any{
			ReviewClass: rows,
		},
	}
}

func TestParseReviewResults(t *testing.T) {
	data := graphqlReviewData([]any{
		map[string]any{
			"content":   "great phone, battery lasts days",
			"sentiment": "positive",
			"rating":    "5",
			"_additional": map[string]any{
				"id":        "aaa-111",
				"certainty": 0.93,
			},
		},
		map[string]any{
			"content": "screen cracked in a week",
			"_additional": map[string]any{
				"id":        "bbb-222",
				"certainty": 0.71,
			},
		},
	})

	got := parseReviewResults(data)
	require.Len(t, got, 2)
	assert.Equal(t, "aaa-111", got[0].ID)
	assert.Equal(t, "positive", got[0].Sentiment)
	assert.Equal(t, "5", got[0].Rating)
	assert.InDelta(t, 0.93, got[0].Similarity, 1e-9)
	assert.Equal(t, "screen cracked in a week", got[1].Text)
	assert.Equal(t, "", got[1].Sentiment)
}

func TestParseReviewResults_MalformedShapes(t *testing.T) {
	tests := []struct {
		name string
		data map[string]models.JSONObject
	}{
		{"empty response", map[string]models.JSONObject{}},
		{"get is wrong type", map[string]models.JSONObject{"Get": "nope"}},
		{"class missing", map[string]models.JSONObject{"Get": map[string]any{}}},
		{"no rows", graphqlReviewData(nil)},
		{"row not an object", graphqlReviewData([]any{"just a string"})},
		{"row without content", graphqlReviewData([]any{
			map[string]any{"sentiment": "negative"},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, parseReviewResults(tt.data))
		})
	}
}

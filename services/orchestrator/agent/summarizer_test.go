package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Gatekeeper
// =============================================================================

func TestShouldSummarize(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   bool
		reason string
	}{
		{
			name:   "too short",
			text:   "bad product",
			want:   false,
			reason: SkipTooShort,
		},
		{
			name:   "positive with no issue",
			text:   "I absolutely love this product, it works great and arrived on time for me",
			want:   false,
			reason: SkipNoIssue,
		},
		{
			name: "long complaint passes",
			text: "The package arrived two weeks late and the item inside was broken, support refused a refund",
			want: true,
		},
		{
			name: "positive wording but issue keywords pass",
			text: "Great product overall but it stopped working after two days and the refund process was painful",
			want: true,
		},
		{
			name: "neutral long text passes",
			text: "The device has three buttons on the side and a screen that shows the time and the date",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ShouldSummarize(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

// =============================================================================
// Topic Classifier
// =============================================================================

func TestClassifyTopic(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		topic string
	}{
		{"delivery", "the package was late and the courier lost the tracking number", "Delivery"},
		{"customer service", "customer service was rude and there was no response to my emails", "Customer Service"},
		{"account", "my account was charged twice for the prime subscription", "Account/Prime"},
		{"refund", "I asked for a refund and an exchange but got neither", "Refund/Return"},
		{"website", "the app crashes at checkout every single time", "Website/App"},
		{"product", "the item quality is awful, clearly a counterfeit from a shady seller", "Seller/Product"},
		{"no signal defaults", "completely unrelated text about weather", "Seller/Product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, conf := ClassifyTopic(tt.text)
			assert.Equal(t, tt.topic, topic)
			if tt.name == "no signal defaults" {
				assert.Equal(t, 0.0, conf)
			} else {
				assert.Greater(t, conf, 0.0)
				assert.LessOrEqual(t, conf, 1.0)
			}
		})
	}
}

func TestClassifyTopic_ConfidenceIsShareOfHits(t *testing.T) {
	// Two delivery hits, one refund hit.
	topic, conf := ClassifyTopic("the delivery was late and then the refund never came")
	assert.Equal(t, "Delivery", topic)
	assert.InDelta(t, 2.0/3.0, conf, 0.01)
}

// =============================================================================
// Digest Worker
// =============================================================================

func TestSummarizeWorker_ReportsSkipStats(t *testing.T) {
	store := dataset.NewStore()
	store.Replace("ds", []dataset.Review{
		{Text: "bad", Sentiment: sentiment.Negative},
		{Text: "The package arrived two weeks late and the item inside was broken beyond repair", Sentiment: sentiment.Negative},
	})
	w := NewSummarizeWorker(staticLLM("digest text", nil), store)

	result, err := w.Handle(context.Background(), "summarize the negative reviews", State{})
	require.NoError(t, err)
	assert.Contains(t, result.Response, "digest text")
	assert.Contains(t, result.Response, "1 skipped: too_short")
}

func TestSummarizeWorker_NothingToSummarize(t *testing.T) {
	store := dataset.NewStore()
	store.Replace("ds", []dataset.Review{
		{Text: "all good", Sentiment: sentiment.Positive},
	})
	mock := staticLLM("", errors.New("must not be called"))
	w := NewSummarizeWorker(mock, store)

	result, err := w.Handle(context.Background(), "summarize the complaints", State{})
	require.NoError(t, err)
	assert.Contains(t, result.Response, "no negative reviews")
	assert.Equal(t, 0, mock.callCount)
}

func TestSummarizeWorker_DigestLLMFailureDegrades(t *testing.T) {
	store := dataset.NewStore()
	store.Replace("ds", []dataset.Review{
		{Text: "The package arrived two weeks late and the item inside was broken beyond repair", Sentiment: sentiment.Negative},
	})
	w := NewSummarizeWorker(staticLLM("", errors.New("down")), store)

	result, err := w.Handle(context.Background(), "summarize the negative reviews", State{})
	require.NoError(t, err)
	assert.Contains(t, result.Response, "Delivery")
}

// =============================================================================
// Single Review Extraction
// =============================================================================

func TestSummarizeReview_GatekeeperSkipsWithoutModelCall(t *testing.T) {
	mock := staticLLM("", errors.New("must not be called"))
	w := NewSummarizeWorker(mock, dataset.NewStore())

	summary, skipped, err := w.SummarizeReview(context.Background(), "nice product")
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Equal(t, "nice product", summary.Summary)
	assert.Equal(t, 0, mock.callCount)
}

func TestSummarizeReview_ExtractsJSON(t *testing.T) {
	mock := staticLLM(`{"main_issue":"Late delivery","issue_detail":"two weeks late","severity":"high","tags":["delivery"],"summary":"Very late delivery"}`, nil)
	w := NewSummarizeWorker(mock, dataset.NewStore())

	summary, skipped, err := w.SummarizeReview(context.Background(),
		"The package arrived two weeks late and the item inside was broken beyond repair")
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, "Late delivery", summary.MainIssue)
	assert.Equal(t, SeverityHigh, summary.Severity)
}

func TestSummarizeReview_InvalidSeverityNormalized(t *testing.T) {
	mock := staticLLM(`{"main_issue":"x","severity":"catastrophic","summary":"y"}`, nil)
	w := NewSummarizeWorker(mock, dataset.NewStore())

	summary, _, err := w.SummarizeReview(context.Background(),
		"The package arrived two weeks late and the item inside was broken beyond repair")
	require.NoError(t, err)
	assert.Equal(t, SeverityMedium, summary.Severity)
}

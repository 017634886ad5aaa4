package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// mockLLM implements llm.LLMClient with call tracking.
type mockLLM struct {
	fn        func(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error)
	callCount int
	lastMsgs  []llm.Message
}

func (m *mockLLM) Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	m.callCount++
	m.lastMsgs = messages
	if m.fn != nil {
		return m.fn(ctx, messages, params)
	}
	return "", nil
}

func staticLLM(response string, err error) *mockLLM {
	return &mockLLM{fn: func(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
		return response, err
	}}
}

// =============================================================================
// Fast Path Tests
// =============================================================================

func TestRoute_FastPath(t *testing.T) {
	tests := []struct {
		query  string
		worker WorkerName
	}{
		{"hello there", WorkerChat},
		{"what can you do?", WorkerChat},
		{"draw a pie chart of sentiment", WorkerAnalyst},
		{"plot the rating distribution", WorkerAnalyst},
		{"how many negative reviews are there", WorkerAnalyst},
		{"what's the average rating", WorkerAnalyst},
		{"search for reviews about shipping", WorkerRAG},
		{"find me reviews that mention the battery", WorkerRAG},
		{"analyze the sentiment of the reviews", WorkerSentiment},
		{"how do customers feel about the product", WorkerSentiment},
		{"summarize the main issues", WorkerSummarize},
		{"give me a digest of the complaints", WorkerSummarize},
		{"what insights can you give me", WorkerInsight},
		{"what should we improve first", WorkerInsight},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			// A fast-path hit must never reach the model.
			mock := staticLLM("", errors.New("router must not call the LLM"))
			sup := NewSupervisor(mock)

			worker, method, err := sup.Route(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.worker, worker)
			assert.Equal(t, RouteRules, method)
			assert.Equal(t, 0, mock.callCount)
		})
	}
}

func TestRoute_ChartOutranksSentiment(t *testing.T) {
	sup := NewSupervisor(staticLLM("", nil))

	worker, method, err := sup.Route(context.Background(), "show me a sentiment chart")
	require.NoError(t, err)
	assert.Equal(t, WorkerAnalyst, worker)
	assert.Equal(t, RouteRules, method)
}

func TestRoute_FirstMatchWins(t *testing.T) {
	// Greeting plus an analytic word: greetings sit above analytics in the
	// priority list.
	sup := NewSupervisor(staticLLM("", nil))

	worker, _, err := sup.Route(context.Background(), "hello, can you count things?")
	require.NoError(t, err)
	assert.Equal(t, WorkerChat, worker)
}

// =============================================================================
// LLM Fallback Tests
// =============================================================================

func TestRoute_LLMFallback(t *testing.T) {
	tests := []struct {
		name     string
		response string
		respErr  error
		worker   WorkerName
		method   RouteMethod
	}{
		{"clean answer", "rag", nil, WorkerRAG, RouteLLM},
		{"padded answer", "  Analyst \n", nil, WorkerAnalyst, RouteLLM},
		{"unknown answer", "sql", nil, WorkerChat, RouteDefault},
		{"empty answer", "", nil, WorkerChat, RouteDefault},
		{"model error", "", errors.New("boom"), WorkerChat, RouteDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := staticLLM(tt.response, tt.respErr)
			sup := NewSupervisor(mock)

			// No keyword group matches this query.
			worker, method, err := sup.Route(context.Background(), "lorem ipsum dolor")
			require.NoError(t, err)
			assert.Equal(t, tt.worker, worker)
			assert.Equal(t, tt.method, method)
			assert.Equal(t, 1, mock.callCount)
		})
	}
}

func TestRoute_LLMFallbackUsesZeroTemperature(t *testing.T) {
	var gotParams llm.GenerationParams
	mock := &mockLLM{fn: func(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
		gotParams = params
		return "chat", nil
	}}
	sup := NewSupervisor(mock)

	_, _, err := sup.Route(context.Background(), "lorem ipsum dolor")
	require.NoError(t, err)
	require.NotNil(t, gotParams.Temperature)
	assert.Equal(t, float32(0), *gotParams.Temperature)
}

package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// stubWorker lets each test script a worker's behavior.
type stubWorker struct {
	name      WorkerName
	fn        func(ctx context.Context, query string, snapshot State) (Result, error)
	callCount int
}

func (s *stubWorker) Name() WorkerName { return s.name }

func (s *stubWorker) Handle(ctx context.Context, query string, snapshot State) (Result, error) {
	s.callCount++
	if s.fn != nil {
		return s.fn(ctx, query, snapshot)
	}
	return Result{Response: "ok from " + string(s.name), LoopDelta: 1}, nil
}

func echoWorkers() (Workers, map[WorkerName]*stubWorker) {
	byName := map[WorkerName]*stubWorker{
		WorkerChat:      {name: WorkerChat},
		WorkerSentiment: {name: WorkerSentiment},
		WorkerRAG:       {name: WorkerRAG},
		WorkerAnalyst:   {name: WorkerAnalyst},
		WorkerInsight:   {name: WorkerInsight},
		WorkerSummarize: {name: WorkerSummarize},
	}
	return Workers{
		Chat:      byName[WorkerChat],
		Sentiment: byName[WorkerSentiment],
		RAG:       byName[WorkerRAG],
		Analyst:   byName[WorkerAnalyst],
		Insight:   byName[WorkerInsight],
		Summarize: byName[WorkerSummarize],
	}, byName
}

func readyStore(t *testing.T) *dataset.Store {
	t.Helper()
	store := dataset.NewStore()
	store.Replace("ds-test", []dataset.Review{
		{Text: "great product, love it", Sentiment: sentiment.Positive, Confidence: 0.9, Rating: 5},
		{Text: "arrived broken and support was useless", Sentiment: sentiment.Negative, Confidence: 0.8, Rating: 1},
		{Text: "it's fine I guess", Sentiment: sentiment.Neutral, Confidence: 0.5, Rating: 3},
	})
	return store
}

func newTestOrchestrator(t *testing.T, store *dataset.Store) (*Orchestrator, map[WorkerName]*stubWorker, *AnalysisContext) {
	t.Helper()
	workers, byName := echoWorkers()
	analysis := NewAnalysisContext()
	// The router mock is never consulted for fast-path queries.
	sup := NewSupervisor(staticLLM("chat", nil))
	return NewOrchestrator(sup, store, analysis, workers), byName, analysis
}

// =============================================================================
// Loop Counter
// =============================================================================

func TestHandleTurn_LoopCountIncrementsOncePerTurn(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, readyStore(t))

	resp, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	sessionID := resp.SessionID

	for i := 0; i < 4; i++ {
		_, err := orch.HandleTurn(context.Background(), sessionID, "summarize the main issues")
		require.NoError(t, err)
	}

	state, ok := orch.SessionState(sessionID)
	require.True(t, ok)
	assert.Equal(t, 5, state.LoopCount)
	assert.Equal(t, 10, len(state.History))
}

func TestHandleTurn_HistoryAlternatesRoles(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, readyStore(t))

	resp, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)

	state, ok := orch.SessionState(resp.SessionID)
	require.True(t, ok)
	require.Len(t, state.History, 2)
	assert.Equal(t, "user", state.History[0].Role)
	assert.Equal(t, "hello", state.History[0].Content)
	assert.Equal(t, "assistant", state.History[1].Role)
}

// =============================================================================
// NO_DATA Gating
// =============================================================================

func TestHandleTurn_NoDataShortCircuit(t *testing.T) {
	orch, byName, _ := newTestOrchestrator(t, dataset.NewStore())

	resp, err := orch.HandleTurn(context.Background(), "", "analyze the sentiment")
	require.NoError(t, err)
	assert.Equal(t, noDataMessage, resp.Response)
	assert.Equal(t, string(WorkerSentiment), resp.Worker)

	// No worker ran and the loop counter did not move.
	for name, w := range byName {
		assert.Equal(t, 0, w.callCount, "worker %s should not run", name)
	}
	state, ok := orch.SessionState(resp.SessionID)
	require.True(t, ok)
	assert.Equal(t, 0, state.LoopCount)
}

func TestHandleTurn_ChatReachableWithoutData(t *testing.T) {
	orch, byName, _ := newTestOrchestrator(t, dataset.NewStore())

	resp, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok from chat", resp.Response)
	assert.Equal(t, 1, byName[WorkerChat].callCount)
}

// =============================================================================
// Merge Atomicity
// =============================================================================

func TestHandleTurn_WorkerFailureLeavesStateUntouched(t *testing.T) {
	store := readyStore(t)
	orch, byName, analysis := newTestOrchestrator(t, store)

	resp, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	sessionID := resp.SessionID

	byName[WorkerSummarize].fn = func(ctx context.Context, query string, snapshot State) (Result, error) {
		return Result{
			Response: "partial work that must not be committed",
			Analysis: &AnalysisWrite{Stats: dataset.SentimentStats{Total: 99}},
		}, errors.New("worker exploded")
	}

	resp, err = orch.HandleTurn(context.Background(), sessionID, "summarize the main issues")
	require.NoError(t, err)
	assert.NotContains(t, resp.Response, "partial work")

	state, ok := orch.SessionState(sessionID)
	require.True(t, ok)
	assert.Equal(t, 1, state.LoopCount)
	assert.Len(t, state.History, 2)
	_, published := analysis.Snapshot()
	assert.False(t, published, "analysis context must stay empty after a failed worker")
}

func TestHandleTurn_PlanFailureMessage(t *testing.T) {
	orch, byName, _ := newTestOrchestrator(t, readyStore(t))
	byName[WorkerAnalyst].fn = func(ctx context.Context, query string, snapshot State) (Result, error) {
		return Result{}, ErrPlanUnparseable
	}

	resp, err := orch.HandleTurn(context.Background(), "", "how many reviews are there")
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "couldn't figure out what to compute")
}

// =============================================================================
// Analysis Context Writes
// =============================================================================

func TestHandleTurn_SuccessPublishesAnalysis(t *testing.T) {
	orch, byName, analysis := newTestOrchestrator(t, readyStore(t))
	byName[WorkerSentiment].fn = func(ctx context.Context, query string, snapshot State) (Result, error) {
		return Result{
			Response: "report",
			Analysis: &AnalysisWrite{
				Stats: dataset.SentimentStats{
					Total:  3,
					Counts: map[sentiment.Label]int{sentiment.Positive: 1, sentiment.Negative: 1, sentiment.Neutral: 1},
				},
				AverageRating: 3.0,
			},
			LoopDelta: 1,
		}, nil
	}

	_, err := orch.HandleTurn(context.Background(), "", "analyze the sentiment")
	require.NoError(t, err)

	snap, ok := analysis.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 3.0, snap.AverageRating)
}

// =============================================================================
// Session Lifecycle
// =============================================================================

func TestReset_DestroysSessionButKeepsAnalysis(t *testing.T) {
	orch, _, analysis := newTestOrchestrator(t, readyStore(t))
	analysis.Publish(AnalysisWrite{Stats: dataset.SentimentStats{Total: 3}})

	resp, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)

	require.NoError(t, orch.Reset(resp.SessionID))
	_, ok := orch.SessionState(resp.SessionID)
	assert.False(t, ok)

	snap, published := analysis.Snapshot()
	require.True(t, published, "corpus-scoped analysis must survive a session reset")
	assert.Equal(t, 3, snap.Total)
}

func TestReset_UnknownSession(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, readyStore(t))
	err := orch.Reset("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHandleTurn_UnknownSessionIDCreatesSession(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, readyStore(t))

	resp, err := orch.HandleTurn(context.Background(), "ghost-session", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ghost-session", resp.SessionID)
	_, ok := orch.SessionState("ghost-session")
	assert.True(t, ok)
}

func TestSessions_Listing(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, readyStore(t))

	a, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	_, err = orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	_, err = orch.HandleTurn(context.Background(), a.SessionID, "hello")
	require.NoError(t, err)

	sessions := orch.Sessions()
	require.Len(t, sessions, 2)
	for _, s := range sessions {
		if s.SessionID == a.SessionID {
			assert.Equal(t, 2, s.Turns)
			assert.Equal(t, 2, s.LoopCount)
			assert.Equal(t, string(WorkerChat), s.ActiveWorker)
		}
	}
}

// =============================================================================
// Worker Snapshot Isolation
// =============================================================================

func TestHandleTurn_WorkerCannotMutateLiveHistory(t *testing.T) {
	orch, byName, _ := newTestOrchestrator(t, readyStore(t))

	resp, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	sessionID := resp.SessionID

	byName[WorkerChat].fn = func(ctx context.Context, query string, snapshot State) (Result, error) {
		if len(snapshot.History) > 0 {
			snapshot.History[0].Content = "tampered"
		}
		return Result{Response: "done", LoopDelta: 1}, nil
	}
	_, err = orch.HandleTurn(context.Background(), sessionID, "hello again")
	require.NoError(t, err)

	state, ok := orch.SessionState(sessionID)
	require.True(t, ok)
	assert.Equal(t, "hello", state.History[0].Content)
}

// =============================================================================
// Idle Session Reaping
// =============================================================================

func TestReapIdle_EvictsOnlyStaleSessions(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, readyStore(t))

	respStale, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	respFresh, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)

	orch.mu.Lock()
	orch.sessions[respStale.SessionID].lastActive = time.Now().Add(-2 * time.Hour)
	orch.mu.Unlock()

	evicted := orch.ReapIdle(time.Hour)
	assert.Equal(t, []string{respStale.SessionID}, evicted)

	_, ok := orch.SessionState(respStale.SessionID)
	assert.False(t, ok)
	_, ok = orch.SessionState(respFresh.SessionID)
	assert.True(t, ok)
}

func TestReapIdle_DoesNotBlockOnTurnsInFlight(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, readyStore(t))

	resp, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)

	orch.mu.Lock()
	sess := orch.sessions[resp.SessionID]
	sess.lastActive = time.Now().Add(-2 * time.Hour)
	orch.mu.Unlock()

	// A held session lock stands in for a turn running across an LLM call.
	sess.mu.Lock()

	done := make(chan []string, 1)
	go func() { done <- orch.ReapIdle(time.Hour) }()

	var evicted []string
	select {
	case evicted = <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep blocked on a session with a turn in flight")
	}
	assert.Empty(t, evicted, "a busy session is live, not idle")

	// Session creation proceeds regardless of the stuck turn.
	resp2, err := orch.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.NotEqual(t, resp.SessionID, resp2.SessionID)

	sess.mu.Unlock()

	// Once the turn is over, the next sweep reclaims it.
	evicted = orch.ReapIdle(time.Hour)
	assert.Equal(t, []string{resp.SessionID}, evicted)
}

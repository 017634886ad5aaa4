// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/datatypes"
	"go.opentelemetry.io/otel/attribute"
)

// ErrSessionNotFound is returned by Reset for an unknown session id.
var ErrSessionNotFound = errors.New("agent: session not found")

const noDataMessage = "No review data has been uploaded yet. Upload a CSV of customer reviews first, then ask me again."

// session is one conversation. The mutex serializes turns within the
// session; different sessions run concurrently.
type session struct {
	mu         sync.Mutex
	state      State
	createdAt  time.Time
	lastActive time.Time
}

// Orchestrator owns the sessions and commits worker results.
//
// # Description
//
// A turn is: load or create the session, take its lock, route, dispatch to
// exactly one worker with a state snapshot, and merge the result. The merge
// is the single commit point: history append, loop increment, and analysis
// publication happen together after worker success, so a failed or canceled
// worker leaves no trace in the state.
type Orchestrator struct {
	mu       sync.RWMutex
	sessions map[string]*session

	supervisor *Supervisor
	store      *dataset.Store
	analysis   *AnalysisContext

	chat      Worker
	sentiment Worker
	rag       Worker
	analyst   Worker
	insight   Worker
	summarize Worker
}

// Workers bundles the closed worker set for construction.
type Workers struct {
	Chat      Worker
	Sentiment Worker
	RAG       Worker
	Analyst   Worker
	Insight   Worker
	Summarize Worker
}

func NewOrchestrator(supervisor *Supervisor, store *dataset.Store, analysis *AnalysisContext, workers Workers) *Orchestrator {
	return &Orchestrator{
		sessions:   make(map[string]*session),
		supervisor: supervisor,
		store:      store,
		analysis:   analysis,
		chat:       workers.Chat,
		sentiment:  workers.Sentiment,
		rag:        workers.RAG,
		analyst:    workers.Analyst,
		insight:    workers.Insight,
		summarize:  workers.Summarize,
	}
}

// HandleTurn runs one complete agent turn and returns the wire response.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, message string) (datatypes.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.HandleTurn")
	defer span.End()
	start := time.Now()

	sessionID, sess := o.loadOrCreateSession(sessionID)
	span.SetAttributes(attribute.String("session.id", sessionID))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActive = time.Now()

	worker, method, err := o.supervisor.Route(ctx, message)
	if err != nil {
		return datatypes.ChatResponse{}, fmt.Errorf("routing failed: %w", err)
	}
	slog.Info("Routed query", "session_id", sessionID, "worker", worker, "method", method)

	// NO_DATA gating: every worker except chat needs a corpus. The
	// short-circuit answers without a worker invocation, so the loop
	// counter does not move.
	if worker != WorkerChat && !o.store.Ready() {
		noDataShortCircuits.Inc()
		sess.state.History = append(sess.state.History,
			Turn{Role: "user", Content: message},
			Turn{Role: "assistant", Content: noDataMessage},
		)
		return datatypes.ChatResponse{
			Response:  noDataMessage,
			Worker:    string(worker),
			SessionID: sessionID,
			ElapsedMs: time.Since(start).Milliseconds(),
		}, nil
	}

	snapshot := sess.state.Clone()
	snapshot.DatasetID = o.store.ID()

	result, err := o.dispatch(ctx, worker, message, snapshot)
	turnDuration.WithLabelValues(string(worker)).Observe(time.Since(start).Seconds())
	if err != nil {
		// No merge: the state and analysis context are exactly as they
		// were before the turn started.
		workerFailures.WithLabelValues(string(worker)).Inc()
		slog.Error("Worker failed, state left untouched",
			"session_id", sessionID, "worker", worker, "error", err)
		return datatypes.ChatResponse{
			Response:  workerFailureMessage(err),
			Worker:    string(worker),
			SessionID: sessionID,
			ElapsedMs: time.Since(start).Milliseconds(),
		}, nil
	}

	// Commit point.
	sess.state.History = append(sess.state.History,
		Turn{Role: "user", Content: message},
		Turn{Role: "assistant", Content: result.Response},
	)
	sess.state.LoopCount += result.LoopDelta
	sess.state.ActiveWorker = worker
	if result.Analysis != nil {
		o.analysis.Publish(*result.Analysis)
	}

	return datatypes.ChatResponse{
		Response:  result.Response,
		Worker:    string(worker),
		Chart:     result.Chart,
		SessionID: sessionID,
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

// dispatch is the single switch over the closed worker set.
func (o *Orchestrator) dispatch(ctx context.Context, worker WorkerName, message string, snapshot State) (Result, error) {
	switch worker {
	case WorkerChat:
		return o.chat.Handle(ctx, message, snapshot)
	case WorkerSentiment:
		return o.sentiment.Handle(ctx, message, snapshot)
	case WorkerRAG:
		return o.rag.Handle(ctx, message, snapshot)
	case WorkerAnalyst:
		return o.analyst.Handle(ctx, message, snapshot)
	case WorkerInsight:
		return o.insight.Handle(ctx, message, snapshot)
	case WorkerSummarize:
		return o.summarize.Handle(ctx, message, snapshot)
	}
	return Result{}, fmt.Errorf("agent: unknown worker %q", worker)
}

func workerFailureMessage(err error) string {
	if errors.Is(err, ErrPlanUnparseable) {
		return "I couldn't figure out what to compute from that. Try something like \"how many negative reviews are there\" or \"draw a pie chart of sentiment\"."
	}
	return "Something went wrong while handling that request. Your conversation is unchanged; please try again."
}

func (o *Orchestrator) loadOrCreateSession(sessionID string) (string, *session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if sessionID != "" {
		if sess, ok := o.sessions[sessionID]; ok {
			return sessionID, sess
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now()
	sess := &session{createdAt: now, lastActive: now}
	o.sessions[sessionID] = sess
	slog.Info("Created session", "session_id", sessionID)
	return sessionID, sess
}

// Reset destroys a session: history and loop counter are gone. The dataset
// and the corpus-scoped analysis statistics survive.
func (o *Orchestrator) Reset(sessionID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	delete(o.sessions, sessionID)
	slog.Info("Destroyed session", "session_id", sessionID)
	return nil
}

// Sessions lists the live sessions, newest activity first.
func (o *Orchestrator) Sessions() []datatypes.SessionInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]datatypes.SessionInfo, 0, len(o.sessions))
	for id, sess := range o.sessions {
		sess.mu.Lock()
		out = append(out, datatypes.SessionInfo{
			SessionID:    id,
			Turns:        len(sess.state.History) / 2,
			LoopCount:    sess.state.LoopCount,
			ActiveWorker: string(sess.state.ActiveWorker),
			CreatedAt:    sess.createdAt.UTC().Format(time.RFC3339),
			LastActiveAt: sess.lastActive.UTC().Format(time.RFC3339),
		})
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveAt > out[j].LastActiveAt })
	return out
}

// ReapIdle evicts sessions whose last activity is older than the cutoff and
// returns the evicted ids. The dataset and analysis context are untouched;
// only conversation state is reclaimed.
//
// Idleness is checked on a snapshot, outside the registry lock: a turn in
// flight holds its session lock across LLM calls, and nesting that wait
// under the registry lock would stall session creation for the duration.
// A session whose lock is held is live and skipped.
func (o *Orchestrator) ReapIdle(olderThan time.Duration) []string {
	cutoff := time.Now().Add(-olderThan)

	o.mu.RLock()
	snapshot := make(map[string]*session, len(o.sessions))
	for id, sess := range o.sessions {
		snapshot[id] = sess
	}
	o.mu.RUnlock()

	var idle []string
	for id, sess := range snapshot {
		if !sess.mu.TryLock() {
			continue
		}
		stale := sess.lastActive.Before(cutoff)
		sess.mu.Unlock()
		if stale {
			idle = append(idle, id)
		}
	}
	if len(idle) == 0 {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	evicted := make([]string, 0, len(idle))
	for _, id := range idle {
		// The id may have been reset and recreated since the check; only
		// delete the exact session we judged idle.
		if o.sessions[id] == snapshot[id] {
			delete(o.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// SessionState exposes a copy of one session's state for tests and the
// session listing.
func (o *Orchestrator) SessionState(sessionID string) (State, bool) {
	o.mu.RLock()
	sess, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return State{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state.Clone(), true
}

// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package datatypes holds the wire-level request and response structs shared
// by the HTTP handlers and the agent core.
package datatypes

// ChatRequest is the body of POST /api/chat. SessionID is optional; a new
// session is created when it is empty or unknown.
type ChatRequest struct {
	Message   string `json:"message" binding:"required" validate:"required,min=1,max=8000"`
	SessionID string `json:"session_id" validate:"omitempty,uuid4"`
}

// ChatResponse is one completed agent turn.
type ChatResponse struct {
	Response  string        `json:"response"`
	Worker    string        `json:"worker"`
	Chart     *ChartPayload `json:"chart,omitempty"`
	SessionID string        `json:"session_id"`
	ElapsedMs int64         `json:"elapsed_ms"`
}

// ChartKind enumerates the renderable chart shapes the analyst worker can
// emit. The frontend treats anything else as a bar chart.
type ChartKind string

const (
	ChartPie     ChartKind = "pie"
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartScatter ChartKind = "scatter"
	ChartArea    ChartKind = "area"
	ChartRadar   ChartKind = "radar"
	ChartTreemap ChartKind = "treemap"
)

// ChartPoint is one named value in a chart series.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ChartPayload is a renderable chart attached to a chat response. The series
// values always come from deterministic dataset statistics.
type ChartPayload struct {
	Kind   ChartKind    `json:"kind"`
	Title  string       `json:"title"`
	Series []ChartPoint `json:"series"`
}

// UploadResponse summarizes a completed CSV ingestion.
type UploadResponse struct {
	Status       string         `json:"status"`
	Rows         int            `json:"rows"`
	Columns      []string       `json:"columns"`
	TextColumn   string         `json:"text_column"`
	RatingColumn string         `json:"rating_column,omitempty"`
	Sentiment    map[string]int `json:"sentiment_counts"`
	IndexedDocs  int            `json:"indexed_docs"`
	ElapsedMs    int64          `json:"elapsed_ms"`
}

// SessionInfo is the per-session entry returned by GET /api/sessions.
type SessionInfo struct {
	SessionID    string `json:"session_id"`
	Turns        int    `json:"turns"`
	LoopCount    int    `json:"loop_count"`
	ActiveWorker string `json:"active_worker,omitempty"`
	CreatedAt    string `json:"created_at"`
	LastActiveAt string `json:"last_active_at"`
}

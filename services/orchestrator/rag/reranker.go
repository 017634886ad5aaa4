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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// HTTPReranker calls a cross-encoder scoring sidecar. The service takes a
// query and a list of passages and returns one raw logit per passage;
// higher means more relevant, negative means a weak match.
type HTTPReranker struct {
	httpClient *http.Client
	scoreURL   string
}

type rerankRequest struct {
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

func NewHTTPReranker() (*HTTPReranker, error) {
	baseURL := os.Getenv("RERANKER_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("RERANKER_SERVICE_URL environment variable not set")
	}
	return &HTTPReranker{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		scoreURL:   strings.TrimSuffix(baseURL, "/") + "/rerank",
	}, nil
}

// Score implements the Reranker interface.
func (r *HTTPReranker) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	jsonData, err := json.Marshal(rerankRequest{Query: query, Passages: passages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.scoreURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call reranker service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read reranker response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reranker returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed rerankResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode reranker response: %w", err)
	}
	return parsed.Scores, nil
}

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
	"strings"

	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
)

const expansionPrompt = `Rewrite the following search query two different ways,
keeping the meaning. One rewrite per line, nothing else.

Query: %s`

// LLMExpander produces up to two reworded query variants with one model
// call. Errors surface to the pipeline, which logs and continues with the
// original query only.
type LLMExpander struct {
	client llm.LLMClient
}

func NewLLMExpander(client llm.LLMClient) *LLMExpander {
	return &LLMExpander{client: client}
}

// Expand implements the QueryExpander interface.
func (e *LLMExpander) Expand(ctx context.Context, query string) ([]string, error) {
	out, err := e.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(expansionPrompt, query)},
	}, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.7),
		MaxTokens:   llm.IntPtr(120),
	})
	if err != nil {
		return nil, fmt.Errorf("query expansion call failed: %w", err)
	}

	variants := make([]string, 0, 2)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" || strings.EqualFold(line, query) {
			continue
		}
		variants = append(variants, line)
		if len(variants) == 2 {
			break
		}
	}
	return variants, nil
}

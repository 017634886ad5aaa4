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

	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/rag"
)

// Worker is one specialized handler in the closed set. Handle receives a
// value-copied state snapshot; all mutation flows back through the Result
// and is committed by the orchestrator. Workers never call each other.
type Worker interface {
	Name() WorkerName
	Handle(ctx context.Context, query string, snapshot State) (Result, error)
}

// Retriever is the slice of the retrieval pipeline the rag worker needs.
// Satisfied by *rag.Pipeline; function-typed in tests.
type Retriever interface {
	Retrieve(ctx context.Context, query string, kFinal int, sentimentFilter string) ([]rag.Candidate, error)
}

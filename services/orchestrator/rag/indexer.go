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
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
	"golang.org/x/sync/errgroup"
)

var (
	chunkSize         = 1000
	chunkOverlap      = int(float64(chunkSize) * 0.10)
	defaultSeparators = []string{"\n\n", "\n", " ", ""}
)

// embedBatchSize bounds one embedding request; embedConcurrency bounds how
// many run in flight.
const (
	embedBatchSize   = 64
	embedConcurrency = 4
)

// IndexedReview is one labeled review handed to the indexer.
type IndexedReview struct {
	Text      string
	Sentiment string
	Rating    string
}

// Indexer rebuilds the Review vector class from a labeled corpus.
//
// # Description
//
// Long reviews are chunked with the recursive character splitter, chunks
// are embedded in parallel batches, and objects are written with their
// sentiment and rating metadata in one Weaviate batch request. IndexReviews
// holds an exclusive lock so a rebuild never interleaves with a concurrent
// rebuild; readers query Weaviate directly and see either the old or the
// new corpus.
type Indexer struct {
	mu       sync.Mutex
	client   *weaviate.Client
	embedder Embedder
}

func NewIndexer(client *weaviate.Client, embedder Embedder) *Indexer {
	return &Indexer{client: client, embedder: embedder}
}

// EnsureSchema creates the Review class if it does not exist yet. Vectors
// are provided by the service, so the vectorizer is "none".
func (ix *Indexer) EnsureSchema(ctx context.Context) error {
	exists, err := ix.client.Schema().ClassExistenceChecker().WithClassName(ReviewClass).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check Review class existence: %w", err)
	}
	if exists {
		return nil
	}
	class := &models.Class{
		Class:      ReviewClass,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "sentiment", DataType: []string{"string"}},
			{Name: "rating", DataType: []string{"string"}},
			{Name: "dataset_id", DataType: []string{"string"}},
			{Name: "ingested_at", DataType: []string{"int"}},
		},
	}
	if err := ix.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Review class: %w", err)
	}
	slog.Info("Created Weaviate class", "class", ReviewClass)
	return nil
}

// IndexReviews replaces the indexed corpus with the given reviews and
// returns the number of objects written.
func (ix *Indexer) IndexReviews(ctx context.Context, datasetID string, reviews []IndexedReview) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ctx, span := tracer.Start(ctx, "Indexer.IndexReviews")
	defer span.End()

	if err := ix.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	if err := ix.deleteExisting(ctx); err != nil {
		slog.Warn("Failed to clear previous index, continuing with replace-by-id", "error", err)
	}

	// 1. Chunk. Most reviews fit one chunk; long ones split with overlap.
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(defaultSeparators),
	)
	var chunks []string
	var meta []IndexedReview
	for _, r := range reviews {
		if r.Text == "" {
			continue
		}
		parts, err := splitter.SplitText(r.Text)
		if err != nil {
			slog.Warn("Failed to split review, indexing whole text", "error", err)
			parts = []string{r.Text}
		}
		for _, part := range parts {
			chunks = append(chunks, part)
			meta = append(meta, r)
		}
	}
	if len(chunks) == 0 {
		slog.Warn("No indexable chunks produced", "dataset_id", datasetID)
		return 0, nil
	}
	slog.Info("Chunked corpus for indexing", "reviews", len(reviews), "chunks", len(chunks))

	// 2. Embed in parallel batches.
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(chunks); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			batch, err := ix.embedder.EmbedBatch(gctx, chunks[start:end])
			if err != nil {
				return fmt.Errorf("failed to embed batch [%d:%d]: %w", start, end, err)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// 3. One batch write with deterministic ids so re-ingestion upserts.
	batcher := ix.client.Batch().ObjectsBatcher()
	objects := make([]*models.Object, len(chunks))
	now := time.Now().UnixMilli()
	for i, chunk := range chunks {
		hash := sha256.Sum256([]byte(chunk))
		docUUID, _ := uuid.FromBytes(hash[:16])
		objects[i] = &models.Object{
			Class:  ReviewClass,
			ID:     strfmt.UUID(docUUID.String()),
			Vector: vectors[i],
			Properties: map[string]interface{}{
				"content":     chunk,
				"sentiment":   meta[i].Sentiment,
				"rating":      meta[i].Rating,
				"dataset_id":  datasetID,
				"ingested_at": now,
			},
		}
	}
	batcher.WithObjects(objects...)

	resp, err := batcher.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to batch import reviews to Weaviate: %w", err)
	}

	written := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			written++
		} else if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Error in Weaviate batch item", "error", errItem.Message)
			}
		}
	}
	slog.Info("Indexed review corpus", "dataset_id", datasetID, "written", written)
	return written, nil
}

// deleteExisting drops the class contents before a rebuild. Deleting and
// recreating the class is simpler than per-object deletion and keeps the
// schema fresh.
func (ix *Indexer) deleteExisting(ctx context.Context) error {
	if err := ix.client.Schema().ClassDeleter().WithClassName(ReviewClass).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete Review class: %w", err)
	}
	return ix.EnsureSchema(ctx)
}

// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/agent"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/datatypes"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/observability"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/rag"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
)

// UploadDeps are the collaborators the ingestion endpoint needs. Model and
// Indexer may be nil: without a model the classifier falls back to ratings,
// and without an indexer the service runs in lightweight mode with vector
// search disabled.
type UploadDeps struct {
	Store    *dataset.Store
	Analysis *agent.AnalysisContext
	Model    *sentiment.Model
	Indexer  *rag.Indexer
}

// HandleUpload ingests a review CSV: POST /api/upload (multipart field
// "file"). Parsing, column detection, batch labeling, and the vector index
// rebuild all happen before the response.
func HandleUpload(deps UploadDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing multipart field 'file'"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
			return
		}
		defer file.Close()

		table, err := dataset.ParseCSV(file)
		if err != nil {
			slog.Warn("Failed to parse upload", "filename", fileHeader.Filename, "error", err)
			observability.DefaultMetrics.RecordUpload("parse_error", 0)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		textCol, err := table.DetectTextColumn()
		if err != nil {
			observability.DefaultMetrics.RecordUpload("parse_error", 0)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ratingCol := table.DetectRatingColumn()
		slog.Info("Parsed upload", "filename", fileHeader.Filename, "rows", len(table.Rows),
			"text_column", table.Header[textCol], "rating_column", ratingCol)

		reviews := labelRows(table, textCol, ratingCol, deps.Model)
		if len(reviews) == 0 {
			observability.DefaultMetrics.RecordUpload("parse_error", 0)
			c.JSON(http.StatusBadRequest, gin.H{"error": "No usable review rows found"})
			return
		}

		// New corpus: replace the store and drop the stale derived stats.
		datasetID := uuid.NewString()
		deps.Store.Replace(datasetID, reviews)
		deps.Analysis.Clear()

		indexed := 0
		if deps.Indexer != nil {
			toIndex := make([]rag.IndexedReview, len(reviews))
			for i, r := range reviews {
				rating := ""
				if r.Rating > 0 {
					rating = fmt.Sprintf("%.1f", r.Rating)
				}
				toIndex[i] = rag.IndexedReview{
					Text:      r.Text,
					Sentiment: string(r.Sentiment),
					Rating:    rating,
				}
			}
			indexed, err = deps.Indexer.IndexReviews(c.Request.Context(), datasetID, toIndex)
			if err != nil {
				slog.Error("Vector index rebuild failed", "error", err)
				observability.DefaultMetrics.RecordUpload("index_error", len(reviews))
				// The labeled corpus is still usable without vector search.
				c.JSON(http.StatusOK, buildUploadResponse(table, textCol, ratingCol, reviews, 0, start,
					"partial: vector index unavailable"))
				return
			}
		}

		observability.DefaultMetrics.RecordUpload("success", len(reviews))
		c.JSON(http.StatusOK, buildUploadResponse(table, textCol, ratingCol, reviews, indexed, start, "success"))
	}
}

// labelRows attaches a sentiment label to every row exactly once. The
// trained model wins when present; otherwise the rating fallback labels the
// row, and rows with neither signal come out neutral.
func labelRows(table *dataset.Table, textCol, ratingCol int, model *sentiment.Model) []dataset.Review {
	reviews := make([]dataset.Review, 0, len(table.Rows))
	texts := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if textCol >= len(row) {
			continue
		}
		text := row[textCol]
		rating := 0.0
		if ratingCol >= 0 && ratingCol < len(row) {
			rating = dataset.ParseRating(row[ratingCol])
		}
		reviews = append(reviews, dataset.Review{Text: text, Rating: rating})
		texts = append(texts, text)
	}

	if model != nil {
		preds := model.ClassifyBatch(texts)
		for i := range reviews {
			reviews[i].Sentiment = preds[i].Label
			reviews[i].Confidence = preds[i].Confidence
		}
		return reviews
	}

	slog.Warn("No sentiment model loaded, labeling from ratings")
	for i := range reviews {
		pred := sentiment.RatingLabel(reviews[i].Rating)
		reviews[i].Sentiment = pred.Label
		reviews[i].Confidence = pred.Confidence
	}
	return reviews
}

func buildUploadResponse(table *dataset.Table, textCol, ratingCol int,
	reviews []dataset.Review, indexed int, start time.Time, status string) datatypes.UploadResponse {

	stats := dataset.ComputeSentimentStats(reviews)
	counts := make(map[string]int, len(stats.Counts))
	for label, count := range stats.Counts {
		counts[string(label)] = count
	}
	resp := datatypes.UploadResponse{
		Status:      status,
		Rows:        len(reviews),
		Columns:     table.Header,
		TextColumn:  table.Header[textCol],
		Sentiment:   counts,
		IndexedDocs: indexed,
		ElapsedMs:   time.Since(start).Milliseconds(),
	}
	if ratingCol >= 0 {
		resp.RatingColumn = table.Header[ratingCol]
	}
	return resp
}

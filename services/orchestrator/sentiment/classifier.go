// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package sentiment runs in-process inference over a JSON export of a trained
// linear TF-IDF sentiment model. Classification happens once per corpus at
// ingestion time; everything downstream reads the stored labels.
package sentiment

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Label is a sentiment class name.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// Prediction pairs a label with a calibrated confidence in (0,1).
type Prediction struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Model is the JSON export of the trained classifier: a TF-IDF vocabulary,
// per-term inverse document frequencies, and one linear decision row per
// class.
//
// # Description
//
// Inference is a sparse dot product, so classification is deterministic and
// needs no external service. The same input always yields the same label and
// confidence.
//
// # Limitations
//
// The vocabulary is fixed at training time; out-of-vocabulary tokens are
// simply ignored.
type Model struct {
	Vocabulary map[string]int `json:"vocabulary"`
	Idf        []float64      `json:"idf"`
	Classes    []Label        `json:"classes"`
	Weights    [][]float64    `json:"weights"`
	Intercepts []float64      `json:"intercepts"`
}

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]+>`)
	urlRe       = regexp.MustCompile(`https?://\S+|www\.\S+`)
	nonLetterRe = regexp.MustCompile(`[^a-z\s]`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// LoadModel reads a Model from the JSON export at path and validates its
// internal dimensions.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sentiment model file: %w", err)
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment model file: %w", err)
	}
	if len(m.Classes) == 0 || len(m.Weights) != len(m.Classes) || len(m.Intercepts) != len(m.Classes) {
		return nil, fmt.Errorf("sentiment model has inconsistent class dimensions")
	}
	for i, row := range m.Weights {
		if len(row) != len(m.Idf) {
			return nil, fmt.Errorf("sentiment model weight row %d has %d terms, expected %d",
				i, len(row), len(m.Idf))
		}
	}
	slog.Info("Loaded sentiment model", "classes", len(m.Classes), "vocabulary", len(m.Vocabulary))
	return &m, nil
}

// preprocess normalizes raw review text the same way the training pipeline
// did: lowercase, strip HTML tags, URLs, and non-letter characters.
func preprocess(text string) string {
	t := strings.ToLower(text)
	t = htmlTagRe.ReplaceAllString(t, " ")
	t = urlRe.ReplaceAllString(t, " ")
	t = nonLetterRe.ReplaceAllString(t, " ")
	t = spaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// termFrequencies counts vocabulary hits in the preprocessed text.
func (m *Model) termFrequencies(clean string) map[int]float64 {
	tf := make(map[int]float64)
	for _, tok := range strings.Fields(clean) {
		if idx, ok := m.Vocabulary[tok]; ok {
			tf[idx]++
		}
	}
	return tf
}

// Classify labels a single text. Empty or fully-stripped input yields
// Neutral with confidence 0 rather than an error; ingestion must never stall
// on a single bad row.
func (m *Model) Classify(text string) (Label, float64) {
	clean := preprocess(text)
	if clean == "" {
		return Neutral, 0
	}
	tf := m.termFrequencies(clean)
	if len(tf) == 0 {
		return Neutral, 0
	}

	// TF-IDF with L2 normalization, matching the training vectorizer. The
	// active indices are accumulated in sorted order: float summation is not
	// associative, so walking a map here would make the confidence drift
	// between calls on the same text.
	idxs := make([]int, 0, len(tf))
	for idx := range tf {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	var norm float64
	vec := make([]float64, len(idxs))
	for i, idx := range idxs {
		w := tf[idx] * m.Idf[idx]
		vec[i] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)

	scores := make([]float64, len(m.Classes))
	for ci := range m.Classes {
		s := m.Intercepts[ci]
		for i, idx := range idxs {
			s += m.Weights[ci][idx] * (vec[i] / norm)
		}
		scores[ci] = s
	}

	best, second := 0, -1
	for ci := 1; ci < len(scores); ci++ {
		if scores[ci] > scores[best] {
			second = best
			best = ci
		} else if second == -1 || scores[ci] > scores[second] {
			second = ci
		}
	}

	// Confidence is the logistic squash of the margin between the winning
	// class and the runner-up.
	confidence := 1.0
	if second >= 0 {
		confidence = sigmoid(scores[best] - scores[second])
	}
	return m.Classes[best], confidence
}

// ClassifyBatch labels many texts in one pass. Per-item cost never exceeds a
// single Classify call; the batch form exists so ingestion can log progress
// in one place.
func (m *Model) ClassifyBatch(texts []string) []Prediction {
	preds := make([]Prediction, len(texts))
	for i, t := range texts {
		label, conf := m.Classify(t)
		preds[i] = Prediction{Label: label, Confidence: conf}
	}
	return preds
}

// RatingLabel derives a sentiment label from a star rating when no trained
// model is available. Ratings of 4 and above read positive, 2 and below
// negative, everything else neutral.
func RatingLabel(rating float64) Prediction {
	switch {
	case rating >= 4:
		return Prediction{Label: Positive, Confidence: 0.8}
	case rating > 0 && rating <= 2:
		return Prediction{Label: Negative, Confidence: 0.8}
	default:
		return Prediction{Label: Neutral, Confidence: 0.5}
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

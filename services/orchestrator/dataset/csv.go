// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Table is a parsed delimited file: a header row plus data rows, all cells
// as strings.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseCSV reads a delimited review export. Comma is tried first; if the
// result collapses to a single column the parse is retried with tabs, which
// covers the TSV exports some marketplaces produce.
func ParseCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}

	table, err := parseWithDelimiter(raw, ',')
	if err == nil && len(table.Header) > 1 {
		return table, nil
	}
	tabTable, tabErr := parseWithDelimiter(raw, '\t')
	if tabErr == nil && len(tabTable.Header) > 1 {
		slog.Info("Parsed upload as tab-separated", "columns", len(tabTable.Header))
		return tabTable, nil
	}
	if err == nil {
		return table, nil
	}
	return nil, fmt.Errorf("failed to parse uploaded file: %w", err)
}

func parseWithDelimiter(raw []byte, delim rune) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("file needs a header row and at least one data row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return &Table{Header: header, Rows: records[1:]}, nil
}

// Column names tried in order when auto-detecting the review text column.
var textColumnNames = []string{
	"reviews.text", "review_text", "reviewtext", "review", "text",
	"comment", "comments", "feedback", "body", "content", "description",
}

// DetectTextColumn picks the review text column: exact well-known names
// first, then the column with the longest average cell as a fallback.
func (t *Table) DetectTextColumn() (int, error) {
	lower := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		lower[strings.ToLower(h)] = i
	}
	for _, name := range textColumnNames {
		if idx, ok := lower[name]; ok {
			return idx, nil
		}
	}

	// Fallback: longest average cell length over the first rows.
	best, bestAvg := -1, 0.0
	sample := t.Rows
	if len(sample) > 50 {
		sample = sample[:50]
	}
	for col := range t.Header {
		total := 0
		for _, row := range sample {
			if col < len(row) {
				total += len(row[col])
			}
		}
		avg := float64(total) / float64(len(sample))
		if avg > bestAvg {
			best, bestAvg = col, avg
		}
	}
	if best < 0 || bestAvg < 10 {
		return -1, fmt.Errorf("could not detect a review text column")
	}
	slog.Warn("No named text column found, using longest-cell heuristic",
		"column", t.Header[best], "avg_len", bestAvg)
	return best, nil
}

var ratingColumnNames = []string{
	"reviews.rating", "rating", "ratings", "stars", "star_rating", "score", "overall",
}

// DetectRatingColumn picks the numeric rating column, or -1 when the export
// carries none. A missing rating column is not an error; the classifier just
// loses its fallback signal.
func (t *Table) DetectRatingColumn() int {
	lower := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		lower[strings.ToLower(h)] = i
	}
	for _, name := range ratingColumnNames {
		if idx, ok := lower[name]; ok {
			return idx
		}
	}
	return -1
}

// ParseRating converts a rating cell to a float, returning 0 for blank or
// unparseable values.
func ParseRating(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0
	}
	return v
}

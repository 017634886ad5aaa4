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
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// cannedResponses answers the highest-frequency conversational queries with
// zero model calls. Keys are normalized query text.
var cannedResponses = map[string]string{
	"hello":           "Hello! Upload a CSV of customer reviews and I can analyze sentiment, compute statistics, draw charts, search reviews, and summarize issues.",
	"hi":              "Hi there! Upload a review CSV and ask me anything about it.",
	"hey":             "Hey! Upload a review CSV and ask me anything about it.",
	"help":            "I analyze customer reviews. Try: \"analyze the sentiment\", \"how many negative reviews are there\", \"draw a pie chart of sentiment\", \"search for reviews about shipping\", \"summarize the main issues\", or \"what should we improve\".",
	"what can you do": "I can analyze review sentiment, compute statistics and charts, search specific reviews, summarize complaints, and suggest improvements. Upload a CSV to get started.",
	"who are you":     "I'm a review-analytics assistant. Upload a CSV of customer reviews and ask away.",
	"thanks":          "You're welcome!",
	"thank you":       "You're welcome!",
}

// ResponseCache fronts the chat worker with a canned-response table plus a
// TTL cache of previous model answers.
type ResponseCache struct {
	ttl *gocache.Cache
}

func NewResponseCache(ttl, cleanup time.Duration) *ResponseCache {
	return &ResponseCache{ttl: gocache.New(ttl, cleanup)}
}

// normalizeQuery canonicalizes a query for cache lookup.
func normalizeQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.TrimRight(q, "?!.,;:")
	return strings.Join(strings.Fields(q), " ")
}

// Lookup checks the canned table first, then the TTL cache. The source tag
// feeds the cache-hit metric.
func (c *ResponseCache) Lookup(query string) (response string, source string, ok bool) {
	key := normalizeQuery(query)
	if canned, found := cannedResponses[key]; found {
		return canned, "canned", true
	}
	if cached, found := c.ttl.Get(key); found {
		if s, isString := cached.(string); isString {
			return s, "ttl", true
		}
	}
	return "", "", false
}

// Store caches a model answer under the normalized query.
func (c *ResponseCache) Store(query, response string) {
	c.ttl.Set(normalizeQuery(query), response, gocache.DefaultExpiration)
}

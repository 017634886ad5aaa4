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
)

// Gatekeeper skip reasons, reported in digest statistics.
const (
	SkipTooShort = "too_short"
	SkipNoIssue  = "positive_no_issue"
)

// minSummarizeWords is the gatekeeper floor: shorter texts carry nothing
// worth a model call.
const minSummarizeWords = 10

// Severity levels for extracted issues.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// IssueSummary is the structured extraction of one review.
type IssueSummary struct {
	MainIssue   string   `json:"main_issue"`
	IssueDetail string   `json:"issue_detail"`
	Severity    Severity `json:"severity"`
	Tags        []string `json:"tags"`
	Summary     string   `json:"summary"`
}

var issueKeywords = []string{
	"broke", "broken", "defect", "fault", "fail", "issue", "problem",
	"refund", "return", "late", "delay", "damaged", "missing", "wrong",
	"poor", "bad", "terrible", "awful", "disappointed", "waste", "scam",
	"never arrived", "not working", "doesn't work", "stopped working",
	"cancel", "charge", "overcharged", "rude", "slow", "crash", "error",
}

var positiveWords = []string{
	"great", "love", "excellent", "perfect", "amazing", "awesome",
	"wonderful", "fantastic", "best", "happy", "recommend", "good",
}

// ShouldSummarize is the gatekeeper in front of every summarization model
// call. It skips texts too short to carry an issue, and positive texts with
// no issue signal at all. The skip reason feeds digest statistics.
func ShouldSummarize(text string) (bool, string) {
	words := strings.Fields(text)
	if len(words) < minSummarizeWords {
		return false, SkipTooShort
	}
	q := strings.ToLower(text)
	hasIssue := false
	for _, kw := range issueKeywords {
		if strings.Contains(q, kw) {
			hasIssue = true
			break
		}
	}
	if hasIssue {
		return true, ""
	}
	for _, pw := range positiveWords {
		if strings.Contains(q, pw) {
			return false, SkipNoIssue
		}
	}
	return true, ""
}

// topicKeywords drives the deterministic topic classifier. Topic names
// match the support categories the digest groups complaints under.
var topicKeywords = map[string][]string{
	"Delivery": {
		"delivery", "shipping", "shipped", "arrive", "arrived", "package",
		"courier", "late", "delay", "tracking", "lost in transit",
	},
	"Customer Service": {
		"customer service", "support", "agent", "representative", "rude",
		"no response", "contacted", "helpline", "chat support",
	},
	"Account/Prime": {
		"account", "prime", "subscription", "membership", "login", "password",
		"billing", "charged", "payment",
	},
	"Refund/Return": {
		"refund", "return", "exchange", "money back", "replacement", "rma",
	},
	"Website/App": {
		"website", "app", "checkout", "cart", "crash", "bug", "page",
		"search function", "load",
	},
	"Seller/Product": {
		"seller", "product", "quality", "fake", "counterfeit", "defect",
		"broken", "damaged", "item", "material", "description",
	},
}

// ClassifyTopic buckets a complaint into the topic with the most keyword
// hits. Confidence is the winning topic's share of all hits; zero hits
// yields the catch-all with zero confidence.
func ClassifyTopic(text string) (string, float64) {
	q := strings.ToLower(text)
	counts := make(map[string]int, len(topicKeywords))
	total := 0
	for topic, keywords := range topicKeywords {
		for _, kw := range keywords {
			n := strings.Count(q, kw)
			counts[topic] += n
			total += n
		}
	}
	if total == 0 {
		return "Seller/Product", 0
	}

	best, bestCount := "", -1
	// Deterministic tie-break: fixed topic order.
	for _, topic := range []string{
		"Delivery", "Customer Service", "Account/Prime",
		"Refund/Return", "Website/App", "Seller/Product",
	} {
		if counts[topic] > bestCount {
			best, bestCount = topic, counts[topic]
		}
	}
	return best, float64(bestCount) / float64(total)
}

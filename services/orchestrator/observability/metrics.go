// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package observability provides HTTP-level Prometheus metrics for the
// review-analytics service. Exposed via the /metrics endpoint; worker and
// router metrics live next to the code that increments them.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all service metrics.
const metricsNamespace = "feedback"

const httpSubsystem = "http"

// HTTPMetrics holds the request-level Prometheus metrics.
//
// # Thread Safety
//
// All operations are thread-safe via Prometheus's internal locking.
type HTTPMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (chat, upload, sessions, health), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures request latency by endpoint.
	RequestDurationSeconds *prometheus.HistogramVec

	// UploadsTotal counts CSV ingestions by outcome.
	// Labels: status (success, parse_error, index_error)
	UploadsTotal *prometheus.CounterVec

	// UploadRows tracks the row count of the last ingested corpus.
	UploadRows prometheus.Gauge

	// ActiveSessions tracks live conversation sessions.
	ActiveSessions prometheus.Gauge
}

// DefaultMetrics is the singleton instance. Initialized by InitMetrics().
var DefaultMetrics *HTTPMetrics

// InitMetrics registers the HTTP metrics with the default registry. Call
// once at startup; a second call panics on duplicate registration.
func InitMetrics() *HTTPMetrics {
	DefaultMetrics = &HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by endpoint",
				Buckets:   []float64{0.005, 0.05, 0.25, 1.0, 2.5, 5.0, 10.0, 30.0, 120.0},
			},
			[]string{"endpoint"},
		),

		UploadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "uploads_total",
				Help:      "CSV ingestions by outcome",
			},
			[]string{"status"},
		),

		UploadRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "upload_rows",
				Help:      "Row count of the most recently ingested corpus",
			},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_sessions",
				Help:      "Number of live conversation sessions",
			},
		),
	}
	return DefaultMetrics
}

// RecordRequest records one completed request.
func (m *HTTPMetrics) RecordRequest(endpoint string, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDurationSeconds.WithLabelValues(endpoint).Observe(seconds)
}

// RecordUpload records one ingestion attempt.
func (m *HTTPMetrics) RecordUpload(status string, rows int) {
	m.UploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.UploadRows.Set(float64(rows))
	}
}

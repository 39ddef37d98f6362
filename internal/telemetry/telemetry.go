// Package telemetry holds the prometheus collectors shared across the tracker.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for LLMGenerations.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
)

var (
	// EntriesRecorded counts persisted metric entries.
	EntriesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_entries_recorded_total",
			Help: "Metric entries written, by metric and record policy",
		},
		[]string{"metric", "policy"},
	)

	// LLMGenerations counts LLM calls made by the context builder.
	LLMGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_llm_generations_total",
			Help: "LLM generation attempts, by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	// SummaryCache counts daily summary cache lookups.
	SummaryCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_summary_cache_total",
			Help: "Daily summary cache lookups, by result",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

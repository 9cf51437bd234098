// Package metrics provides Prometheus metrics for the intent engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested tracks stored buyer events by their final type
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intent",
			Subsystem: "ingestion",
			Name:      "events_total",
			Help:      "Total number of buyer events stored, by event type",
		},
		[]string{"event_type"},
	)

	// ScoreMutations tracks intent score writes by origin
	ScoreMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intent",
			Subsystem: "scoring",
			Name:      "mutations_total",
			Help:      "Total number of intent score mutations",
		},
		[]string{"kind"},
	)

	// TriggersFired tracks triggers recorded to history
	TriggersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intent",
			Subsystem: "trigger",
			Name:      "fired_total",
			Help:      "Total number of triggers fired, by trigger type",
		},
		[]string{"trigger_type"},
	)

	// TriggersSuppressed tracks evaluations skipped by cooldown or engagement
	TriggersSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intent",
			Subsystem: "trigger",
			Name:      "suppressed_total",
			Help:      "Total number of trigger evaluations suppressed",
		},
		[]string{"trigger_type", "reason"},
	)

	// TriggerEvaluationErrors tracks evaluator failures dropped by the feed
	TriggerEvaluationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intent",
			Subsystem: "trigger",
			Name:      "evaluation_errors_total",
			Help:      "Total number of trigger evaluations that failed",
		},
		[]string{"trigger_type"},
	)

	// FeedDuration tracks priority feed computation time
	FeedDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "intent",
			Subsystem: "feed",
			Name:      "duration_seconds",
			Help:      "Duration of priority feed computations in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// FeedItems tracks the size of returned feeds
	FeedItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "intent",
			Subsystem: "feed",
			Name:      "items",
			Help:      "Number of items returned per priority feed",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	// BatchJobRows tracks rows touched by batch jobs
	BatchJobRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intent",
			Subsystem: "jobs",
			Name:      "rows_total",
			Help:      "Total number of rows written by batch jobs",
		},
		[]string{"job"},
	)

	// HTTPRequestDuration tracks inbound API request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intent",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "status_code"},
	)

	// LockWaitTime tracks time spent acquiring trigger locks
	LockWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intent",
			Subsystem: "lock",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for a trigger lock in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend"},
	)
)

// RecordSuppressed records a trigger type skipped before evaluation
func RecordSuppressed(triggerType, reason string) {
	TriggersSuppressed.WithLabelValues(triggerType, reason).Inc()
}

// RecordBatchJob records the row count of a finished batch job
func RecordBatchJob(job string, rows int) {
	BatchJobRows.WithLabelValues(job).Add(float64(rows))
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed tracks total error events run through the decision loop
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_processed_total",
			Help: "Total number of error events processed",
		},
		[]string{"environment", "outcome"},
	)

	// EventsDropped tracks events shed under backpressure
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_dropped_total",
			Help: "Total number of events dropped due to queue overflow",
		},
		[]string{"urgency"},
	)

	// Classifications tracks classification verdicts per category
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_classifications_total",
			Help: "Total number of classifications by category",
		},
		[]string{"category", "urgency"},
	)

	// ResolutionAttempts tracks strategy executions and their outcomes
	ResolutionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_resolution_attempts_total",
			Help: "Total number of resolution strategy executions",
		},
		[]string{"strategy", "outcome"},
	)

	// ResolutionLatency tracks strategy execution latency
	ResolutionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_resolution_latency_seconds",
			Help:    "Resolution strategy execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// NotificationsSent tracks delivered notifications by kind
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notifications_sent_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"kind", "severity"},
	)

	// NotificationFailures tracks delivery failures
	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notification_failures_total",
			Help: "Total number of notification delivery failures",
		},
		[]string{"kind"},
	)

	// QueueDepth tracks the current decision-queue depth
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_queue_depth",
			Help: "Current number of events waiting in the decision queue",
		},
	)

	// OpenIncidents tracks incidents not yet in a terminal state
	OpenIncidents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_open_incidents",
			Help: "Current number of open incidents",
		},
	)

	// InFlightResolutions tracks concurrently running resolution attempts
	InFlightResolutions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_inflight_resolutions",
			Help: "Current number of in-flight resolution attempts",
		},
	)
)

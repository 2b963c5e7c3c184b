package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend metrics
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "peto_backend_request_duration_seconds",
			Help:    "REST backend request duration",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"op", "outcome"},
	)

	// Room lifecycle metrics
	RoomsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peto_rooms_opened_total",
			Help: "Room open attempts by outcome",
		},
		[]string{"outcome"}, // "resolved" or "failed"
	)

	SubscriptionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peto_subscription_errors_total",
			Help: "Feed subscription errors by class",
		},
		[]string{"class"}, // "absent" or "other"
	)

	SnapshotsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peto_snapshots_delivered_total",
			Help: "Full feed snapshots applied to room state",
		},
	)

	FeedsInitialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peto_feeds_initialized_total",
			Help: "Degraded-mode feed initializations by outcome",
		},
		[]string{"outcome"},
	)

	// Send metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peto_messages_sent_total",
			Help: "Messages written to the feed",
		},
		[]string{"kind"},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peto_send_failures_total",
			Help: "Sends aborted before or at the feed write",
		},
		[]string{"stage"}, // "upload" or "write"
	)

	SecondaryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peto_send_secondary_failures_total",
			Help: "Best-effort send side effects that failed",
		},
		[]string{"effect"}, // "notify" or "meta"
	)

	RoomsArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peto_rooms_archived_total",
			Help: "Archive attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Outcome maps an error to a metrics label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesAccepted tracks send_message outcomes.
	MessagesAccepted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "messages_accepted_total",
			Help:      "Total number of send_message frames accepted",
		},
		[]string{"delivery"}, // online, queued, duplicate
	)

	// MessagesRejected tracks send_message rejections by error code.
	MessagesRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "messages_rejected_total",
			Help:      "Total number of send_message frames rejected, by error code",
		},
		[]string{"code"},
	)

	// PendingQueueDepth tracks queue size observed on each fetch_pending.
	PendingQueueDepth = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "pending_queue_depth",
			Help:      "Number of envelopes returned by a single fetch_pending drain",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// RouterDuration tracks router operation duration.
	RouterDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "operation_duration_seconds",
			Help:      "Router operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"operation"}, // send_message, fetch_pending, delivery_receipt, call
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsCompleted tracks register_proof outcomes.
	RegistrationsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Total number of register_proof attempts",
		},
		[]string{"status"}, // success, auth_failed, banned
	)

	// ForcedLogouts tracks single-active-device displacements.
	ForcedLogouts = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "forced_logouts_total",
			Help:      "Total number of sessions displaced by a new device registration",
		},
	)

	// SessionsActive tracks currently live sessions.
	SessionsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_active",
			Help:      "Number of currently live sessions",
		},
	)

	// AuthDuration tracks auth engine operation duration.
	AuthDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "operation_duration_seconds",
			Help:      "Auth engine operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"operation"}, // begin, proof, refresh, logout
	)
)

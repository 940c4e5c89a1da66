package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks currently open websocket connections.
	ConnectionsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "connections_active",
			Help:      "Number of currently open websocket connections",
		},
	)

	// ConnectionsClosed tracks why connections closed.
	ConnectionsClosed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "connections_closed_total",
			Help:      "Total number of connections closed, by reason",
		},
		[]string{"reason"}, // client_close, write_error, pong_timeout, force_logout, shutdown
	)

	// FramesDropped tracks frames dropped due to a full write buffer.
	FramesDropped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "frames_dropped_total",
			Help:      "Total number of outbound frames dropped because a connection's write buffer was full",
		},
	)
)

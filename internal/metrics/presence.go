package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PresenceBroadcasts tracks presence_update frames sent.
	PresenceBroadcasts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "broadcasts_total",
			Help:      "Total number of presence_update frames sent to related peers",
		},
		[]string{"status"}, // online, offline
	)

	// PresenceOnline tracks currently online identities.
	PresenceOnline = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "online",
			Help:      "Number of identities currently marked online",
		},
	)
)

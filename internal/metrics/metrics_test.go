package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsAreRegistered(t *testing.T) {
	if RegistrationsCompleted == nil {
		t.Error("RegistrationsCompleted metric is nil")
	}
	if MessagesAccepted == nil {
		t.Error("MessagesAccepted metric is nil")
	}
	if PresenceBroadcasts == nil {
		t.Error("PresenceBroadcasts metric is nil")
	}
	if RateLimitDecisions == nil {
		t.Error("RateLimitDecisions metric is nil")
	}
	if ConnectionsActive == nil {
		t.Error("ConnectionsActive metric is nil")
	}
}

func TestMetricsCollect(t *testing.T) {
	RegistrationsCompleted.WithLabelValues("success").Inc()
	MessagesAccepted.WithLabelValues("online").Inc()
	PresenceBroadcasts.WithLabelValues("online").Inc()
	RateLimitDecisions.WithLabelValues("send_message", "allowed").Inc()
	ConnectionsActive.Inc()

	if count := testutil.CollectAndCount(RegistrationsCompleted); count == 0 {
		t.Error("RegistrationsCompleted has no samples collected")
	}
	if count := testutil.CollectAndCount(MessagesAccepted); count == 0 {
		t.Error("MessagesAccepted has no samples collected")
	}
}

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proctor_connections_active",
		Help: "Currently open real-time connections",
	})

	RoomJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proctor_room_joins_total",
		Help: "Connections bound to a room",
	})

	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_messages_received_total",
		Help: "Inbound real-time messages by type",
	}, []string{"type"})

	MessagesRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proctor_messages_rate_limited_total",
		Help: "Inbound messages rejected by the per-connection rate limiter",
	})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_deliveries_total",
		Help: "Outbound frames by emitted event and outcome",
	}, []string{"event", "outcome"})

	EventsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_session_events_logged_total",
		Help: "Events appended to session logs by severity",
	}, []string{"severity"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_store_errors_total",
		Help: "Session store failures by operation",
	}, []string{"op"})

	RelayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proctor_relay_duration_seconds",
		Help:    "Time from inbound message to fan-out completion",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"type"})
)

var severities = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

// SeverityLabel folds a client-supplied severity into a fixed label set so
// the series count stays bounded.
func SeverityLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return "none"
	case severities[s]:
		return s
	}
	return "other"
}

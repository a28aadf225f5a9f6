// Package metrics exposes Prometheus collectors for connections, rooms,
// session lifecycle transitions and relay throughput.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections tracks currently registered websocket connections.
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sharetrack_connections",
		Help: "Current number of registered websocket connections",
	})

	// Rooms tracks the number of non-empty ad-hoc rooms.
	Rooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sharetrack_rooms",
		Help: "Current number of ad-hoc tracking rooms",
	})

	// LocationUpdates counts location updates, labeled by mode ("room",
	// "session") and result ("accepted", "rate_limited", "rejected").
	LocationUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharetrack_location_updates_total",
		Help: "Location updates processed",
	}, []string{"mode", "result"})

	// ChatMessages counts persisted chat messages by mode.
	ChatMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharetrack_chat_messages_total",
		Help: "Chat messages persisted",
	}, []string{"mode"})

	// RequestTransitions counts share request outcomes ("pending",
	// "approved", "rejected", "revoked").
	RequestTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharetrack_share_requests_total",
		Help: "Share request state transitions",
	}, []string{"status"})

	// SessionTransitions counts session lifecycle events ("created",
	// "revoked", "expired").
	SessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharetrack_sessions_total",
		Help: "Shared session lifecycle transitions",
	}, []string{"event"})

	// SweepDuration records how long each expiry sweep takes.
	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharetrack_sweep_duration_seconds",
		Help:    "Expiry sweep duration in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	// DroppedClients counts connections dropped because their send queue was full.
	DroppedClients = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sharetrack_dropped_clients_total",
		Help: "Connections dropped for falling behind",
	})
)

func init() {
	prometheus.MustRegister(
		Connections,
		Rooms,
		LocationUpdates,
		ChatMessages,
		RequestTransitions,
		SessionTransitions,
		SweepDuration,
		DroppedClients,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Client core metrics, registered on the default registry and served by the
// status handler's /metrics endpoint.
var (
	EventsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxdesk_events_deduplicated_total",
		Help: "Inbound transcript events dropped by the duplicate-delivery guard",
	})

	MessagesRouted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxdesk_messages_routed_total",
		Help: "Transcript events delivered to the message callback",
	})

	HeartbeatsRouted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxdesk_heartbeats_routed_total",
		Help: "Heartbeat events delivered to the heartbeat callback",
	})

	ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxdesk_stream_reconnect_attempts_total",
		Help: "Reconnect attempts scheduled by the stream client",
	})

	StreamConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxdesk_stream_connected",
		Help: "Whether the audio/speech stream is currently connected (0 or 1)",
	})

	BudgetEnforcements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxdesk_budget_enforcement_passes_total",
		Help: "Storage budget enforcement passes that trimmed governed collections",
	})

	KeysRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxdesk_store_keys_repaired_total",
		Help: "Governed store keys deleted because their value failed to parse",
	})
)

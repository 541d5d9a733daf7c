// Package metrics holds the Prometheus collectors of the messaging core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitechat_messages_sent_total",
		Help: "Messages written to the store, by scope kind and result.",
	}, []string{"scope", "result"})

	Reconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitechat_reconciliations_total",
		Help: "Pending messages replaced by their confirmed counterpart.",
	})

	PendingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitechat_pending_failures_total",
		Help: "Pending messages marked as failed, by reason.",
	}, []string{"reason"})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sitechat_active_subscriptions",
		Help: "Live message subscriptions currently open.",
	})

	PresenceLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitechat_presence_lookup_failures_total",
		Help: "Presence lookups that failed and degraded to offline.",
	})

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sitechat_websocket_connections",
		Help: "Connected WebSocket clients.",
	})
)

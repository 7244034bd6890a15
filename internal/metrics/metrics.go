// Package metrics exposes Prometheus collectors for the broadcast hub and its transports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jamoveo"

// Hub
var (
	// HubConnections tracks currently registered viewer connections
	HubConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_connections_current",
			Help:      "Number of viewer connections registered with the hub",
		},
	)

	// ConnectionsTotal counts accepted connections by transport (ws/sse)
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total accepted viewer connections by transport",
		},
		[]string{"transport"},
	)

	// SelectionsTotal counts selection commands by outcome (play/stop/rejected)
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Song selections processed by outcome",
		},
		[]string{"outcome"},
	)

	// ContentResolutions counts content lookups by result (ok/not_found/error)
	ContentResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_resolutions_total",
			Help:      "Content store lookups by result",
		},
		[]string{"result"},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Messages that could not be handed to a connection",
		},
	)

	// HubPanics counts recovered panics inside the hub loop
	HubPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_panics_total",
			Help:      "Panics recovered while handling hub commands",
		},
	)

	HubCommandQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_command_queue_depth",
			Help:      "Commands waiting in the hub queue",
		},
	)
)

// Auth
var (
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Register and login attempts by action and result",
		},
		[]string{"action", "result"},
	)
)

// Package metrics defines the Prometheus collectors shared across the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Presentation queue metrics
var (
	// QueueDepth tracks the number of gift presentations waiting in the queue
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presentation_queue_depth",
			Help: "Number of gift presentations waiting in the queue",
		},
	)

	// PresentationsTotal tracks completed gift presentation cycles
	PresentationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presentations_total",
			Help: "Total completed gift presentation cycles",
		},
	)

	// PresentationDuration tracks full show/hide/settle cycle duration in seconds
	PresentationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "presentation_cycle_duration_seconds",
			Help:    "Full gift presentation cycle duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Broadcast hub metrics
var (
	// HubConnectedClients tracks the number of connected WebSocket clients
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Number of connected WebSocket clients",
		},
	)

	// HubBroadcastsTotal tracks broadcast messages by topic
	HubBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total broadcast messages by topic",
		},
		[]string{"topic"},
	)

	// HubSlowClientsEvicted tracks clients dropped due to full send buffers
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total clients disconnected because their send buffer was full",
		},
	)
)

// RPC metrics
var (
	// RPCRequestsTotal tracks RPC requests by method and status
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Total RPC requests by method and status",
		},
		[]string{"method", "status"},
	)

	// RPCRequestDuration tracks RPC dispatch latency in seconds
	RPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "RPC dispatch duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method"},
	)
)

// Settings store metrics
var (
	// SettingsWritesTotal tracks settings document persists by status
	SettingsWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_writes_total",
			Help: "Total settings document writes by status",
		},
		[]string{"status"},
	)
)

// Event source metrics
var (
	// DonationEventsTotal tracks normalized donation events by source type
	DonationEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_events_total",
			Help: "Total normalized donation events by source type",
		},
		[]string{"source"},
	)

	// GiftEventsTotal tracks normalized gift events from the chat source
	GiftEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gift_events_total",
			Help: "Total normalized membership-gift events",
		},
	)

	// InnertubeRequestsTotal tracks innertube API calls by endpoint and status
	InnertubeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innertube_requests_total",
			Help: "Total innertube API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
)

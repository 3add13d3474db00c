package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Open websocket connections",
		},
	)
	EventsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_sent_total",
			Help: "Task events queued to websocket clients",
		},
		[]string{"type"},
	)
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_dropped_total",
			Help: "Task events dropped because a client was too slow",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(ActiveConnections)
	prometheus.MustRegister(EventsSent)
	prometheus.MustRegister(EventsDropped)
}

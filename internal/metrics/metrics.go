// Package metrics exposes Prometheus collectors for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's collectors. All methods are safe on a nil
// receiver so the core can run without metrics in tests.
type Metrics struct {
	registry  *prometheus.Registry
	sessions  prometheus.Gauge
	rooms     prometheus.Gauge
	relayed   prometheus.Counter
	throttled prometheus.Counter
}

// New builds a fresh registry with the relay collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zerochat_open_sessions",
			Help: "Number of currently connected sessions.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zerochat_active_rooms",
			Help: "Number of rooms with at least one member.",
		}),
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerochat_messages_relayed_total",
			Help: "Messages accepted and broadcast to a room.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerochat_messages_throttled_total",
			Help: "Messages rejected by the abuse throttle.",
		}),
	}
	m.registry.MustRegister(m.sessions, m.rooms, m.relayed, m.throttled)
	return m
}

// Handler exposes the collectors for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetSessions records the current session count.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// SetRooms records the current room count.
func (m *Metrics) SetRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

// MessageRelayed counts one accepted message.
func (m *Metrics) MessageRelayed() {
	if m == nil {
		return
	}
	m.relayed.Inc()
}

// MessageThrottled counts one rejected message.
func (m *Metrics) MessageThrottled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}

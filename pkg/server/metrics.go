package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the hub's Prometheus collectors on a private registry.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions   prometheus.Gauge
	sessionsCreated  prometheus.Counter
	messagesReceived *prometheus.CounterVec
	framesSent       *prometheus.CounterVec
	writeErrors      prometheus.Counter
	sessionsDropped  prometheus.Counter
}

// NewMetrics creates and registers the hub collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomsync_hub",
			Name:      "active_sessions",
			Help:      "Currently connected sessions",
		}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomsync_hub",
			Name:      "sessions_created_total",
			Help:      "Sessions accepted since start",
		}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomsync_hub",
			Name:      "messages_received_total",
			Help:      "Inbound text frames, by kind (chat, command, presence)",
		}, []string{"kind"}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomsync_hub",
			Name:      "frames_sent_total",
			Help:      "Outbound frames written, by kind",
		}, []string{"kind"}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomsync_hub",
			Name:      "write_errors_total",
			Help:      "Outbound writes that failed",
		}),
		sessionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomsync_hub",
			Name:      "sessions_dropped_total",
			Help:      "Sessions disconnected because their send queue overflowed",
		}),
	}

	m.registry.MustRegister(
		m.activeSessions,
		m.sessionsCreated,
		m.messagesReceived,
		m.framesSent,
		m.writeErrors,
		m.sessionsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the hub registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) RecordSessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) RecordMessageReceived(kind string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordFrameSent(kind string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordWriteError() {
	if m == nil {
		return
	}
	m.writeErrors.Inc()
}

func (m *Metrics) RecordSessionDropped() {
	if m == nil {
		return
	}
	m.sessionsDropped.Inc()
}

package client

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the client's Prometheus collectors. Each Metrics owns its
// registry so several clients (or tests) can coexist in one process.
//
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	framesReceived      *prometheus.CounterVec
	decodeErrors        *prometheus.CounterVec
	notificationsPushed *prometheus.CounterVec
	chatsSent           prometheus.Counter
	sendFailures        prometheus.Counter
	connectionState     prometheus.Gauge
	bytesSent           prometheus.Counter
	bytesReceived       prometheus.Counter
}

// NewMetrics creates and registers the client collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "frames_received_total",
			Help:      "Inbound frames applied, by kind",
		}, []string{"kind"}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "frame_decode_errors_total",
			Help:      "Inbound frames skipped because they could not be decoded, by kind",
		}, []string{"kind"}),
		notificationsPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "notifications_pushed_total",
			Help:      "Notices added to the notification queue, by kind",
		}, []string{"kind"}),
		chatsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "chats_sent_total",
			Help:      "Chat messages written to the socket",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "send_failures_total",
			Help:      "Outbound writes that failed",
		}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomsync",
			Name:      "connection_state",
			Help:      "Socket state (0=disconnected 1=connecting 2=open 3=closed 4=errored)",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "bytes_sent_total",
			Help:      "Payload bytes written to the socket",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "bytes_received_total",
			Help:      "Payload bytes read from the socket",
		}),
	}

	m.registry.MustRegister(
		m.framesReceived,
		m.decodeErrors,
		m.notificationsPushed,
		m.chatsSent,
		m.sendFailures,
		m.connectionState,
		m.bytesSent,
		m.bytesReceived,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry holding the client collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordFrameReceived(kind string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordDecodeError(kind string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordNotification(kind NotificationKind) {
	if m == nil {
		return
	}
	m.notificationsPushed.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) RecordChatSent() {
	if m == nil {
		return
	}
	m.chatsSent.Inc()
}

func (m *Metrics) RecordSendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

func (m *Metrics) RecordConnectionState(state ConnectionState) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

func (m *Metrics) RecordBytesSent(n int) {
	if m == nil {
		return
	}
	m.bytesSent.Add(float64(n))
}

func (m *Metrics) RecordBytesReceived(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}

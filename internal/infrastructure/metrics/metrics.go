// Package metrics exposes Prometheus instrumentation for the accessory hub.
//
// All recording methods are safe to call on a nil *Metrics, so components can run
// uninstrumented in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "accessory_hub"

// Drop reasons for outbound sends.
const (
	DropUnknownConnection = "unknown_connection"
	DropQueueFull         = "queue_full"
	DropNotRunning        = "not_running"
)

type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	ListenersActive   prometheus.Gauge
	Notifications     *prometheus.CounterVec
	DeliveryFailures  *prometheus.CounterVec
	SendsQueued       prometheus.Counter
	SendsDropped      *prometheus.CounterVec
	SendsWritten      prometheus.Counter
	SendFailures      prometheus.Counter
}

// New creates the collectors on a private registry, together with the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Accessory connections currently registered.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Accessory connections registered since start.",
		}),
		ListenersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listeners_active",
			Help:      "Listener registrations currently held.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Listener notifications delivered, by event kind.",
		}, []string{"kind"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Listener notifications that failed, by event kind.",
		}, []string{"kind"}),
		SendsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_queued_total",
			Help:      "Outbound payloads accepted into a connection queue.",
		}),
		SendsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_dropped_total",
			Help:      "Outbound payloads dropped before reaching the transport, by reason.",
		}, []string{"reason"}),
		SendsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_written_total",
			Help:      "Outbound payloads written to the transport.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Transport writes that returned an error.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConnectionsActive,
		m.ConnectionsTotal,
		m.ListenersActive,
		m.Notifications,
		m.DeliveryFailures,
		m.SendsQueued,
		m.SendsDropped,
		m.SendsWritten,
		m.SendFailures,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionAdded() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Inc()
	m.ConnectionsTotal.Inc()
}

func (m *Metrics) ConnectionRemoved() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}

func (m *Metrics) ConnectionsReset() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Set(0)
}

func (m *Metrics) SetListeners(n int) {
	if m == nil {
		return
	}
	m.ListenersActive.Set(float64(n))
}

func (m *Metrics) Notified(kind string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind).Inc()
}

func (m *Metrics) DeliveryFailed(kind string) {
	if m == nil {
		return
	}
	m.DeliveryFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) SendQueued() {
	if m == nil {
		return
	}
	m.SendsQueued.Inc()
}

func (m *Metrics) SendDropped(reason string) {
	if m == nil {
		return
	}
	m.SendsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SendWritten() {
	if m == nil {
		return
	}
	m.SendsWritten.Inc()
}

func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.SendFailures.Inc()
}

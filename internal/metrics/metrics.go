package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay groups the relay's collectors. A nil *Relay is valid and records nothing.
type Relay struct {
	OpenConnections prometheus.Gauge
	FramesReceived  *prometheus.CounterVec
	Broadcasts      *prometheus.CounterVec
	DroppedSends    prometheus.Counter
	Anomalies       prometheus.Counter
}

// NewRelay creates the relay collectors and registers them on reg.
func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spectra",
			Subsystem: "relay",
			Name:      "open_connections",
			Help:      "Currently open real-time connections.",
		}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectra",
			Subsystem: "relay",
			Name:      "frames_received_total",
			Help:      "Inbound envelopes by event name.",
		}, []string{"event"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectra",
			Subsystem: "relay",
			Name:      "broadcasts_total",
			Help:      "Outbound broadcasts by event name.",
		}, []string{"event"}),
		DroppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spectra",
			Subsystem: "relay",
			Name:      "dropped_sends_total",
			Help:      "Frames dropped because a subscriber queue was full or closed.",
		}),
		Anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spectra",
			Subsystem: "relay",
			Name:      "anomalous_logs_total",
			Help:      "Ingested log entries flagged as anomalous.",
		}),
	}
	reg.MustRegister(m.OpenConnections, m.FramesReceived, m.Broadcasts, m.DroppedSends, m.Anomalies)
	return m
}

func (m *Relay) ConnOpened() {
	if m != nil {
		m.OpenConnections.Inc()
	}
}

func (m *Relay) ConnClosed() {
	if m != nil {
		m.OpenConnections.Dec()
	}
}

func (m *Relay) FrameReceived(event string) {
	if m != nil {
		m.FramesReceived.WithLabelValues(event).Inc()
	}
}

func (m *Relay) Broadcast(event string) {
	if m != nil {
		m.Broadcasts.WithLabelValues(event).Inc()
	}
}

func (m *Relay) SendDropped() {
	if m != nil {
		m.DroppedSends.Inc()
	}
}

func (m *Relay) AnomalyDetected() {
	if m != nil {
		m.Anomalies.Inc()
	}
}

// Handler exposes Prometheus metrics gathered from g at /metrics
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

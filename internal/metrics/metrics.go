package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the client's Prometheus collectors on a private registry.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	connectionState    *prometheus.GaugeVec
	reconnectAttempts  prometheus.Gauge
	probes             *prometheus.CounterVec
	featureModuleReady prometheus.Gauge
	heartbeatsSent     prometheus.Counter
	heartbeatAcks      prometheus.Counter
	heartbeatStale     prometheus.Counter
	inbound            *prometheus.CounterVec
	outbound           *prometheus.CounterVec
	secondaryConnects  *prometheus.CounterVec
	playback           *prometheus.CounterVec
	journalEvents      *prometheus.CounterVec

	stateMu   sync.Mutex
	lastState string
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eva_connection_state",
			Help: "Primary channel state (1 for the current state)",
		}, []string{"state"}),
		reconnectAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eva_reconnect_attempts",
			Help: "Reconnect attempts since the last successful open",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eva_probe_total",
			Help: "Health probes by outcome",
		}, []string{"result"}),
		featureModuleReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eva_feature_module_ready",
			Help: "Whether the emotion analysis module reported loaded on the last probe",
		}),
		heartbeatsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eva_heartbeats_sent_total",
			Help: "Heartbeat frames sent",
		}),
		heartbeatAcks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eva_heartbeat_acks_total",
			Help: "Pong frames received",
		}),
		heartbeatStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eva_heartbeat_stale_total",
			Help: "Connections dropped for missing heartbeat replies",
		}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eva_inbound_messages_total",
			Help: "Inbound primary channel frames by type",
		}, []string{"type"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eva_outbound_messages_total",
			Help: "Outbound primary channel frames by type and result",
		}, []string{"type", "result"}),
		secondaryConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eva_secondary_connects_total",
			Help: "Secondary channel dial attempts by result",
		}, []string{"result"}),
		playback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eva_playback_total",
			Help: "Speech playback attempts by result",
		}, []string{"result"}),
		journalEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eva_journal_events_total",
			Help: "Connection journal events by outcome",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connectionState,
		m.reconnectAttempts,
		m.probes,
		m.featureModuleReady,
		m.heartbeatsSent,
		m.heartbeatAcks,
		m.heartbeatStale,
		m.inbound,
		m.outbound,
		m.secondaryConnects,
		m.playback,
		m.journalEvents,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetConnectionState marks state as current and clears the previous one.
func (m *Metrics) SetConnectionState(state string) {
	if m == nil {
		return
	}
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.lastState != "" {
		m.connectionState.WithLabelValues(m.lastState).Set(0)
	}
	m.connectionState.WithLabelValues(state).Set(1)
	m.lastState = state
}

func (m *Metrics) SetReconnectAttempts(n int) {
	if m == nil {
		return
	}
	m.reconnectAttempts.Set(float64(n))
}

func (m *Metrics) ProbeResult(result string) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(result).Inc()
}

func (m *Metrics) SetFeatureModuleReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.featureModuleReady.Set(1)
	} else {
		m.featureModuleReady.Set(0)
	}
}

func (m *Metrics) HeartbeatSent() {
	if m == nil {
		return
	}
	m.heartbeatsSent.Inc()
}

func (m *Metrics) HeartbeatAck() {
	if m == nil {
		return
	}
	m.heartbeatAcks.Inc()
}

func (m *Metrics) HeartbeatStale() {
	if m == nil {
		return
	}
	m.heartbeatStale.Inc()
}

func (m *Metrics) Inbound(msgType string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(msgType).Inc()
}

func (m *Metrics) Outbound(msgType, result string) {
	if m == nil {
		return
	}
	m.outbound.WithLabelValues(msgType, result).Inc()
}

func (m *Metrics) SecondaryConnect(result string) {
	if m == nil {
		return
	}
	m.secondaryConnects.WithLabelValues(result).Inc()
}

func (m *Metrics) Playback(result string) {
	if m == nil {
		return
	}
	m.playback.WithLabelValues(result).Inc()
}

func (m *Metrics) JournalEvent(result string) {
	if m == nil {
		return
	}
	m.journalEvents.WithLabelValues(result).Inc()
}

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	Exchanges           *prometheus.CounterVec
	GenerationFailures  *prometheus.CounterVec
	GenerationLatency   *prometheus.HistogramVec
	PersistenceFailures *prometheus.CounterVec
	ConversationResets  *prometheus.CounterVec
	ActiveConversations prometheus.Gauge
	VoiceConnections    prometheus.Gauge
}

// NewMetrics registers the instruments on a private registry so repeated
// construction (tests, multiple servers) never collides.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Completed exchanges by emotional tone and outcome.",
		}, []string{"tone", "outcome"}),
		GenerationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Failed generation API calls by provider.",
		}, []string{"provider"}),
		GenerationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_ms",
			Help:      "Generation API round trip in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 1500, 2500, 4000, 8000, 15000},
		}, []string{"provider"}),
		PersistenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Chat log writes that failed and were dropped.",
		}, []string{"operation"}),
		ConversationResets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_resets_total",
			Help:      "Conversation context resets by reason.",
		}, []string{"reason"}),
		ActiveConversations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Conversations whose last activity is within the expiry window.",
		}),
		VoiceConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voice_connections",
			Help:      "Open voice WebSocket connections.",
		}),
	}
}

// ObserveGeneration records one generation call. A nil receiver is a no-op.
func (m *Metrics) ObserveGeneration(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.GenerationLatency.WithLabelValues(provider).Observe(float64(d.Milliseconds()))
	if err != nil {
		m.GenerationFailures.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) ObserveExchange(tone, outcome string) {
	if m == nil {
		return
	}
	m.Exchanges.WithLabelValues(tone, outcome).Inc()
}

func (m *Metrics) ObservePersistenceFailure(operation string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveReset(reason string) {
	if m == nil {
		return
	}
	m.ConversationResets.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetActiveConversations(n int) {
	if m == nil {
		return
	}
	m.ActiveConversations.Set(float64(n))
}

func (m *Metrics) VoiceConnected() {
	if m == nil {
		return
	}
	m.VoiceConnections.Inc()
}

func (m *Metrics) VoiceDisconnected() {
	if m == nil {
		return
	}
	m.VoiceConnections.Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package broker

import "github.com/prometheus/client_golang/prometheus"

// metrics is the broker's prometheus instrumentation: the ambient
// observability layer SPEC_FULL.md §2's domain-stack table assigns to
// prometheus/client_golang. A dedicated registry (rather than the global
// default) keeps repeated broker.New calls in tests from panicking on
// duplicate registration.
type metrics struct {
	registry *prometheus.Registry

	connsTotal   *prometheus.CounterVec
	connsActive  *prometheus.GaugeVec
	msgsRouted   prometheus.Counter
	msgsDropped  *prometheus.CounterVec
	msgsDeferred prometheus.Counter
	queueDepth   prometheus.Gauge
	queueBytes   prometheus.Gauge
	authLatency  prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		connsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cpdlcd",
			Name:      "connections_total",
			Help:      "Connections accepted, by transport kind.",
		}, []string{"transport"}),
		connsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cpdlcd",
			Name:      "connections_active",
			Help:      "Currently open connections, by transport kind.",
		}, []string{"transport"}),
		msgsRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cpdlcd",
			Name:      "messages_routed_total",
			Help:      "Messages successfully delivered to at least one recipient.",
		}),
		msgsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cpdlcd",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped, by reason.",
		}, []string{"reason"}),
		msgsDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cpdlcd",
			Name:      "messages_deferred_total",
			Help:      "Messages placed on the deferred-delivery queue.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cpdlcd",
			Name:      "deferred_queue_messages",
			Help:      "Current deferred-delivery queue depth in messages.",
		}),
		queueBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cpdlcd",
			Name:      "deferred_queue_bytes",
			Help:      "Current deferred-delivery queue size in bytes.",
		}),
		authLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cpdlcd",
			Name:      "auth_request_seconds",
			Help:      "Latency of authenticator HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.connsTotal, m.connsActive, m.msgsRouted, m.msgsDropped,
		m.msgsDeferred, m.queueDepth, m.queueBytes, m.authLatency)
	return m
}

func (m *metrics) connAccepted(kind TransportKind) {
	m.connsTotal.WithLabelValues(kind.String()).Inc()
	m.connsActive.WithLabelValues(kind.String()).Inc()
}

func (m *metrics) connClosed(kind TransportKind) {
	m.connsActive.WithLabelValues(kind.String()).Dec()
}

func (m *metrics) messageRouted() { m.msgsRouted.Inc() }

func (m *metrics) messageDropped(reason string) { m.msgsDropped.WithLabelValues(reason).Inc() }

func (m *metrics) messageDeferred() { m.msgsDeferred.Inc() }

func (m *metrics) setQueueStats(messages int, bytes uint64) {
	m.queueDepth.Set(float64(messages))
	m.queueBytes.Set(float64(bytes))
}

func (m *metrics) observeAuthLatencySeconds(s float64) { m.authLatency.Observe(s) }

// Gatherer exposes the broker's registry for an HTTP /metrics handler
// (wired in cmd/cpdlcd).
func (b *Broker) Gatherer() prometheus.Gatherer { return b.metrics.registry }

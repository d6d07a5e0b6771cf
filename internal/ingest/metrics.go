package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks ingest pipeline counters.
type Metrics struct {
	eventsTotal        *prometheus.CounterVec
	enrichmentFailures prometheus.Counter
}

// NewMetrics creates and registers the ingest counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxlog_events_total",
			Help: "Webhook events processed, by event type and outcome",
		}, []string{"type", "outcome"}),
		enrichmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxlog_enrichment_failures_total",
			Help: "Summary enrichment calls that failed and degraded to a diagnostic",
		}),
	}
	reg.MustRegister(m.eventsTotal, m.enrichmentFailures)
	return m
}

func (m *Metrics) observeEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "none"
	}
	m.eventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) observeEnrichmentFailure() {
	if m == nil {
		return
	}
	m.enrichmentFailures.Inc()
}

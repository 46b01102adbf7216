// Package observe provides the optional observability surface: Prometheus
// counters, the /health and /metrics HTTP endpoints, and OTLP trace export.
package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics implements coordinator.Metrics on a private Prometheus registry,
// plus a gauge fed by the registry of in-flight requests.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal  prometheus.Counter
	decisionsTotal *prometheus.CounterVec
	pendingGauge   prometheus.GaugeFunc
}

// NewMetrics creates the metric set. pendingCount is sampled on every
// scrape; pass the registry's UndecidedCount.
func NewMetrics(pendingCount func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stopkran_requests_total",
			Help: "Permission requests received over the hook socket.",
		}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stopkran_decisions_total",
			Help: "Recorded decisions by outcome and source.",
		}, []string{"decision", "source"}),
		pendingGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "stopkran_pending_requests",
			Help: "Requests currently awaiting a decision.",
		}, func() float64 { return float64(pendingCount()) }),
	}

	reg.MustRegister(m.requestsTotal, m.decisionsTotal, m.pendingGauge)
	return m
}

// RequestReceived implements coordinator.Metrics.
func (m *Metrics) RequestReceived() {
	m.requestsTotal.Inc()
}

// DecisionRecorded implements coordinator.Metrics.
func (m *Metrics) DecisionRecorded(decision, source string) {
	m.decisionsTotal.WithLabelValues(decision, source).Inc()
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

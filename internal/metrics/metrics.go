// Package metrics exposes Prometheus counters for logins and assessments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	logins      *prometheus.CounterVec
	assessments *prometheus.CounterVec
	failures    *prometheus.CounterVec
	sessions    prometheus.GaugeFunc
}

// New registers the service collectors on a private registry. activeSessions
// is sampled on every scrape; it may be nil.
func New(activeSessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthrisk",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthrisk",
			Name:      "assessments_total",
			Help:      "Completed risk assessments by label.",
		}, []string{"label"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthrisk",
			Name:      "assessment_failures_total",
			Help:      "Assessment requests that ended in an error, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.logins,
		m.assessments,
		m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if activeSessions != nil {
		m.sessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "healthrisk",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(activeSessions()) })
		reg.MustRegister(m.sessions)
	}
	return m
}

func (m *Metrics) Login(ok bool) {
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Assessment(label string) {
	m.assessments.WithLabelValues(label).Inc()
}

func (m *Metrics) Failure(reason string) {
	m.failures.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

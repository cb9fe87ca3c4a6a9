// Package metrics owns the Prometheus collectors of the service. Every method
// is safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trade_mentor"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	llmCalls      *prometheus.CounterVec
	llmDuration   prometheus.Histogram
	reports       *prometheus.CounterVec
	reportScore   prometheus.Histogram
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"route"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of analysis pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 3, 10),
		}, []string{"stage", "outcome"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Model calls by outcome (ok, empty, error).",
		}, []string{"outcome"}),
		llmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Model call latency.",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 45, 90},
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Analysis reports by strategy and result (ok, soft_error).",
		}, []string{"strategy", "result"}),
		reportScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_total_score",
			Help:      "Distribution of total_score in successful reports.",
			Buckets:   []float64{40, 60, 75, 90, 100},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.stageDuration,
		m.llmCalls,
		m.llmDuration,
		m.reports,
		m.reportScore,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveLLM(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(outcome).Inc()
	m.llmDuration.Observe(d.Seconds())
}

// ObserveReport counts a finished report; score is nil for error-shaped reports.
func (m *Metrics) ObserveReport(strategy string, score *int, failed bool) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "soft_error"
	}
	m.reports.WithLabelValues(strategy, result).Inc()
	if score != nil {
		m.reportScore.Observe(float64(*score))
	}
}

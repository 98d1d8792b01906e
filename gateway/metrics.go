package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the model gateway.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	TokensTotal     *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ResultsTotal    *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_gateway_requests_total",
			Help: "Total model requests issued by the gateway.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analyzer_gateway_request_duration_seconds",
			Help:    "Model request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	tokens := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_gateway_tokens_total",
			Help: "Token usage reported by the model API.",
		},
		[]string{"kind"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_gateway_errors_total",
			Help: "Total gateway errors by type.",
		},
		[]string{"error_type"},
	)
	resultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_search_results_total",
			Help: "Search outcomes recorded by the batch runner.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(requests, requestDuration, tokens, errorsTotal, resultsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		TokensTotal:     tokens,
		ErrorsTotal:     errorsTotal,
		ResultsTotal:    resultsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records a model request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddTokens records token usage for one call.
func (m *Metrics) AddTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.TokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	m.TokensTotal.WithLabelValues("completion").Add(float64(completion))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncResult increments the search outcome counter.
func (m *Metrics) IncResult(outcome string) {
	if m == nil {
		return
	}
	m.ResultsTotal.WithLabelValues(outcome).Inc()
}

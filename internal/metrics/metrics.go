// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arxivmind_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "arxivmind_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arxivmind_provider_attempts_total",
			Help: "Provider call attempts by driver and outcome",
		},
		[]string{"provider", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "arxivmind_provider_latency_seconds",
			Help: "Provider call latency in seconds",
		},
		[]string{"provider"},
	)

	FallbackExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arxivmind_fallback_exhausted_total",
			Help: "Requests for which every candidate provider failed",
		},
	)

	RetrievalMatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arxivmind_retrieval_matches",
			Help:    "Number of matches returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)
)

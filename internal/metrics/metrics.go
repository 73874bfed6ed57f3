// Package metrics provides Prometheus metrics for the card identification service.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tcg_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Identification Metrics
	IdentifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_identify_requests_total",
			Help: "Card identification requests by game and outcome",
		},
		[]string{"game", "outcome"}, // outcome: "verified", "unverified", "low_confidence", "oracle_failed"
	)

	IdentifyRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_identify_retries_total",
			Help: "Corrective oracle re-queries issued after a failed first pass",
		},
	)

	IdentifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_identify_duration_seconds",
			Help:    "End-to-end identification latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
	)

	VerificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_verification_total",
			Help: "Verifier outcomes by game and winning strategy",
		},
		[]string{"game", "strategy"},
	)

	// Catalog Metrics
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_catalog_requests_total",
			Help: "Upstream catalog requests by catalog and operation",
		},
		[]string{"catalog", "op"},
	)

	CatalogErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_catalog_errors_total",
			Help: "Upstream catalog failures swallowed as empty results",
		},
		[]string{"catalog", "kind"}, // kind: "network", "status", "decode"
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_cache_hits_total",
			Help: "Cache hits by cache name",
		},
		[]string{"cache"}, // "sets", "prices", "metadata", "oracle"
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_cache_misses_total",
			Help: "Cache misses by cache name",
		},
		[]string{"cache"},
	)

	// JustTCG API Metrics
	JustTCGRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_justtcg_requests_total",
			Help: "Total number of JustTCG API requests made",
		},
	)

	JustTCGQuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_justtcg_quota_remaining",
			Help: "Remaining JustTCG API requests for today",
		},
	)

	PriceBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_price_batch_duration_seconds",
			Help:    "Time taken to process a batch price lookup",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Gemini Metrics
	GeminiRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_gemini_requests_total",
			Help: "Total Gemini API identification requests",
		},
	)

	GeminiAPILatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_gemini_api_latency_seconds",
			Help:    "Gemini API call latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
		},
	)

	GeminiErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_gemini_errors_total",
			Help: "Gemini API errors by type",
		},
		[]string{"type"}, // "api", "parse", "empty"
	)

	GeminiConfidenceHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_gemini_confidence",
			Help:    "Gemini self-reported confidence for card guesses",
			Buckets: []float64{0.1, 0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
		},
	)
)

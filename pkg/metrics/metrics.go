// Package metrics defines the Prometheus collectors used by the indexer, the
// searcher and the HTTP API, and a scrape server for them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for termsearch.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DocsIndexedTotal     prometheus.Counter
	IndexedTerms         prometheus.Gauge
	IndexBuildDuration   prometheus.Histogram
	IndexBuildFailures   *prometheus.CounterVec
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	SearchResultsCount   prometheus.Histogram
	SnippetErrorsTotal   *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, registered route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents added to the inverted index.",
			},
		),
		IndexedTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of distinct terms in the inverted index.",
			},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Time taken to build the inverted index from the document store.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		IndexBuildFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_build_failures_total",
				Help: "Index builds aborted, by reason (missing_store, malformed_document, other).",
			},
			[]string{"reason"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds, snippets included.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		SnippetErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snippet_errors_total",
				Help: "Snippet extraction failures by reason (too_short, unavailable).",
			},
			[]string{"reason"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of posting cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of posting cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocsIndexedTotal,
		m.IndexedTerms,
		m.IndexBuildDuration,
		m.IndexBuildFailures,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SnippetErrorsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

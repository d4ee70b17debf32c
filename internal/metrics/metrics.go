// Package metrics holds the Prometheus collectors shared by services and the HTTP layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// IndexOperations counts search index writes by operation and result
	IndexOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snipvault_index_operations_total",
		Help: "Search index operations by operation and result",
	}, []string{"op", "result"})

	// RebuildDuration tracks full index rebuilds
	RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snipvault_index_rebuild_duration_seconds",
		Help:    "Search index rebuild duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	})

	// SearchDuration tracks search latency by mode (text or filtered listing)
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snipvault_search_duration_seconds",
		Help:    "Search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"mode"})

	// SearchResults tracks how many results a search returns
	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snipvault_search_results",
		Help:    "Number of results per search",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})

	// HTTPRequests counts requests by method, route pattern and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snipvault_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks request latency by method and route pattern
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snipvault_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

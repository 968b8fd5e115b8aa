// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopstore_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures server response time. Every request pays
	// a full document read (and write, when mutating), so the buckets stay
	// in the small-file range.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopstore_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// StoreOpsTotal counts store operations by name and outcome.
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopstore_store_operations_total",
			Help: "Total number of record store operations",
		},
		[]string{"op", "outcome"},
	)
)

package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for driver API traffic.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driverkit_requests_total",
		Help: "Total vendor API requests by vendor, method and HTTP status",
	}, []string{"vendor", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "driverkit_request_duration_seconds",
		Help:    "Vendor API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"vendor"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driverkit_retries_total",
		Help: "Total request retry attempts by vendor",
	}, []string{"vendor"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driverkit_errors_total",
		Help: "Total request failures by vendor and error kind",
	}, []string{"vendor", "kind"})
)

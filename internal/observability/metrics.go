package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors in a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	operations      *prometheus.CounterVec
}

// NewMetrics registers every collector in a fresh registry, so it can be
// called once per test without duplicate-registration panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "customers_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "customers_http_requests_total",
				Help: "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "customers_operations_total",
				Help: "Customer service operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
	}
}

// RecordOperation counts one service operation; outcome is "ok" or an error kind.
func (m *Metrics) RecordOperation(operation, outcome string) {
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// GinMiddleware records duration and status per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

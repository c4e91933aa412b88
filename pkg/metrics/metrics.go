package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Tracks the number of HTTP requests.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Tracks the latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	})

	engagementOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_operations_total",
		Help: "Tracks engagement ledger operations by outcome.",
	}, []string{"operation", "outcome"})
)

// GetRegistry returns the registry served on the metrics listener.
func GetRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestsTotal,
		requestDuration,
		engagementOps,
	)

	return registry
}

// ObserveEngagementOp counts one ledger operation. outcome is "ok" or the
// ledger error class.
func ObserveEngagementOp(operation, outcome string) {
	engagementOps.WithLabelValues(operation, outcome).Inc()
}

// Middleware records every request on the main listener.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			requestsTotal.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			requestDuration.Observe(time.Since(start).Seconds())
			return err
		}
	}
}

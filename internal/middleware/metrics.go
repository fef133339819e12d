package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Initialize Prometheus metrics
var (
	// Request counter - tracks total requests by method, route, and status
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration histogram - tracks response times by method, route, and status
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Histogram of request durations by method, route, and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	// Response size histogram - catalog trees can get large
	ResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_response_size_bytes",
			Help:    "Histogram of response sizes by method and route",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"method", "route"},
	)
)

// MetricsMiddleware creates middleware that records request metrics
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// The matched route is only known once the router ran; label by its
		// pattern (/movies/:id) so ids do not explode cardinality
		route := c.Route().Path
		method := c.Method()
		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		statusStr := strconv.Itoa(status)

		RequestCount.WithLabelValues(method, route, statusStr).Inc()
		RequestDuration.WithLabelValues(method, route, statusStr).Observe(time.Since(start).Seconds())
		if size := len(c.Response().Body()); size > 0 {
			ResponseSize.WithLabelValues(method, route).Observe(float64(size))
		}

		return err
	}
}

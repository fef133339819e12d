package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the default Prometheus registry
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Metrics returns a Fiber handler for Prometheus metrics
func (h *MetricsHandler) Metrics() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

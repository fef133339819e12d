package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"mediacatalog/internal/database"
	"mediacatalog/internal/metrics"
)

// Dependency states
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

const (
	healthCheckTimeout = 2 * time.Second
	dbDegradedAfter    = 200 * time.Millisecond
)

// HealthStatus represents the overall health status response
type HealthStatus struct {
	Status string                 `json:"status"`
	DB     DependencyHealthStatus `json:"db"`
	Redis  DependencyHealthStatus `json:"redis"`
}

// DependencyHealthStatus represents the health status of a dependency
type DependencyHealthStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	dbManager *database.DatabaseManager
	redis     *redis.Client
}

// NewHealthHandler creates a new health handler. A nil redis client skips
// the broker check.
func NewHealthHandler(dbManager *database.DatabaseManager, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		dbManager: dbManager,
		redis:     redisClient,
	}
}

// HealthCheck handles GET /healthz. The API only needs the database to serve
// reads, so a broker outage degrades the status but keeps a 200.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
	defer cancel()

	health := HealthStatus{
		DB:    h.checkDB(ctx),
		Redis: h.checkRedis(ctx),
	}

	metrics.SetHealth("database", health.DB.Status != StatusDown)
	metrics.SetHealth("redis", health.Redis.Status != StatusDown)

	httpStatus := http.StatusOK
	switch {
	case health.DB.Status == StatusDown:
		health.Status = StatusDown
		httpStatus = http.StatusServiceUnavailable
	case health.DB.Status == StatusOK && health.Redis.Status == StatusOK:
		health.Status = StatusOK
	default:
		health.Status = StatusDegraded
	}

	c.Set("Cache-Control", "no-store")
	return c.Status(httpStatus).JSON(health)
}

func (h *HealthHandler) checkDB(ctx context.Context) DependencyHealthStatus {
	latency, err := h.dbManager.Ping(ctx)
	if err != nil {
		return DependencyHealthStatus{
			Status:    StatusDown,
			LatencyMs: latency.Milliseconds(),
			Message:   err.Error(),
		}
	}

	if latency > dbDegradedAfter {
		return DependencyHealthStatus{
			Status:    StatusDegraded,
			LatencyMs: latency.Milliseconds(),
			Message:   "Database response time is above threshold",
		}
	}

	return DependencyHealthStatus{
		Status:    StatusOK,
		LatencyMs: latency.Milliseconds(),
	}
}

func (h *HealthHandler) checkRedis(ctx context.Context) DependencyHealthStatus {
	if h.redis == nil {
		return DependencyHealthStatus{Status: StatusOK, Message: "not configured"}
	}

	start := time.Now()
	err := h.redis.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return DependencyHealthStatus{
			Status:    StatusDown,
			LatencyMs: latency,
			Message:   err.Error(),
		}
	}
	return DependencyHealthStatus{Status: StatusOK, LatencyMs: latency}
}

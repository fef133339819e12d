package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacatalog/internal/logging"
)

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(MetricsMiddleware())
	app.Get("/movies/:id", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	before := testutil.ToFloat64(RequestCount.WithLabelValues("GET", "/movies/:id", "200"))
	for _, id := range []string{"1", "2", "3"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/movies/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}

	after := testutil.ToFloat64(RequestCount.WithLabelValues("GET", "/movies/:id", "200"))
	assert.Equal(t, before+3, after)
}

func TestRequestContext(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(RequestContext())

	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = logging.GetRequestID(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", seen)
}

func TestRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Use(NewRateLimiter(2))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

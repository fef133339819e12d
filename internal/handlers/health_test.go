package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mediacatalog/internal/database"
	"mediacatalog/internal/test"
)

func healthRequest(t *testing.T, handler *HealthHandler) (int, HealthStatus, string) {
	t.Helper()

	app := fiber.New()
	app.Get("/healthz", handler.HealthCheck)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body, resp.Header.Get("Cache-Control")
}

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestHealthCheck_OK(t *testing.T) {
	handler := NewHealthHandler(test.GetTestDBManager(t), nil)

	status, body, cacheControl := healthRequest(t, handler)
	assert.Equal(t, 200, status)
	assert.Equal(t, StatusOK, body.Status)
	assert.Equal(t, StatusOK, body.DB.Status)
	assert.Equal(t, "no-store", cacheControl)
}

func TestHealthCheck_RedisDown(t *testing.T) {
	rdb := deadRedis()
	defer rdb.Close()
	handler := NewHealthHandler(test.GetTestDBManager(t), rdb)

	status, body, _ := healthRequest(t, handler)
	assert.Equal(t, 200, status)
	assert.Equal(t, StatusDegraded, body.Status)
	assert.Equal(t, StatusOK, body.DB.Status)
	assert.Equal(t, StatusDown, body.Redis.Status)
	assert.NotEmpty(t, body.Redis.Message)
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection refused"))

	handler := NewHealthHandler(database.NewDatabaseManagerFromExisting(gormDB, sqlDB), nil)
	status, body, _ := healthRequest(t, handler)
	assert.Equal(t, 503, status)
	assert.Equal(t, StatusDown, body.Status)
	assert.Equal(t, StatusDown, body.DB.Status)
	assert.Contains(t, body.DB.Message, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

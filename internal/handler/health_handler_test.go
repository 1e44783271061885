package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/astacala/rescue-api/internal/config"
	"github.com/astacala/rescue-api/internal/handler"
)

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{
		AppName: "Astacala Rescue API",
		AppEnv:  "test",
	}
	db := setupHandlerDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, db, client))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                   `json:"success"`
		Data    handler.HealthResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, "ok", payload.Data.Status)
	require.Equal(t, cfg.AppName, payload.Data.Service)
	require.Equal(t, cfg.AppEnv, payload.Data.Environment)
	require.Equal(t, "ok", payload.Data.Checks["database"])
	require.Equal(t, "ok", payload.Data.Checks["redis"])
	require.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
}

func TestHealthCheckWithoutBackends(t *testing.T) {
	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(config.Config{AppName: "Astacala Rescue API"}, nil, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data handler.HealthResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Equal(t, "disabled", payload.Data.Checks["database"])
	require.Equal(t, "disabled", payload.Data.Checks["redis"])
}

func TestHealthCheckReportsUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(config.Config{AppName: "Astacala Rescue API"}, setupHandlerDB(t), client))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var payload struct {
		Success   bool              `json:"success"`
		ErrorCode string            `json:"error_code"`
		Errors    map[string]string `json:"errors"`
	}
	decodeResponse(t, resp, &payload)
	require.False(t, payload.Success)
	require.Equal(t, "SERVER_ERROR", payload.ErrorCode)
	require.Equal(t, "unreachable", payload.Errors["redis"])
	require.Equal(t, "ok", payload.Errors["database"])
}

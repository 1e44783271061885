package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/astacala/rescue-api/internal/models"
)

func newGuardedApp(guard *fakeGuard, hits *int) *fiber.App {
	app := fiber.New()
	app.Use(ClientGuard(guard, zerolog.Nop()))
	app.All("/*", func(c *fiber.Ctx) error {
		*hits++
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestClientGuardRejectsBlockedClientBeforeHandler(t *testing.T) {
	guard := newFakeGuard()
	guard.blocked["0.0.0.0"] = "manual"
	hits := 0
	app := newGuardedApp(guard, &hits)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "CLIENT_BLOCKED", decodeEnvelope(t, resp)["error_code"])
	require.Zero(t, hits)
}

func TestClientGuardBlocksInjectionAttempts(t *testing.T) {
	cases := []struct {
		name string
		req  func() *http.Request
	}{
		{name: "union select in query", req: func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/reports?search=1+UNION+SELECT+password+FROM+users", nil)
		}},
		{name: "traversal in query", req: func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/files?path=..%2F..%2Fetc%2Fpasswd", nil)
		}},
		{name: "script in body", req: func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/forum", strings.NewReader(`{"message":"<script>alert(1)</script>"}`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}},
		{name: "tautology in body", req: func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a' OR '1'='1"}`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}},
		{name: "drop table in body", req: func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(`{"title":"x'; DROP TABLE users"}`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			guard := newFakeGuard()
			hits := 0
			app := newGuardedApp(guard, &hits)

			resp, err := app.Test(tc.req())
			require.NoError(t, err)
			require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
			require.Zero(t, hits)
			require.Contains(t, guard.kinds(), models.SecurityEventInjection)
			require.Contains(t, guard.blocked, "0.0.0.0")
		})
	}
}

func TestClientGuardRecordsMissingUserAgent(t *testing.T) {
	guard := newFakeGuard()
	hits := 0
	app := newGuardedApp(guard, &hits)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/publications", nil)
	req.Header.Set("User-Agent", "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, 1, hits)
	require.Equal(t, []string{models.SecurityEventMissingAgent}, guard.kinds())
	require.Empty(t, guard.blocked)
}

func TestClientGuardIgnoresMultipartBodies(t *testing.T) {
	guard := newFakeGuard()
	hits := 0
	app := newGuardedApp(guard, &hits)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/avatar", strings.NewReader("--x\r\n\r\n<script>\r\n--x--\r\n"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set("User-Agent", "AstacalaMobile/2.1 (Android 14)")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Empty(t, guard.kinds())
	require.Empty(t, guard.blocked)
}

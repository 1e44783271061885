package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/astacala/rescue-api/internal/handler"
)

func TestErrorHandler(t *testing.T) {
	cases := []struct {
		name    string
		debug   bool
		err     error
		status  int
		code    string
		message string
	}{
		{name: "fiber not found", err: fiber.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND", message: "Not Found"},
		{name: "fiber payload too large", err: fiber.ErrRequestEntityTooLarge, status: http.StatusRequestEntityTooLarge, code: "FILE_TOO_LARGE"},
		{name: "unexpected error hidden", err: errors.New("database exploded"), status: http.StatusInternalServerError, code: "SERVER_ERROR", message: "internal server error"},
		{name: "unexpected error in debug", debug: true, err: errors.New("database exploded"), status: http.StatusInternalServerError, code: "SERVER_ERROR", message: "database exploded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler(tc.debug, zerolog.Nop())})
			app.Get("/fail", func(c *fiber.Ctx) error {
				return tc.err
			})

			resp, err := app.Test(jsonRequest(http.MethodGet, "/fail", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			body := decodeEnvelope(t, resp)
			require.False(t, body.Success)
			require.Equal(t, tc.code, body.ErrorCode)
			if tc.message != "" {
				require.Equal(t, tc.message, body.Message)
			}
			require.Contains(t, body.Meta, "request_id")
		})
	}
}

func TestErrorHandlerRendersUnknownRoutes(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler(false, zerolog.Nop())})
	app.Get("/known", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(jsonRequest(http.MethodGet, "/unknown", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", decodeEnvelope(t, resp).ErrorCode)
}

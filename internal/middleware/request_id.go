package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/astacala/rescue-api/internal/utils"
)

type requestIDContextKey struct{}

var requestIDKey = requestIDContextKey{}

// RequestID ensures every request carries an identifier that is echoed back and attached to logs.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if incoming == "" {
			incoming = strings.TrimSpace(c.Get("X-Correlation-ID"))
		}
		if incoming == "" || len(incoming) > 128 {
			incoming = uuid.NewString()
		}

		c.Locals(utils.RequestIDKey, incoming)
		c.Set(fiber.HeaderXRequestID, incoming)
		c.SetUserContext(ContextWithRequestID(c.UserContext(), incoming))

		return c.Next()
	}
}

// RequestIDFromContext extracts the request identifier from context, if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRequestID returns the identifier bound to the active request.
func GetRequestID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(utils.RequestIDKey).(string); ok {
		return id
	}
	return RequestIDFromContext(c.UserContext())
}

// ContextWithRequestID attaches the request identifier to the provided context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(requestID) == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

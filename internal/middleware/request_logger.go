package middleware

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/observability"
)

const redactedValue = "[REDACTED]"

var sensitiveFields = map[string]struct{}{
	"password":              {},
	"password_confirmation": {},
	"current_password":      {},
	"new_password":          {},
	"token":                 {},
	"access_token":          {},
	"refresh_token":         {},
	"fcm_token":             {},
	"secret":                {},
}

// Keys containing any of these fragments are redacted as well.
var sensitiveFragments = []string{"password", "token", "secret"}

var unloggedBodyPaths = []string{"auth/login", "auth/register"}

// RequestLogger writes one structured line per request and records request metrics.
func RequestLogger(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()
	requestLogger := logger.With().Str("component", "http").Logger()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Let the error handler render the response so the logged status is final.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}
		duration := time.Since(start)

		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)
		platform := GetPlatform(c)

		observability.HTTPRequests().WithLabelValues(method, route, statusLabel, platform).Inc()
		observability.HTTPLatency().WithLabelValues(method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.HTTPErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = requestLogger.Error()
		case status >= fiber.StatusBadRequest:
			event = requestLogger.Warn()
		default:
			event = requestLogger.Info()
		}

		event = event.
			Str("request_id", GetRequestID(c)).
			Str("method", method).
			Str("path", c.Path()).
			Str("route", route).
			Int("status", status).
			Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
			Str("latency_bucket", latencyBucket(duration)).
			Str("platform", platform).
			Str("ip", c.IP())
		if userID, ok := c.Locals("user_id").(uint); ok {
			event = event.Uint("user_id", userID)
		}
		if body, ok := loggableBody(c); ok {
			event = event.Interface("body", body)
		}
		event.Msg("request completed")

		return err
	}
}

func loggableBody(c *fiber.Ctx) (interface{}, bool) {
	path := strings.TrimSuffix(c.Path(), "/")
	for _, suffix := range unloggedBodyPaths {
		if strings.HasSuffix(path, suffix) {
			return nil, false
		}
	}

	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		return nil, false
	}

	body := c.Body()
	if len(body) == 0 || !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
		return nil, false
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, false
	}
	return Redact(decoded), true
}

// Redact replaces sensitive field values with a marker at any depth.
func Redact(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for key, item := range typed {
			if isSensitiveKey(key) {
				out[key] = redactedValue
				continue
			}
			out[key] = Redact(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = Redact(item)
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	if _, ok := sensitiveFields[lowered]; ok {
		return true
	}
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}

func latencyBucket(duration time.Duration) string {
	switch {
	case duration <= 25*time.Millisecond:
		return "<=25ms"
	case duration <= 50*time.Millisecond:
		return "<=50ms"
	case duration <= 100*time.Millisecond:
		return "<=100ms"
	case duration <= 250*time.Millisecond:
		return "<=250ms"
	case duration <= 500*time.Millisecond:
		return "<=500ms"
	default:
		return ">500ms"
	}
}

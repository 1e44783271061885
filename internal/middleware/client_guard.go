package middleware

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/utils"
)

// SecurityGuard is the subset of the security service consulted by ClientGuard.
type SecurityGuard interface {
	IsBlocked(ctx context.Context, ip string) (bool, error)
	Block(ctx context.Context, ip, reason string) error
	Record(ctx context.Context, event models.SecurityEvent)
}

const maxInspectedBody = 64 * 1024

var suspiciousPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{name: "sql_union", pattern: regexp.MustCompile(`union\s+(all\s+)?select`)},
	{name: "script_tag", pattern: regexp.MustCompile(`<\s*script`)},
	{name: "path_traversal", pattern: regexp.MustCompile(`\.\.[/\\]`)},
	{name: "sql_tautology", pattern: regexp.MustCompile(`'\s*or\s*'1'\s*=\s*'1`)},
	{name: "sql_drop", pattern: regexp.MustCompile(`;\s*drop\s+table`)},
}

// ClientGuard rejects blocked clients and records requests that look like probing.
func ClientGuard(guard SecurityGuard, logger zerolog.Logger) fiber.Handler {
	guardLogger := logger.With().Str("component", "client_guard").Logger()

	return func(c *fiber.Ctx) error {
		if guard == nil {
			return c.Next()
		}

		ctx := c.UserContext()
		ip := c.IP()

		blocked, err := guard.IsBlocked(ctx, ip)
		if err != nil {
			guardLogger.Warn().Err(err).Str("ip", ip).Msg("block list lookup failed")
		}
		if blocked {
			return utils.SendError(c, fiber.StatusForbidden, utils.CodeClientBlocked, "client has been blocked due to suspicious activity")
		}

		agent := strings.TrimSpace(c.Get(fiber.HeaderUserAgent))
		if agent == "" {
			guard.Record(ctx, securityEvent(c, models.SecurityEventMissingAgent, nil))
		}

		if match := detectInjection(c); match != "" {
			guard.Record(ctx, securityEvent(c, models.SecurityEventInjection, map[string]interface{}{"pattern": match}))
			if err := guard.Block(ctx, ip, "suspicious request: "+match); err != nil {
				guardLogger.Error().Err(err).Str("ip", ip).Msg("failed to block client")
			}
			guardLogger.Warn().
				Str("request_id", GetRequestID(c)).
				Str("ip", ip).
				Str("pattern", match).
				Str("path", c.Path()).
				Msg("suspicious request rejected")
			return utils.SendError(c, fiber.StatusForbidden, utils.CodeClientBlocked, "request rejected")
		}

		return c.Next()
	}
}

func detectInjection(c *fiber.Ctx) string {
	candidates := []string{c.Path(), string(c.Request().URI().QueryString())}

	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
	if body := c.Body(); len(body) > 0 && !strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		if len(body) > maxInspectedBody {
			body = body[:maxInspectedBody]
		}
		candidates = append(candidates, string(body))
	}

	for _, candidate := range candidates {
		if match := matchSuspicious(candidate); match != "" {
			return match
		}
	}
	return ""
}

func matchSuspicious(raw string) string {
	if raw == "" {
		return ""
	}
	normalized := raw
	if decoded, err := url.QueryUnescape(raw); err == nil {
		normalized = decoded
	}
	normalized = strings.ToLower(normalized)

	for _, candidate := range suspiciousPatterns {
		if candidate.pattern.MatchString(normalized) {
			return candidate.name
		}
	}
	return ""
}

func securityEvent(c *fiber.Ctx, kind string, details map[string]interface{}) models.SecurityEvent {
	event := models.SecurityEvent{
		IPAddress: c.IP(),
		Kind:      kind,
		Method:    c.Method(),
		Path:      c.OriginalURL(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Details:   details,
	}
	if len(event.Path) > 512 {
		event.Path = event.Path[:512]
	}
	if userID, ok := c.Locals("user_id").(uint); ok && userID > 0 {
		event.UserID = &userID
	}
	return event
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Request platforms.
const (
	PlatformMobile = "mobile"
	PlatformWeb    = "web"
)

const (
	platformLocalKey = "platform"
	platformHeader   = "X-Platform"
)

var mobileAgentMarkers = []string{"dart", "okhttp", "flutter", "android", "iphone", "ios", "cfnetwork"}

// Platform classifies the caller as the mobile app or the web dashboard.
func Platform() fiber.Handler {
	return func(c *fiber.Ctx) error {
		platform := DetectPlatform(c)
		c.Locals(platformLocalKey, platform)
		c.Set(platformHeader, platform)
		return c.Next()
	}
}

// DetectPlatform applies the classification rules without touching locals.
func DetectPlatform(c *fiber.Ctx) string {
	switch strings.ToLower(strings.TrimSpace(c.Get(platformHeader))) {
	case PlatformMobile:
		return PlatformMobile
	case PlatformWeb:
		return PlatformWeb
	}

	if bearerToken(c) != "" {
		return PlatformMobile
	}

	agent := strings.ToLower(c.Get(fiber.HeaderUserAgent))
	for _, marker := range mobileAgentMarkers {
		if strings.Contains(agent, marker) {
			return PlatformMobile
		}
	}

	return PlatformWeb
}

// GetPlatform returns the platform resolved for the request, defaulting to web.
func GetPlatform(c *fiber.Ctx) string {
	if platform, ok := c.Locals(platformLocalKey).(string); ok && platform != "" {
		return platform
	}
	return DetectPlatform(c)
}

func bearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// ForcePlatform pins the platform for routes that only serve one client type.
func ForcePlatform(platform string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(platformLocalKey, platform)
		c.Set(platformHeader, platform)
		return c.Next()
	}
}

package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/astacala/rescue-api/internal/observability"
	"github.com/astacala/rescue-api/internal/utils"
)

// Endpoint classes with distinct rate limits.
const (
	RateClassAuth    = "auth"
	RateClassUpload  = "upload"
	RateClassReports = "reports"
	RateClassGeneral = "general"
)

// RateRule is the attempt budget for one class on one platform.
type RateRule struct {
	Max    int
	Window time.Duration
}

// RateLimits maps endpoint class and platform to its budget.
var RateLimits = map[string]map[string]RateRule{
	RateClassAuth: {
		PlatformMobile: {Max: 10, Window: time.Minute},
		PlatformWeb:    {Max: 5, Window: time.Minute},
	},
	RateClassUpload: {
		PlatformMobile: {Max: 20, Window: time.Minute},
		PlatformWeb:    {Max: 10, Window: time.Minute},
	},
	RateClassReports: {
		PlatformMobile: {Max: 60, Window: time.Minute},
		PlatformWeb:    {Max: 30, Window: time.Minute},
	},
	RateClassGeneral: {
		PlatformMobile: {Max: 120, Window: time.Minute},
		PlatformWeb:    {Max: 60, Window: time.Minute},
	},
}

// RateLimit limits requests of the given class per platform and caller.
// A nil storage keeps counters in process memory.
func RateLimit(class string, storage fiber.Storage) fiber.Handler {
	rules, ok := RateLimits[class]
	if !ok {
		class = RateClassGeneral
		rules = RateLimits[RateClassGeneral]
	}

	handlers := make(map[string]fiber.Handler, len(rules))
	for platform, rule := range rules {
		handlers[platform] = newPlatformLimiter(class, platform, rule, storage, false)
	}
	return byPlatform(handlers)
}

// RateLimitFailures counts only rejected requests (status 400 and above) per client IP.
// It runs ahead of authentication so callers cycling invalid credentials are throttled too.
func RateLimitFailures(class string, storage fiber.Storage) fiber.Handler {
	rules, ok := RateLimits[class]
	if !ok {
		class = RateClassGeneral
		rules = RateLimits[RateClassGeneral]
	}

	handlers := make(map[string]fiber.Handler, len(rules))
	for platform, rule := range rules {
		handlers[platform] = newPlatformLimiter(class, platform, rule, storage, true)
	}
	return byPlatform(handlers)
}

func byPlatform(handlers map[string]fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		handler, ok := handlers[GetPlatform(c)]
		if !ok {
			handler = handlers[PlatformWeb]
		}
		return handler(c)
	}
}

// RateLimitKey builds the counter key for a caller.
func RateLimitKey(class, platform string, c *fiber.Ctx) string {
	if userID, ok := c.Locals("user_id").(uint); ok && userID > 0 {
		return fmt.Sprintf("%s:%s:user:%d", class, platform, userID)
	}
	return fmt.Sprintf("%s:%s:ip:%s", class, platform, c.IP())
}

func newPlatformLimiter(class, platform string, rule RateRule, storage fiber.Storage, failuresOnly bool) fiber.Handler {
	if rule.Max <= 0 {
		rule.Max = 60
	}
	if rule.Window <= 0 {
		rule.Window = time.Minute
	}

	cfg := limiter.Config{
		Max:                    rule.Max,
		Expiration:             rule.Window,
		SkipSuccessfulRequests: failuresOnly,
		KeyGenerator: func(c *fiber.Ctx) string {
			if failuresOnly {
				return fmt.Sprintf("%s:%s:failed:ip:%s", class, platform, c.IP())
			}
			return RateLimitKey(class, platform, c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimitRejections().WithLabelValues(class, platform).Inc()

			retryAfter := string(c.Response().Header.Peek(fiber.HeaderRetryAfter))
			if retryAfter == "" {
				retryAfter = strconv.Itoa(int(rule.Window.Seconds()))
				c.Set(fiber.HeaderRetryAfter, retryAfter)
			}
			c.Set("X-RateLimit-Limit", strconv.Itoa(rule.Max))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("X-RateLimit-Reset", retryAfter)

			return utils.SendError(c, fiber.StatusTooManyRequests, utils.CodeRateLimitExceeded, "too many requests, please slow down")
		},
	}
	if storage != nil {
		cfg.Storage = storage
	}

	return limiter.New(cfg)
}

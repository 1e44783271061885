package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// Authentication methods recorded in locals.
const (
	AuthMethodToken   = "token"
	AuthMethodSession = "session"
)

const (
	sessionUserKey  = "user_id"
	sessionTokenKey = "token_id"
	// SessionCookieName is the cookie carrying the web dashboard session id.
	SessionCookieName = "astacala_session"
)

// Authenticator resolves principals from bearer tokens and session user ids.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (service.Principal, error)
	ResolveUser(ctx context.Context, userID uint) (service.Principal, error)
}

// DualAuthConfig configures DualAuth.
type DualAuthConfig struct {
	Auth     Authenticator
	Sessions *session.Store
	// Optional lets anonymous requests through; credentials that are present are still resolved.
	Optional bool
}

// DualAuth authenticates mobile clients by bearer token and web clients by session cookie.
func DualAuth(cfg DualAuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if raw := bearerToken(c); raw != "" {
			principal, err := cfg.Auth.Authenticate(ctx, raw)
			if err != nil {
				if cfg.Optional {
					return c.Next()
				}
				if errors.Is(err, service.ErrInvalidToken) {
					return utils.SendError(c, fiber.StatusUnauthorized, utils.CodeInvalidToken, "invalid or expired token")
				}
				return err
			}
			setPrincipal(c, principal, AuthMethodToken)
			return c.Next()
		}

		if cfg.Sessions != nil {
			userID, tokenID, err := sessionIdentity(c, cfg.Sessions)
			if err != nil {
				return err
			}
			if userID > 0 {
				principal, err := cfg.Auth.ResolveUser(ctx, userID)
				if err == nil {
					principal.TokenID = tokenID
					setPrincipal(c, principal, AuthMethodSession)
					return c.Next()
				}
				_ = EndSession(c, cfg.Sessions)
			}
		}

		if cfg.Optional {
			return c.Next()
		}
		return utils.SendError(c, fiber.StatusUnauthorized, utils.CodeAuthRequired, "authentication required")
	}
}

// NewSessionStore builds the web session store; a nil storage keeps sessions in memory.
func NewSessionStore(storage fiber.Storage, ttl time.Duration, secure bool) *session.Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	cfg := session.Config{
		Expiration:     ttl,
		KeyLookup:      "cookie:" + SessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return session.New(cfg)
}

// StartSession binds the user and the bearer token issued at login to a fresh web session.
// Ending the session through logout revokes that token as well.
func StartSession(c *fiber.Ctx, store *session.Store, userID uint, tokenID string) error {
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(sessionUserKey, userID)
	if tokenID != "" {
		sess.Set(sessionTokenKey, tokenID)
	}
	return sess.Save()
}

// EndSession destroys the web session, if any.
func EndSession(c *fiber.Ctx, store *session.Store) error {
	if store == nil {
		return nil
	}
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}

// CurrentPrincipal returns the identity DualAuth resolved for the request.
func CurrentPrincipal(c *fiber.Ctx) (service.Principal, bool) {
	userID, ok := c.Locals("user_id").(uint)
	if !ok || userID == 0 {
		return service.Principal{}, false
	}
	role, _ := c.Locals("user_role").(string)
	tokenID, _ := c.Locals("token_id").(string)
	return service.Principal{UserID: userID, Role: role, TokenID: tokenID}, true
}

func setPrincipal(c *fiber.Ctx, principal service.Principal, method string) {
	c.Locals("user_id", principal.UserID)
	c.Locals("user_role", principal.Role)
	c.Locals("auth_method", method)
	c.Locals("token_id", principal.TokenID)
}

func sessionIdentity(c *fiber.Ctx, store *session.Store) (uint, string, error) {
	if c.Cookies(SessionCookieName) == "" {
		return 0, "", nil
	}

	sess, err := store.Get(c)
	if err != nil {
		return 0, "", err
	}
	tokenID, _ := sess.Get(sessionTokenKey).(string)

	switch value := sess.Get(sessionUserKey).(type) {
	case uint:
		return value, tokenID, nil
	case int:
		if value > 0 {
			return uint(value), tokenID, nil
		}
	case string:
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			return uint(parsed), tokenID, nil
		}
	}
	return 0, "", nil
}

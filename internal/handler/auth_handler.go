package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/middleware"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// AuthHandler exposes registration, login and token lifecycle endpoints.
type AuthHandler struct {
	service  service.AuthService
	sessions *session.Store
	logger   zerolog.Logger
}

// NewAuthHandler constructs the handler. Sessions may be nil when web login is disabled.
func NewAuthHandler(service service.AuthService, sessions *session.Store, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires the auth routes. Credential endpoints pass through the auth limiter;
// the rest run behind the auth middleware.
func (h *AuthHandler) Register(router fiber.Router, auth, limit fiber.Handler) {
	router.Post("/register", limit, h.register)
	router.Post("/login", limit, h.Login)
	router.Post("/logout", auth, h.logout)
	router.Get("/me", auth, h.me)
	router.Post("/refresh", auth, h.refresh)
	router.Post("/change-password", auth, h.changePassword)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	result, err := h.service.Register(c.UserContext(), payload, clientMeta(c, payload.DeviceName))
	if err != nil {
		return respondError(c, h.logger, err, "failed to register user")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", result)
}

// Login authenticates credentials; web clients additionally receive a session cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	meta := clientMeta(c, payload.DeviceName)
	result, err := h.service.Login(c.UserContext(), payload, meta)
	if err != nil {
		return respondError(c, h.logger, err, "failed to login")
	}

	if meta.Platform == middleware.PlatformWeb && h.sessions != nil {
		if err := middleware.StartSession(c, h.sessions, result.User.ID, result.TokenID); err != nil {
			return respondError(c, h.logger, err, "failed to start session")
		}
	}

	return utils.SendSuccess(c, "login successful", result)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	principal := principalFromContext(c)
	if err := h.service.Logout(c.UserContext(), principal.TokenID); err != nil {
		return respondError(c, h.logger, err, "failed to logout")
	}

	if err := middleware.EndSession(c, h.sessions); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to destroy session")
	}

	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	user, err := h.service.Me(c.UserContext(), principalFromContext(c).UserID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	result, err := h.service.Refresh(c.UserContext(), principalFromContext(c), clientMeta(c, ""))
	if err != nil {
		return respondError(c, h.logger, err, "failed to refresh token")
	}
	if method, _ := c.Locals("auth_method").(string); method == middleware.AuthMethodSession && h.sessions != nil {
		if err := middleware.StartSession(c, h.sessions, result.User.ID, result.TokenID); err != nil {
			return respondError(c, h.logger, err, "failed to rotate session")
		}
	}
	return utils.SendSuccess(c, "token refreshed", result)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	if err := h.service.ChangePassword(c.UserContext(), principalFromContext(c), payload); err != nil {
		return respondError(c, h.logger, err, "failed to change password")
	}
	return utils.SendSuccess(c, "password changed", nil)
}

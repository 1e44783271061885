package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// UserHandler serves profile endpoints and the admin user directory.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires self-service profile routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/profile", h.profile)
	router.Put("/profile", h.updateProfile)
	router.Post("/fcm-token", h.registerFCMToken)
}

// RegisterAdmin wires user management routes behind the admin guard.
func (h *UserHandler) RegisterAdmin(router fiber.Router, admin fiber.Handler) {
	router.Get("", admin, h.list)
	router.Patch("/:id/role", admin, h.updateRole)
	router.Patch("/:id/status", admin, h.updateStatus)
}

func (h *UserHandler) profile(c *fiber.Ctx) error {
	user, err := h.service.Profile(c.UserContext(), principalFromContext(c).UserID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *UserHandler) updateProfile(c *fiber.Ctx) error {
	var payload dto.ProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	user, err := h.service.UpdateProfile(c.UserContext(), principalFromContext(c).UserID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update profile")
	}
	return utils.SendSuccess(c, "profile updated", user)
}

func (h *UserHandler) registerFCMToken(c *fiber.Ctx) error {
	var payload dto.FCMTokenRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	if err := h.service.RegisterFCMToken(c.UserContext(), principalFromContext(c).UserID, payload); err != nil {
		return respondError(c, h.logger, err, "failed to register device token")
	}
	return utils.SendSuccess(c, "device token registered", nil)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	page, perPage, err := pageParams(c)
	if err != nil {
		return badRequest(c, errBadPagination.Error())
	}
	active, err := parseQueryBool(c, "active")
	if err != nil {
		return badRequest(c, "invalid active filter")
	}

	query := dto.UserListQuery{
		Search:  strings.TrimSpace(c.Query("search")),
		Role:    strings.ToUpper(strings.TrimSpace(c.Query("role"))),
		Active:  active,
		Page:    page,
		PerPage: perPage,
	}

	users, total, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list users")
	}
	return utils.SendPaginated(c, "users retrieved", users, utils.NewPagination(page, perPage, total))
}

func (h *UserHandler) updateRole(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.UserRoleUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}
	payload.Role = strings.ToUpper(strings.TrimSpace(payload.Role))

	user, err := h.service.UpdateRole(c.UserContext(), principalFromContext(c).UserID, id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update role")
	}
	return utils.SendSuccess(c, "role updated", user)
}

func (h *UserHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.UserStatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	user, err := h.service.UpdateStatus(c.UserContext(), principalFromContext(c).UserID, id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update status")
	}
	return utils.SendSuccess(c, "status updated", user)
}

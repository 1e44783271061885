package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// ForumHandler serves the per-report discussion threads.
type ForumHandler struct {
	service service.ForumService
	logger  zerolog.Logger
}

// NewForumHandler constructs the handler.
func NewForumHandler(service service.ForumService, logger zerolog.Logger) *ForumHandler {
	return &ForumHandler{
		service: service,
		logger:  logger.With().Str("component", "forum_handler").Logger(),
	}
}

// Register wires forum routes.
func (h *ForumHandler) Register(router fiber.Router) {
	router.Get("/reports/:reportId/messages", h.list)
	router.Post("/reports/:reportId/messages", h.create)
	router.Post("/reports/:reportId/read", h.markRead)
	router.Put("/messages/:id", h.update)
	router.Delete("/messages/:id", h.delete)
}

func (h *ForumHandler) list(c *fiber.Ctx) error {
	reportID, err := parseIDParam(c, "reportId")
	if err != nil {
		return badRequest(c, err.Error())
	}

	messages, err := h.service.ListThread(c.UserContext(), reportID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load messages")
	}
	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *ForumHandler) create(c *fiber.Ctx) error {
	reportID, err := parseIDParam(c, "reportId")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ForumMessageCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	message, err := h.service.Create(c.UserContext(), principalFromContext(c), reportID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to post message")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message posted", message)
}

func (h *ForumHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ForumMessageUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	message, err := h.service.Update(c.UserContext(), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update message")
	}
	return utils.SendSuccess(c, "message updated", message)
}

func (h *ForumHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), principalFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete message")
	}
	return utils.SendSuccess(c, "message deleted", nil)
}

func (h *ForumHandler) markRead(c *fiber.Ctx) error {
	reportID, err := parseIDParam(c, "reportId")
	if err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.service.MarkRead(c.UserContext(), principalFromContext(c), reportID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to mark messages read")
	}
	return utils.SendSuccess(c, "messages marked as read", fiber.Map{"updated": updated})
}

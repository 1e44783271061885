package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// PublicationHandler serves public articles, their comments and staff authoring.
type PublicationHandler struct {
	service service.PublicationService
	logger  zerolog.Logger
}

// NewPublicationHandler constructs the handler.
func NewPublicationHandler(service service.PublicationService, logger zerolog.Logger) *PublicationHandler {
	return &PublicationHandler{
		service: service,
		logger:  logger.With().Str("component", "publication_handler").Logger(),
	}
}

// PublicationRoutes bundles the guards applied to publication routes.
type PublicationRoutes struct {
	OptionalAuth fiber.Handler
	Auth         fiber.Handler
	Staff        fiber.Handler
}

// Register wires publication routes. Reads are public; staff see drafts and archived items.
func (h *PublicationHandler) Register(router fiber.Router, guards PublicationRoutes) {
	router.Get("", guards.OptionalAuth, h.List)
	router.Post("", guards.Auth, guards.Staff, h.Create)
	router.Delete("/comments/:commentId", guards.Auth, h.deleteComment)
	router.Get("/:id", guards.OptionalAuth, h.Get)
	router.Put("/:id", guards.Auth, guards.Staff, h.update)
	router.Delete("/:id", guards.Auth, guards.Staff, h.delete)
	router.Post("/:id/publish", guards.Auth, guards.Staff, h.publish)
	router.Post("/:id/archive", guards.Auth, guards.Staff, h.archive)
	router.Get("/:id/comments", guards.OptionalAuth, h.listComments)
	router.Post("/:id/comments", guards.Auth, h.addComment)
	router.Delete("/:id/comments/:commentId", guards.Auth, h.deleteComment)
}

// List returns publications visible to the caller.
func (h *PublicationHandler) List(c *fiber.Ctx) error {
	page, perPage, err := pageParams(c)
	if err != nil {
		return badRequest(c, errBadPagination.Error())
	}

	query := dto.PublicationListQuery{
		Status:   strings.TrimSpace(c.Query("status")),
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     page,
		PerPage:  perPage,
	}

	items, total, err := h.service.List(c.UserContext(), viewerFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list publications")
	}
	return utils.SendPaginated(c, "publications retrieved", items, utils.NewPagination(page, perPage, total))
}

// Get returns one publication if visible to the caller.
func (h *PublicationHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	publication, err := h.service.Get(c.UserContext(), viewerFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load publication")
	}
	return utils.SendSuccess(c, "publication retrieved", publication)
}

// Create stores a draft publication.
func (h *PublicationHandler) Create(c *fiber.Ctx) error {
	var payload dto.PublicationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	publication, err := h.service.Create(c.UserContext(), principalFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create publication")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "publication created", publication)
}

func (h *PublicationHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.PublicationUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	publication, err := h.service.Update(c.UserContext(), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update publication")
	}
	return utils.SendSuccess(c, "publication updated", publication)
}

func (h *PublicationHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), principalFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete publication")
	}
	return utils.SendSuccess(c, "publication deleted", nil)
}

func (h *PublicationHandler) publish(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	publication, err := h.service.Publish(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to publish publication")
	}
	return utils.SendSuccess(c, "publication published", publication)
}

func (h *PublicationHandler) archive(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	publication, err := h.service.Archive(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to archive publication")
	}
	return utils.SendSuccess(c, "publication archived", publication)
}

func (h *PublicationHandler) listComments(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	comments, err := h.service.ListComments(c.UserContext(), viewerFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load comments")
	}
	return utils.SendSuccess(c, "comments retrieved", comments)
}

func (h *PublicationHandler) addComment(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.PublicationCommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	comment, err := h.service.AddComment(c.UserContext(), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to add comment")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment added", comment)
}

func (h *PublicationHandler) deleteComment(c *fiber.Ctx) error {
	commentID, err := parseIDParam(c, "commentId")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var publicationID uint
	if c.Params("id") != "" {
		if publicationID, err = parseIDParam(c, "id"); err != nil {
			return badRequest(c, err.Error())
		}
	}

	if err := h.service.DeleteComment(c.UserContext(), principalFromContext(c), publicationID, commentID); err != nil {
		return respondError(c, h.logger, err, "failed to delete comment")
	}
	return utils.SendSuccess(c, "comment deleted", nil)
}

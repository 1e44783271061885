package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// ReportHandler serves the disaster report endpoints.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register wires report routes. Writes pass through the write limiter; verification requires staff.
func (h *ReportHandler) Register(router fiber.Router, writeLimit, staff fiber.Handler) {
	router.Get("", h.list)
	router.Get("/statistics", h.statistics)
	router.Post("", writeLimit, h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", writeLimit, h.update)
	router.Delete("/:id", writeLimit, h.delete)
	router.Post("/:id/verify", staff, writeLimit, h.verify)
}

func (h *ReportHandler) list(c *fiber.Ctx) error {
	query, err := h.listQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	reports, total, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list reports")
	}
	return utils.SendPaginated(c, "reports retrieved", reports, utils.NewPagination(query.Page, query.PerPage, total))
}

func (h *ReportHandler) listQuery(c *fiber.Ctx) (dto.ReportListQuery, error) {
	page, perPage, err := pageParams(c)
	if err != nil {
		return dto.ReportListQuery{}, errBadPagination
	}

	query := dto.ReportListQuery{
		Status:        strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		DisasterType:  strings.ToUpper(strings.TrimSpace(c.Query("disaster_type"))),
		SeverityLevel: strings.ToUpper(strings.TrimSpace(c.Query("severity_level"))),
		Search:        strings.TrimSpace(c.Query("search")),
		Page:          page,
		PerPage:       perPage,
	}

	mine, err := parseQueryBool(c, "mine")
	if err != nil {
		return dto.ReportListQuery{}, errBadFilter
	}
	if mine != nil && *mine {
		userID := principalFromContext(c).UserID
		query.ReporterID = &userID
	}
	return query, nil
}

func (h *ReportHandler) create(c *fiber.Ctx) error {
	var payload dto.ReportCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	report, err := h.service.Create(c.UserContext(), principalFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create report")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report submitted", report)
}

func (h *ReportHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	report, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load report")
	}
	return utils.SendSuccess(c, "report retrieved", report)
}

func (h *ReportHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ReportUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	report, err := h.service.Update(c.UserContext(), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update report")
	}
	return utils.SendSuccess(c, "report updated", report)
}

func (h *ReportHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), principalFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete report")
	}
	return utils.SendSuccess(c, "report deleted", nil)
}

func (h *ReportHandler) verify(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ReportVerifyRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}
	payload.Status = strings.ToUpper(strings.TrimSpace(payload.Status))

	report, err := h.service.Verify(c.UserContext(), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to verify report")
	}
	return utils.SendSuccess(c, "report verification recorded", report)
}

func (h *ReportHandler) statistics(c *fiber.Ctx) error {
	stats, err := h.service.Statistics(c.UserContext(), principalFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute statistics")
	}
	return utils.SendSuccess(c, "report statistics", stats)
}

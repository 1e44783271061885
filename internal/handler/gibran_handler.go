package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/middleware"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// GibranHandler keeps the legacy web dashboard routes alive on top of the current services.
type GibranHandler struct {
	reports       service.ReportService
	publications  service.PublicationService
	notifications service.NotificationService
	dashboard     service.DashboardService
	logger        zerolog.Logger
}

// NewGibranHandler constructs the handler.
func NewGibranHandler(reports service.ReportService, publications service.PublicationService, notifications service.NotificationService, dashboard service.DashboardService, logger zerolog.Logger) *GibranHandler {
	return &GibranHandler{
		reports:       reports,
		publications:  publications,
		notifications: notifications,
		dashboard:     dashboard,
		logger:        logger.With().Str("component", "gibran_handler").Logger(),
	}
}

// Register wires the legacy routes; the router applies authentication and staff-only handlers guard themselves.
func (h *GibranHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("/dashboard/statistics", middleware.WithAuth(h.statistics, staff))

	router.Get("/pelaporans", h.listReports)
	router.Post("/pelaporans", h.createReport)
	router.Get("/pelaporans/:id", h.showReport)
	router.Post("/pelaporans/:id/verify", middleware.WithAuth(h.verifyReport, staff))

	router.Get("/publikasi", h.listPublications)
	router.Post("/publikasi", middleware.WithAuth(h.createPublication, staff))
	router.Get("/publikasi/:id", h.showPublication)

	router.Post("/notifikasi/send", middleware.WithAuth(h.sendNotification, staff))
}

func (h *GibranHandler) statistics(c *fiber.Ctx) error {
	stats, err := h.dashboard.Statistics(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard statistics")
	}
	return utils.SendSuccess(c, "statistik dashboard", dto.NewLegacyStatisticsResponse(stats))
}

func (h *GibranHandler) listReports(c *fiber.Ctx) error {
	page, perPage, err := pageParams(c)
	if err != nil {
		return badRequest(c, errBadPagination.Error())
	}

	query := dto.ReportListQuery{
		Status:        dto.LegacyStatus(c.Query("status_verifikasi")),
		DisasterType:  dto.LegacyDisasterType(c.Query("jenis_bencana")),
		SeverityLevel: dto.LegacySeverity(c.Query("skala_bencana")),
		Search:        strings.TrimSpace(c.Query("search")),
		Page:          page,
		PerPage:       perPage,
	}

	reports, total, err := h.reports.List(c.UserContext(), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list reports")
	}
	return utils.SendPaginated(c, "daftar pelaporan", dto.NewLegacyReportResponseSlice(reports), utils.NewPagination(page, perPage, total))
}

func (h *GibranHandler) createReport(c *fiber.Ctx) error {
	var payload dto.LegacyReportRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	request, err := payload.ToReportCreateRequest()
	if err != nil {
		return utils.SendErrorWithDetails(c, fiber.StatusUnprocessableEntity, utils.CodeValidation, "the given data was invalid",
			map[string][]string{"titik_kordinat_lokasi_bencana": {err.Error()}})
	}

	report, err := h.reports.Create(c.UserContext(), principalFromContext(c), request)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create report")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "pelaporan berhasil dibuat", dto.NewLegacyReportResponse(report))
}

func (h *GibranHandler) showReport(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	report, err := h.reports.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load report")
	}
	return utils.SendSuccess(c, "detail pelaporan", dto.NewLegacyReportResponse(report))
}

func (h *GibranHandler) verifyReport(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.LegacyVerifyRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	report, err := h.reports.Verify(c.UserContext(), principalFromContext(c), id, dto.ReportVerifyRequest{
		Status: dto.LegacyStatus(payload.StatusVerifikasi),
		Notes:  payload.CatatanVerifikasi,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to verify report")
	}
	return utils.SendSuccess(c, "status verifikasi diperbarui", dto.NewLegacyReportResponse(report))
}

func (h *GibranHandler) listPublications(c *fiber.Ctx) error {
	page, perPage, err := pageParams(c)
	if err != nil {
		return badRequest(c, errBadPagination.Error())
	}

	items, total, err := h.publications.List(c.UserContext(), viewerFromContext(c), dto.PublicationListQuery{
		Status:   strings.TrimSpace(c.Query("status")),
		Category: strings.TrimSpace(c.Query("kategori")),
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list publications")
	}

	out := make([]dto.LegacyPublicationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.NewLegacyPublicationResponse(item))
	}
	return utils.SendPaginated(c, "daftar publikasi", out, utils.NewPagination(page, perPage, total))
}

func (h *GibranHandler) showPublication(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	publication, err := h.publications.Get(c.UserContext(), viewerFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load publication")
	}
	return utils.SendSuccess(c, "detail publikasi", dto.NewLegacyPublicationResponse(publication))
}

func (h *GibranHandler) createPublication(c *fiber.Ctx) error {
	var payload dto.LegacyPublicationRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	publication, err := h.publications.Create(c.UserContext(), principalFromContext(c), dto.PublicationCreateRequest{
		Title:    payload.Judul,
		Content:  payload.Konten,
		Category: payload.Kategori,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to create publication")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "publikasi berhasil dibuat", dto.NewLegacyPublicationResponse(publication))
}

func (h *GibranHandler) sendNotification(c *fiber.Ctx) error {
	var payload dto.LegacyNotificationRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	roles := make([]string, 0, len(payload.Peran))
	for _, role := range payload.Peran {
		roles = append(roles, strings.ToUpper(strings.TrimSpace(role)))
	}

	delivered, err := h.notifications.Broadcast(c.UserContext(), dto.NotificationBroadcastRequest{
		Title:    payload.Judul,
		Message:  payload.Pesan,
		Priority: strings.ToUpper(strings.TrimSpace(payload.Prioritas)),
		Roles:    roles,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to send notification")
	}
	return utils.SendSuccess(c, "notifikasi terkirim", fiber.Map{"penerima": delivered})
}

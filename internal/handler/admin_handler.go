package handler

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// AdminHandler serves the staff dashboard and security tooling.
type AdminHandler struct {
	dashboard service.DashboardService
	security  service.SecurityService
	logger    zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(dashboard service.DashboardService, security service.SecurityService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		dashboard: dashboard,
		security:  security,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register wires admin routes; the router guards the group with a staff role check.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/dashboard/statistics", h.Statistics)
	router.Get("/security-events", h.securityEvents)
	router.Delete("/blocked-clients/:ip", h.unblock)
}

// Statistics returns the cached dashboard aggregates.
func (h *AdminHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.dashboard.Statistics(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard statistics")
	}

	if stats.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}
	return utils.SendSuccess(c, "dashboard statistics", stats)
}

func (h *AdminHandler) securityEvents(c *fiber.Ctx) error {
	page, perPage, err := pageParams(c)
	if err != nil {
		return badRequest(c, errBadPagination.Error())
	}

	query := dto.SecurityEventListQuery{
		IPAddress: strings.TrimSpace(c.Query("ip")),
		Kind:      strings.TrimSpace(c.Query("kind")),
		Page:      page,
		PerPage:   perPage,
	}

	events, total, err := h.security.ListEvents(c.UserContext(), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list security events")
	}
	return utils.SendPaginated(c, "security events retrieved", events, utils.NewPagination(page, perPage, total))
}

func (h *AdminHandler) unblock(c *fiber.Ctx) error {
	ip := strings.TrimSpace(c.Params("ip"))
	if net.ParseIP(ip) == nil {
		return badRequest(c, "invalid ip address")
	}

	removed, err := h.security.Unblock(c.UserContext(), ip)
	if err != nil {
		return respondError(c, h.logger, err, "failed to unblock client")
	}
	if !removed {
		return utils.SendError(c, fiber.StatusNotFound, utils.CodeNotFound, "client is not blocked")
	}

	requestLogger(h.logger, c).Info().Str("ip", ip).Uint("admin_id", principalFromContext(c).UserID).Msg("client unblocked")
	return utils.SendSuccess(c, "client unblocked", fiber.Map{"ip": ip})
}

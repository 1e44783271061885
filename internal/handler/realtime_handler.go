package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// RealtimeHandler upgrades authorised clients to websocket broadcast subscriptions.
type RealtimeHandler struct {
	service service.RealtimeService
	logger  zerolog.Logger
}

// NewRealtimeHandler constructs the handler.
func NewRealtimeHandler(service service.RealtimeService, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		service: service,
		logger:  logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register wires the websocket endpoint behind the given auth middleware.
func (h *RealtimeHandler) Register(router fiber.Router, auth fiber.Handler) {
	router.Get("/ws", promoteQueryToken, auth, h.authorize, websocket.New(h.handleConnection))
}

// promoteQueryToken lets browser websocket clients, which cannot set headers, pass the bearer token as a query parameter.
func promoteQueryToken(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		if token := strings.TrimSpace(c.Query("token")); token != "" {
			c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
	}
	return c.Next()
}

func (h *RealtimeHandler) authorize(c *fiber.Ctx) error {
	principal := principalFromContext(c)
	channel := strings.TrimSpace(c.Query("channel"))
	if channel == "" {
		channel = service.UserChannel(principal.UserID)
	}

	if err := h.service.Authorize(principal.UserID, principal.Role, channel); err != nil {
		return respondError(c, h.logger, err, "failed to authorise channel")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	c.Locals("channel", channel)
	return c.Next()
}

func (h *RealtimeHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)
	role, _ := conn.Locals("user_role").(string)
	channel, _ := conn.Locals("channel").(string)
	requestID, _ := conn.Locals(utils.RequestIDKey).(string)

	h.logger.Info().Uint("user_id", userID).Str("channel", channel).Msg("realtime websocket connected")
	h.service.ServeConnection(conn, service.RealtimeConnectionOptions{
		UserID:    userID,
		Role:      role,
		Channel:   channel,
		RequestID: requestID,
	})
	h.logger.Info().Uint("user_id", userID).Str("channel", channel).Msg("realtime websocket disconnected")
}

package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// NotificationHandler manages SSE notification streams and CRUD operations.
type NotificationHandler struct {
	service   service.NotificationService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &NotificationHandler{
		service:   service,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the notification routes; broadcast is guarded by the admin handler.
func (h *NotificationHandler) Register(router fiber.Router, admin fiber.Handler) {
	router.Get("", h.list)
	router.Get("/unread-count", h.unreadCount)
	router.Get("/stream", h.stream)
	router.Post("/mark-all-read", h.markAllRead)
	router.Post("/broadcast", admin, h.Broadcast)
	router.Patch("/:id/read", h.markRead)
	router.Delete("/:id", h.delete)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	page, perPage, err := pageParams(c)
	if err != nil {
		return badRequest(c, errBadPagination.Error())
	}
	unreadOnly, err := parseQueryBool(c, "unread_only")
	if err != nil {
		return badRequest(c, errBadFilter.Error())
	}

	query := dto.NotificationListQuery{Page: page, PerPage: perPage}
	if unreadOnly != nil {
		query.UnreadOnly = *unreadOnly
	}

	notifications, total, err := h.service.List(c.UserContext(), principalFromContext(c).UserID, query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list notifications")
	}
	return utils.SendPaginated(c, "notifications retrieved", notifications, utils.NewPagination(page, perPage, total))
}

func (h *NotificationHandler) unreadCount(c *fiber.Ctx) error {
	count, err := h.service.UnreadCount(c.UserContext(), principalFromContext(c).UserID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to count notifications")
	}
	return utils.SendSuccess(c, "unread count", dto.UnreadCountResponse{UnreadCount: count})
}

func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	userID := principalFromContext(c).UserID

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	stream, cleanup := h.service.Subscribe(userID)
	logger := requestLogger(h.logger, c).With().Uint("user_id", userID).Logger()
	keepAlive := h.keepAlive

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cleanup()

		if err := writeKeepAlive(w); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case notification, ok := <-stream:
				if !ok {
					return
				}
				if err := writeNotificationEvent(w, notification); err != nil {
					logger.Debug().Err(err).Msg("failed to write notification event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("notification stream closed")
					return
				}
			}
		}
	})

	return nil
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	notification, err := h.service.MarkRead(c.UserContext(), id, principalFromContext(c).UserID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update notification")
	}
	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	updated, err := h.service.MarkAllRead(c.UserContext(), principalFromContext(c).UserID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update notifications")
	}
	return utils.SendSuccess(c, "notifications marked as read", fiber.Map{"updated": updated})
}

func (h *NotificationHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, principalFromContext(c).UserID); err != nil {
		return respondError(c, h.logger, err, "failed to delete notification")
	}
	return utils.SendSuccess(c, "notification deleted", nil)
}

// Broadcast sends a notification to every active user holding one of the requested roles.
func (h *NotificationHandler) Broadcast(c *fiber.Ctx) error {
	var payload dto.NotificationBroadcastRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	delivered, err := h.service.Broadcast(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to broadcast notification")
	}
	return utils.SendSuccess(c, "notification broadcast", fiber.Map{"recipients": delivered})
}

func writeNotificationEvent(w *bufio.Writer, notification interface{}) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: notification\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
)

// ForumEditWindow is how long an author may edit a message after posting it.
const ForumEditWindow = 24 * time.Hour

// ForumService exposes the per-report coordination forum.
type ForumService interface {
	ListThread(ctx context.Context, reportID uint) ([]dto.ForumMessageResponse, error)
	Create(ctx context.Context, actor Principal, reportID uint, payload dto.ForumMessageCreateRequest) (dto.ForumMessageResponse, error)
	Update(ctx context.Context, actor Principal, id uint, payload dto.ForumMessageUpdateRequest) (dto.ForumMessageResponse, error)
	Delete(ctx context.Context, actor Principal, id uint) error
	MarkRead(ctx context.Context, actor Principal, reportID uint) (int64, error)
}

type forumService struct {
	repo          repository.ForumRepository
	reports       repository.ReportRepository
	notifications NotificationPublisher
	broadcaster   EventBroadcaster
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
	sanitizer     *bluemonday.Policy
	now           func() time.Time
}

// NewForumService constructs a forum service.
func NewForumService(repo repository.ForumRepository, reports repository.ReportRepository, notifications NotificationPublisher, broadcaster EventBroadcaster, validate *validator.Validate, logger zerolog.Logger) ForumService {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("br")

	return &forumService{
		repo:          repo,
		reports:       reports,
		notifications: notifications,
		broadcaster:   broadcaster,
		validator:     validate,
		logger:        logger.With().Str("component", "forum_service").Logger(),
		tracer:        otel.Tracer("github.com/astacala/rescue-api/internal/service/forum"),
		sanitizer:     policy,
		now:           time.Now,
	}
}

func (s *forumService) ListThread(ctx context.Context, reportID uint) ([]dto.ForumMessageResponse, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return BuildForumTree(messages), nil
}

func (s *forumService) Create(ctx context.Context, actor Principal, reportID uint, payload dto.ForumMessageCreateRequest) (dto.ForumMessageResponse, error) {
	payload.PriorityLevel = strings.ToUpper(strings.TrimSpace(payload.PriorityLevel))
	if err := s.validator.Struct(payload); err != nil {
		return dto.ForumMessageResponse{}, err
	}

	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if sanitized == "" {
		return dto.ForumMessageResponse{}, ErrEmptyContent
	}

	spanCtx, span := s.tracer.Start(ctx, "forum.create", trace.WithAttributes(
		attribute.Int64("forum.report_id", int64(reportID)),
		attribute.Int64("forum.author_id", int64(actor.UserID)),
	))
	defer span.End()

	report, err := s.reports.GetByID(spanCtx, reportID)
	if err != nil {
		return dto.ForumMessageResponse{}, err
	}

	var parent *models.ForumMessage
	if payload.ParentMessageID != nil {
		found, err := s.repo.GetByID(spanCtx, *payload.ParentMessageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ForumMessageResponse{}, ErrInvalidParent
			}
			return dto.ForumMessageResponse{}, err
		}
		if found.DisasterReportID != reportID {
			return dto.ForumMessageResponse{}, ErrInvalidParent
		}
		parent = &found
	}

	priority := payload.PriorityLevel
	if priority == "" {
		priority = models.PriorityNormal
	}

	message := models.ForumMessage{
		DisasterReportID: reportID,
		UserID:           actor.UserID,
		ParentMessageID:  payload.ParentMessageID,
		Message:          sanitized,
		PriorityLevel:    priority,
	}
	if err := s.repo.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.ForumMessageResponse{}, err
	}

	stored, err := s.repo.GetByID(spanCtx, message.ID)
	if err != nil {
		return dto.ForumMessageResponse{}, err
	}
	response := dto.NewForumMessageResponse(stored)

	s.dispatchNotifications(spanCtx, report, parent, stored)

	if priority == models.PriorityUrgent && s.broadcaster != nil {
		s.broadcaster.Broadcast(spanCtx, EventAdminNotification, map[string]interface{}{
			"type":       models.NotificationForumMessage,
			"title":      "Urgent forum message",
			"report_id":  reportID,
			"message_id": stored.ID,
			"message":    stored.Message,
			"priority":   priority,
		}, ChannelAdminDashboard)
	}

	s.logger.Info().Uint("message_id", stored.ID).Uint("report_id", reportID).Str("priority", priority).Msg("forum message posted")
	return response, nil
}

func (s *forumService) Update(ctx context.Context, actor Principal, id uint, payload dto.ForumMessageUpdateRequest) (dto.ForumMessageResponse, error) {
	payload.PriorityLevel = strings.ToUpper(strings.TrimSpace(payload.PriorityLevel))
	if err := s.validator.Struct(payload); err != nil {
		return dto.ForumMessageResponse{}, err
	}

	message, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ForumMessageResponse{}, err
	}
	if message.UserID != actor.UserID {
		return dto.ForumMessageResponse{}, ErrForbidden
	}

	now := s.now()
	if now.Sub(message.CreatedAt) > ForumEditWindow {
		return dto.ForumMessageResponse{}, ErrEditWindowClosed
	}

	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if sanitized == "" {
		return dto.ForumMessageResponse{}, ErrEmptyContent
	}

	message.Message = sanitized
	if payload.PriorityLevel != "" {
		message.PriorityLevel = payload.PriorityLevel
	}
	message.EditedAt = &now

	if err := s.repo.Update(ctx, &message); err != nil {
		return dto.ForumMessageResponse{}, err
	}

	return dto.NewForumMessageResponse(message), nil
}

func (s *forumService) Delete(ctx context.Context, actor Principal, id uint) error {
	message, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if message.UserID != actor.UserID && !strings.EqualFold(actor.Role, models.RoleAdmin) {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *forumService) MarkRead(ctx context.Context, actor Principal, reportID uint) (int64, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return 0, err
	}
	return s.repo.MarkReportRead(ctx, reportID, actor.UserID, s.now())
}

// dispatchNotifications tells the reporter and the parent author, never the sender.
func (s *forumService) dispatchNotifications(ctx context.Context, report models.DisasterReport, parent *models.ForumMessage, message models.ForumMessage) {
	if s.notifications == nil {
		return
	}

	targets := make([]uint, 0, 2)
	if report.ReportedBy != message.UserID {
		targets = append(targets, report.ReportedBy)
	}
	if parent != nil && parent.UserID != message.UserID {
		targets = append(targets, parent.UserID)
	}
	if len(targets) == 0 {
		return
	}

	author := message.User.Name
	if author == "" {
		author = "A team member"
	}

	reportID := report.ID
	_, err := s.notifications.NotifyUsers(ctx, targets, dto.NotificationCreateRequest{
		Title:           fmt.Sprintf("New message on \"%s\"", report.Title),
		Message:         fmt.Sprintf("%s: %s", author, truncate(message.Message, 160)),
		Type:            models.NotificationForumMessage,
		Priority:        message.PriorityLevel,
		RelatedReportID: &reportID,
		ActionURL:       fmt.Sprintf("/reports/%d/forum", report.ID),
		Data:            map[string]interface{}{"message_id": message.ID},
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("message_id", message.ID).Msg("failed to publish forum notifications")
	}
}

// BuildForumTree nests replies under their parents; replies whose parent is missing surface at the top level.
func BuildForumTree(messages []models.ForumMessage) []dto.ForumMessageResponse {
	present := make(map[uint]struct{}, len(messages))
	for _, message := range messages {
		present[message.ID] = struct{}{}
	}

	children := make(map[uint][]models.ForumMessage)
	roots := make([]models.ForumMessage, 0)
	for _, message := range messages {
		if message.ParentMessageID != nil {
			if _, ok := present[*message.ParentMessageID]; ok && *message.ParentMessageID != message.ID {
				children[*message.ParentMessageID] = append(children[*message.ParentMessageID], message)
				continue
			}
		}
		roots = append(roots, message)
	}

	visited := make(map[uint]struct{}, len(messages))
	var build func(message models.ForumMessage) dto.ForumMessageResponse
	build = func(message models.ForumMessage) dto.ForumMessageResponse {
		visited[message.ID] = struct{}{}
		node := dto.NewForumMessageResponse(message)
		for _, child := range children[message.ID] {
			if _, seen := visited[child.ID]; seen {
				continue
			}
			node.Replies = append(node.Replies, build(child))
		}
		return node
	}

	out := make([]dto.ForumMessageResponse, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

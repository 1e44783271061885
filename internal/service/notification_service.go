package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/observability"
	"github.com/astacala/rescue-api/internal/repository"
)

const notificationBufferSize = 16

// NotificationPublisher exposes the subset of the notification service other services depend on.
type NotificationPublisher interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	NotifyUsers(ctx context.Context, userIDs []uint, payload dto.NotificationCreateRequest) (int, error)
	NotifyRoles(ctx context.Context, roles []string, payload dto.NotificationCreateRequest) (int, error)
}

// NotificationService persists notifications and streams them to users via SSE and broadcast channels.
type NotificationService interface {
	NotificationPublisher
	Broadcast(ctx context.Context, payload dto.NotificationBroadcastRequest) (int, error)
	List(ctx context.Context, userID uint, query dto.NotificationListQuery) ([]dto.NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id, userID uint) error
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	users       repository.UserRepository
	broadcaster EventBroadcaster
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
	now         func() time.Time
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, broadcaster EventBroadcaster, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		users:       users,
		broadcaster: broadcaster,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/astacala/rescue-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	model, err := s.buildModel(payload)
	if err != nil {
		return dto.NotificationResponse{}, err
	}

	attrs := []attribute.KeyValue{
		attribute.Int64("notification.user_id", int64(payload.UserID)),
		attribute.String("notification.type", payload.Type),
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(attrs...))
	defer span.End()

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.deliver(spanCtx, response)

	return response, nil
}

// NotifyUsers stores one notification per distinct recipient and delivers each.
func (s *notificationService) NotifyUsers(ctx context.Context, userIDs []uint, payload dto.NotificationCreateRequest) (int, error) {
	recipients := uniqueIDs(userIDs)
	if len(recipients) == 0 {
		return 0, nil
	}

	template := payload
	template.UserID = recipients[0]
	if err := s.validator.Struct(template); err != nil {
		return 0, err
	}

	base, err := s.buildModel(template)
	if err != nil {
		return 0, err
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.notify_users", trace.WithAttributes(
		attribute.Int("notification.recipients", len(recipients)),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	batch := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		item := base
		item.UserID = userID
		if base.Data != nil {
			item.Data = datatypes.JSONMap(copyMap(base.Data))
		}
		batch = append(batch, item)
	}

	if err := s.repo.CreateBatch(spanCtx, batch); err != nil {
		span.RecordError(err)
		return 0, err
	}

	for _, item := range batch {
		s.deliver(spanCtx, dto.NewNotificationResponse(item))
	}

	return len(batch), nil
}

func (s *notificationService) NotifyRoles(ctx context.Context, roles []string, payload dto.NotificationCreateRequest) (int, error) {
	users, err := s.users.ListActiveByRoles(ctx, roles...)
	if err != nil {
		return 0, err
	}

	ids := make([]uint, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}

	return s.NotifyUsers(ctx, ids, payload)
}

// Broadcast sends a system notification to every active user holding one of the roles; no roles means everyone.
func (s *notificationService) Broadcast(ctx context.Context, payload dto.NotificationBroadcastRequest) (int, error) {
	roles := make([]string, 0, len(payload.Roles))
	for _, role := range payload.Roles {
		roles = append(roles, strings.ToUpper(strings.TrimSpace(role)))
	}
	payload.Roles = roles
	payload.Priority = strings.ToUpper(strings.TrimSpace(payload.Priority))

	if err := s.validator.Struct(payload); err != nil {
		return 0, err
	}

	return s.NotifyRoles(ctx, roles, dto.NotificationCreateRequest{
		Title:    payload.Title,
		Message:  payload.Message,
		Type:     models.NotificationSystem,
		Priority: payload.Priority,
	})
}

func (s *notificationService) List(ctx context.Context, userID uint, query dto.NotificationListQuery) ([]dto.NotificationResponse, int64, error) {
	if userID == 0 {
		return nil, 0, errors.New("user id is required")
	}

	notifications, total, err := s.repo.ListByUser(ctx, userID, repository.NotificationFilter{
		UnreadOnly: query.UnreadOnly,
		Page:       query.Page,
		PerPage:    query.PerPage,
	})
	if err != nil {
		return nil, 0, err
	}

	return dto.NewNotificationResponseSlice(notifications), total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID, s.now())
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

func (s *notificationService) Delete(ctx context.Context, id, userID uint) error {
	return s.repo.Delete(ctx, id, userID)
}

func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userID, channel)
	observability.SSEClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(userID, channel)
			observability.SSEClientsActive().Dec()
		})
	}

	return channel, cleanup
}

func (s *notificationService) buildModel(payload dto.NotificationCreateRequest) (models.Notification, error) {
	cleanTitle := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if cleanTitle == "" || cleanMessage == "" {
		return models.Notification{}, ErrEmptyContent
	}

	priority := strings.ToUpper(strings.TrimSpace(payload.Priority))
	if priority == "" {
		priority = models.PriorityNormal
	}

	model := models.Notification{
		UserID:          payload.UserID,
		Title:           cleanTitle,
		Message:         cleanMessage,
		Type:            payload.Type,
		Priority:        priority,
		IsRead:          false,
		RelatedReportID: payload.RelatedReportID,
		ActionURL:       payload.ActionURL,
	}
	if len(payload.Data) > 0 {
		model.Data = datatypes.JSONMap(payload.Data)
	}

	return model, nil
}

// deliver pushes to local SSE subscribers, the user's broadcast channel and other nodes.
func (s *notificationService) deliver(ctx context.Context, notification dto.NotificationResponse) {
	s.broker.broadcast(notification.UserID, notification)
	observability.NotificationsPublishedTotal().WithLabelValues(notification.Type).Inc()

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, EventAdminNotification, notification, UserChannel(notification.UserID))
	}

	if err := s.publish(ctx, notification); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       s.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	notification := event.Notification
	if notification.Type == "" {
		notification.Type = models.NotificationSystem
	}

	observability.NotificationsPublishedTotal().WithLabelValues(notification.Type).Inc()
	s.broker.broadcast(notification.UserID, notification)
}

func (b *notificationBroker) subscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *notificationBroker) broadcast(userID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- notification:
		default:
		}
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

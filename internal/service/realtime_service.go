package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/observability"
)

// Broadcast channels and events.
const (
	ChannelAdminDashboard = "admin-dashboard"

	EventReportSubmitted   = "disaster-report-submitted"
	EventReportVerified    = "report-verified"
	EventAdminNotification = "admin-notification"
)

const (
	realtimeSendBufferSize = 32
	realtimePingInterval   = 30 * time.Second
	realtimeWriteWait      = 10 * time.Second
	realtimePongWait       = 2 * realtimePingInterval
)

var (
	// ErrUnknownChannel indicates a subscription to a channel that does not exist.
	ErrUnknownChannel = errors.New("unknown broadcast channel")
	// ErrChannelForbidden indicates the subscriber may not listen on the channel.
	ErrChannelForbidden = errors.New("not authorised for channel")
)

// UserChannel names the private channel of a user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("user.%d", userID)
}

// EventBroadcaster delivers named events on realtime channels.
type EventBroadcaster interface {
	Broadcast(ctx context.Context, event string, data interface{}, channels ...string)
}

// RealtimeConnectionOptions wraps metadata extracted during the websocket upgrade.
type RealtimeConnectionOptions struct {
	UserID    uint
	Role      string
	Channel   string
	RequestID string
}

// RealtimeService authorises channel subscriptions and fans broadcast events out to subscribers.
type RealtimeService interface {
	EventBroadcaster
	Authorize(userID uint, role, channel string) error
	Subscribe(channel string) (<-chan dto.BroadcastEvent, func())
	ServeConnection(conn *websocket.Conn, opts RealtimeConnectionOptions)
	Start(ctx context.Context)
}

type realtimeService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	hub          *channelHub
	nodeID       string
	writeWait    time.Duration
	pongWait     time.Duration
	now          func() time.Time
}

// realtimeConn is the part of a websocket connection the subscriber loop drives.
type realtimeConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

type channelHub struct {
	mu       sync.RWMutex
	channels map[string]map[chan dto.BroadcastEvent]struct{}
	log      zerolog.Logger
}

type broadcastEnvelope struct {
	Source string             `json:"source"`
	Event  dto.BroadcastEvent `json:"event"`
}

// NewRealtimeService constructs the broadcaster. Redis and NATS are optional fan-out transports.
func NewRealtimeService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) RealtimeService {
	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":broadcast"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".broadcast"
	}

	return &realtimeService{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		logger:       logger.With().Str("component", "realtime_service").Logger(),
		hub: &channelHub{
			channels: make(map[string]map[chan dto.BroadcastEvent]struct{}),
			log:      logger.With().Str("component", "realtime_hub").Logger(),
		},
		nodeID:    uuid.NewString(),
		writeWait: realtimeWriteWait,
		pongWait:  realtimePongWait,
		now:       time.Now,
	}
}

func (s *realtimeService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Authorize allows admin-dashboard to staff and user.{id} to that user only.
func (s *realtimeService) Authorize(userID uint, role, channel string) error {
	channel = strings.TrimSpace(channel)
	if channel == ChannelAdminDashboard {
		if models.IsStaffRole(role) {
			return nil
		}
		return ErrChannelForbidden
	}

	if strings.HasPrefix(channel, "user.") {
		id, err := strconv.ParseUint(strings.TrimPrefix(channel, "user."), 10, 64)
		if err != nil {
			return ErrUnknownChannel
		}
		if uint(id) == userID {
			return nil
		}
		return ErrChannelForbidden
	}

	return ErrUnknownChannel
}

func (s *realtimeService) Broadcast(ctx context.Context, event string, data interface{}, channels ...string) {
	for _, channel := range channels {
		message := dto.BroadcastEvent{
			Event:   event,
			Channel: channel,
			Data:    data,
			SentAt:  s.now().UTC(),
		}

		s.hub.broadcast(message)
		observability.BroadcastEvents().WithLabelValues(event, "local").Inc()

		if err := s.publish(ctx, message); err != nil {
			s.logger.Warn().Err(err).Str("event", event).Str("channel", channel).Msg("failed to fan out broadcast event")
		}
	}
}

func (s *realtimeService) Subscribe(channel string) (<-chan dto.BroadcastEvent, func()) {
	ch := make(chan dto.BroadcastEvent, realtimeSendBufferSize)
	s.hub.subscribe(channel, ch)

	var once sync.Once
	return ch, func() {
		once.Do(func() { s.hub.unsubscribe(channel, ch) })
	}
}

// ServeConnection streams channel events to the websocket until the peer disconnects.
func (s *realtimeService) ServeConnection(conn *websocket.Conn, opts RealtimeConnectionOptions) {
	s.serve(conn, opts)
}

func (s *realtimeService) serve(conn realtimeConn, opts RealtimeConnectionOptions) {
	events, cleanup := s.Subscribe(opts.Channel)
	defer cleanup()

	observability.RealtimeConnectionsActive().Inc()
	defer observability.RealtimeConnectionsActive().Dec()

	logger := s.logger.With().Uint("user_id", opts.UserID).Str("channel", opts.Channel).Str("request_id", opts.RequestID).Logger()
	logger.Debug().Msg("realtime subscriber connected")

	// Peers that stop answering pings are dropped once the read deadline passes.
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Debug().Err(err).Msg("realtime read loop ended")
				return
			}
		}
	}()

	ticker := time.NewTicker(realtimePingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("realtime write loop terminated")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("realtime ping failed")
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *realtimeService) publish(ctx context.Context, event dto.BroadcastEvent) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(broadcastEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
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

func (s *realtimeService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("broadcast redis subscription closed")
			return
		}
		s.handleRemote([]byte(msg.Payload))
	}
}

func (s *realtimeService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleRemote(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats broadcast subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain broadcast nats subscription")
		}
	}()
}

func (s *realtimeService) handleRemote(payload []byte) {
	var envelope broadcastEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid broadcast payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	observability.BroadcastEvents().WithLabelValues(envelope.Event.Event, "remote").Inc()
	s.hub.broadcast(envelope.Event)
}

func (h *channelHub) subscribe(channel string, ch chan dto.BroadcastEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.channels[channel]; !exists {
		h.channels[channel] = make(map[chan dto.BroadcastEvent]struct{})
	}
	h.channels[channel][ch] = struct{}{}
}

func (h *channelHub) unsubscribe(channel string, ch chan dto.BroadcastEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.channels[channel]; ok {
		if _, present := subscribers[ch]; present {
			delete(subscribers, ch)
			close(ch)
		}
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
}

func (h *channelHub) broadcast(event dto.BroadcastEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.channels[event.Channel] {
		select {
		case ch <- event:
		default:
			h.log.Warn().Str("channel", event.Channel).Str("event", event.Event).Msg("dropping broadcast event for slow subscriber")
		}
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/observability"
	"github.com/astacala/rescue-api/internal/repository"
)

// ClientBlocker tracks blocked client addresses and failed login attempts.
type ClientBlocker interface {
	IsBlocked(ctx context.Context, ip string) (bool, error)
	Block(ctx context.Context, ip, reason string) error
	Unblock(ctx context.Context, ip string) (bool, error)
	RegisterFailedLogin(ctx context.Context, ip string) (bool, error)
	ResetFailedLogins(ctx context.Context, ip string) error
}

// SecurityService records suspicious activity and manages the client block list.
type SecurityService interface {
	ClientBlocker
	Record(ctx context.Context, event models.SecurityEvent)
	ListEvents(ctx context.Context, query dto.SecurityEventListQuery) ([]dto.SecurityEventResponse, int64, error)
}

// SecurityOptions tunes blocking behaviour.
type SecurityOptions struct {
	KeyPrefix            string
	BlockTTL             time.Duration
	FailedLoginThreshold int
}

type securityService struct {
	repo      repository.SecurityEventRepository
	redis     *redis.Client
	prefix    string
	blockTTL  time.Duration
	threshold int
	logger    zerolog.Logger
	local     *localBlockStore
	now       func() time.Time
}

type localBlockStore struct {
	mu       sync.Mutex
	blocked  map[string]time.Time
	failures map[string]localCounter
}

type localCounter struct {
	count   int
	expires time.Time
}

// NewSecurityService builds the security service; without Redis the block list lives in process memory.
func NewSecurityService(repo repository.SecurityEventRepository, redisClient *redis.Client, opts SecurityOptions, logger zerolog.Logger) SecurityService {
	if opts.BlockTTL <= 0 {
		opts.BlockTTL = time.Hour
	}
	if opts.FailedLoginThreshold <= 0 {
		opts.FailedLoginThreshold = 10
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "astacala"
	}

	return &securityService{
		repo:      repo,
		redis:     redisClient,
		prefix:    opts.KeyPrefix,
		blockTTL:  opts.BlockTTL,
		threshold: opts.FailedLoginThreshold,
		logger:    logger.With().Str("component", "security_service").Logger(),
		local: &localBlockStore{
			blocked:  make(map[string]time.Time),
			failures: make(map[string]localCounter),
		},
		now: time.Now,
	}
}

func (s *securityService) blockKey(ip string) string {
	return s.prefix + ":security:blocked:" + ip
}

func (s *securityService) failureKey(ip string) string {
	return s.prefix + ":security:failed_login:" + ip
}

func (s *securityService) IsBlocked(ctx context.Context, ip string) (bool, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return false, nil
	}

	if s.redis == nil {
		return s.local.isBlocked(ip, s.now()), nil
	}

	exists, err := s.redis.Exists(ctx, s.blockKey(ip)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *securityService) Block(ctx context.Context, ip, reason string) error {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return errors.New("ip address is required")
	}

	if s.redis == nil {
		s.local.block(ip, s.now().Add(s.blockTTL))
	} else if err := s.redis.Set(ctx, s.blockKey(ip), reason, s.blockTTL).Err(); err != nil {
		return err
	}

	s.logger.Warn().Str("ip", ip).Str("reason", reason).Dur("ttl", s.blockTTL).Msg("client blocked")
	s.Record(ctx, models.SecurityEvent{
		IPAddress: ip,
		Kind:      models.SecurityEventBlocked,
		Details:   map[string]interface{}{"reason": reason, "ttl_seconds": int64(s.blockTTL.Seconds())},
	})
	return nil
}

func (s *securityService) Unblock(ctx context.Context, ip string) (bool, error) {
	ip = strings.TrimSpace(ip)
	if s.redis == nil {
		return s.local.unblock(ip), nil
	}

	removed, err := s.redis.Del(ctx, s.blockKey(ip), s.failureKey(ip)).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// RegisterFailedLogin increments the per-address counter and blocks once the threshold is reached.
func (s *securityService) RegisterFailedLogin(ctx context.Context, ip string) (bool, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return false, nil
	}

	var attempts int64
	if s.redis == nil {
		attempts = int64(s.local.increment(ip, s.now(), s.blockTTL))
	} else {
		key := s.failureKey(ip)
		count, err := s.redis.Incr(ctx, key).Result()
		if err != nil {
			return false, err
		}
		if count == 1 {
			if err := s.redis.Expire(ctx, key, s.blockTTL).Err(); err != nil {
				return false, err
			}
		}
		attempts = count
	}

	s.Record(ctx, models.SecurityEvent{
		IPAddress: ip,
		Kind:      models.SecurityEventFailedLogin,
		Details:   map[string]interface{}{"attempts": attempts},
	})

	if attempts < int64(s.threshold) {
		return false, nil
	}

	if err := s.Block(ctx, ip, "too many failed login attempts"); err != nil {
		return false, err
	}
	return true, nil
}

func (s *securityService) ResetFailedLogins(ctx context.Context, ip string) error {
	ip = strings.TrimSpace(ip)
	if s.redis == nil {
		s.local.reset(ip)
		return nil
	}
	return s.redis.Del(ctx, s.failureKey(ip)).Err()
}

// Record persists the event and logs persistence failures.
func (s *securityService) Record(ctx context.Context, event models.SecurityEvent) {
	observability.SecurityEvents().WithLabelValues(event.Kind).Inc()

	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, &event); err != nil {
		s.logger.Error().Err(err).Str("kind", event.Kind).Str("ip", event.IPAddress).Msg("failed to persist security event")
	}
}

func (s *securityService) ListEvents(ctx context.Context, query dto.SecurityEventListQuery) ([]dto.SecurityEventResponse, int64, error) {
	events, total, err := s.repo.List(ctx, repository.SecurityEventFilter{
		IPAddress: strings.TrimSpace(query.IPAddress),
		Kind:      strings.TrimSpace(query.Kind),
		Page:      query.Page,
		PerPage:   query.PerPage,
	})
	if err != nil {
		return nil, 0, err
	}
	return dto.NewSecurityEventResponseSlice(events), total, nil
}

func (l *localBlockStore) isBlocked(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.blocked[ip]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(l.blocked, ip)
		return false
	}
	return true
}

func (l *localBlockStore) block(ip string, until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocked[ip] = until
}

func (l *localBlockStore) unblock(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.blocked[ip]
	delete(l.blocked, ip)
	delete(l.failures, ip)
	return ok
}

func (l *localBlockStore) increment(ip string, now time.Time, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counter := l.failures[ip]
	if counter.expires.IsZero() || now.After(counter.expires) {
		counter = localCounter{expires: now.Add(window)}
	}
	counter.count++
	l.failures[ip] = counter
	return counter.count
}

func (l *localBlockStore) reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, ip)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/observability"
	"github.com/astacala/rescue-api/internal/repository"
)

const dashboardTrendDays = 7

// DashboardService aggregates statistics for the admin dashboard.
type DashboardService interface {
	Statistics(ctx context.Context) (dto.DashboardStatisticsResponse, error)
	Invalidate(ctx context.Context)
}

type dashboardService struct {
	repo          repository.DashboardRepository
	reports       repository.ReportRepository
	publications  repository.PublicationRepository
	notifications repository.NotificationRepository
	cache         *redis.Client
	cacheKey      string
	cacheTTL      time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewDashboardService constructs the dashboard service. A nil cache disables caching.
func NewDashboardService(repo repository.DashboardRepository, reports repository.ReportRepository, publications repository.PublicationRepository, notifications repository.NotificationRepository, cache *redis.Client, keyPrefix string, ttl time.Duration, logger zerolog.Logger) DashboardService {
	if keyPrefix == "" {
		keyPrefix = "astacala"
	}
	return &dashboardService{
		repo:          repo,
		reports:       reports,
		publications:  publications,
		notifications: notifications,
		cache:         cache,
		cacheKey:      keyPrefix + ":dashboard:statistics",
		cacheTTL:      ttl,
		logger:        logger.With().Str("component", "dashboard_service").Logger(),
		now:           time.Now,
	}
}

func (s *dashboardService) Statistics(ctx context.Context) (dto.DashboardStatisticsResponse, error) {
	tracer := otel.Tracer("github.com/astacala/rescue-api/internal/service/dashboard")
	ctx, span := tracer.Start(ctx, "dashboard.aggregate")
	span.SetAttributes(attribute.String("dashboard.cache_key", s.cacheKey))
	defer span.End()

	if s.cache != nil && s.cacheTTL > 0 {
		cached, err := s.cache.Get(ctx, s.cacheKey).Result()
		if err == nil {
			var response dto.DashboardStatisticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
				observability.DashboardCache().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
			span.RecordError(err)
		}
		observability.DashboardCache().WithLabelValues("miss").Inc()
	}

	stats, err := s.aggregate(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dashboard_aggregate_failed")
		return dto.DashboardStatisticsResponse{}, err
	}
	span.SetAttributes(attribute.Int64("dashboard.total_reports", stats.TotalReports))

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(stats)
		if err == nil {
			if err := s.cache.Set(ctx, s.cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
				span.RecordError(err)
			}
		}
	}

	return stats, nil
}

// Invalidate drops the cached statistics so the next call recomputes them.
func (s *dashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}

func (s *dashboardService) aggregate(ctx context.Context) (dto.DashboardStatisticsResponse, error) {
	byStatus, err := s.reports.CountGrouped(ctx, "status", nil)
	if err != nil {
		return dto.DashboardStatisticsResponse{}, err
	}
	bySeverity, err := s.reports.CountGrouped(ctx, "severity_level", nil)
	if err != nil {
		return dto.DashboardStatisticsResponse{}, err
	}
	byType, err := s.reports.CountGrouped(ctx, "disaster_type", nil)
	if err != nil {
		return dto.DashboardStatisticsResponse{}, err
	}

	volunteers, err := s.repo.CountActiveVolunteers(ctx)
	if err != nil {
		return dto.DashboardStatisticsResponse{}, err
	}
	users, err := s.repo.CountUsers(ctx)
	if err != nil {
		return dto.DashboardStatisticsResponse{}, err
	}
	published, err := s.publications.CountByStatus(ctx, models.PublicationPublished)
	if err != nil {
		return dto.DashboardStatisticsResponse{}, err
	}
	unread, err := s.notifications.CountAllUnread(ctx)
	if err != nil {
		return dto.DashboardStatisticsResponse{}, err
	}

	now := s.now().UTC()
	start := startOfDay(now).AddDate(0, 0, -(dashboardTrendDays - 1))
	timestamps, err := s.repo.ListReportTimestampsSince(ctx, start)
	if err != nil {
		return dto.DashboardStatisticsResponse{}, err
	}

	byStatus = withZeroKeys(byStatus, models.ReportStatuses)
	bySeverity = withZeroKeys(bySeverity, models.SeverityLevels)
	byType = withZeroKeys(byType, models.DisasterTypes)

	var total int64
	for _, count := range byStatus {
		total += count
	}

	return dto.DashboardStatisticsResponse{
		TotalReports:        total,
		PendingReports:      byStatus[models.ReportStatusPending],
		VerifiedReports:     byStatus[models.ReportStatusVerified],
		CriticalReports:     bySeverity[models.SeverityCritical],
		ByStatus:            byStatus,
		BySeverity:          bySeverity,
		ByType:              byType,
		LastSevenDays:       dailyBuckets(start, dashboardTrendDays, timestamps),
		ActiveVolunteers:    volunteers,
		TotalUsers:          users,
		PublishedArticles:   published,
		UnreadNotifications: unread,
		GeneratedAt:         now,
		CacheHit:            false,
	}, nil
}

// dailyBuckets counts timestamps per UTC day for days consecutive days from start, oldest first.
func dailyBuckets(start time.Time, days int, timestamps []time.Time) []dto.DailyReportPoint {
	points := make([]dto.DailyReportPoint, days)
	for i := range points {
		points[i].Date = start.AddDate(0, 0, i).Format("2006-01-02")
	}
	for _, ts := range timestamps {
		offset := int(startOfDay(ts.UTC()).Sub(start).Hours() / 24)
		if offset < 0 || offset >= days {
			continue
		}
		points[offset].Reports++
	}
	return points
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

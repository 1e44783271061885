package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
)

// ReportService exposes the disaster report lifecycle.
type ReportService interface {
	List(ctx context.Context, query dto.ReportListQuery) ([]dto.ReportResponse, int64, error)
	Get(ctx context.Context, id uint) (dto.ReportResponse, error)
	Create(ctx context.Context, actor Principal, payload dto.ReportCreateRequest) (dto.ReportResponse, error)
	Update(ctx context.Context, actor Principal, id uint, payload dto.ReportUpdateRequest) (dto.ReportResponse, error)
	Delete(ctx context.Context, actor Principal, id uint) error
	Verify(ctx context.Context, actor Principal, id uint, payload dto.ReportVerifyRequest) (dto.ReportResponse, error)
	Statistics(ctx context.Context, actor Principal) (dto.ReportStatisticsResponse, error)
}

// StatisticsInvalidator drops cached aggregates after the report set changes.
type StatisticsInvalidator interface {
	Invalidate(ctx context.Context)
}

// ReportOption customises the report service.
type ReportOption func(*reportService)

// WithStatisticsInvalidator makes every report write drop the cached dashboard statistics.
func WithStatisticsInvalidator(invalidator StatisticsInvalidator) ReportOption {
	return func(s *reportService) {
		s.invalidator = invalidator
	}
}

type reportService struct {
	repo          repository.ReportRepository
	forum         repository.ForumRepository
	notifications NotificationPublisher
	broadcaster   EventBroadcaster
	invalidator   StatisticsInvalidator
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo repository.ReportRepository, forum repository.ForumRepository, notifications NotificationPublisher, broadcaster EventBroadcaster, validate *validator.Validate, logger zerolog.Logger, opts ...ReportOption) ReportService {
	svc := &reportService{
		repo:          repo,
		forum:         forum,
		notifications: notifications,
		broadcaster:   broadcaster,
		validator:     validate,
		logger:        logger.With().Str("component", "report_service").Logger(),
		tracer:        otel.Tracer("github.com/astacala/rescue-api/internal/service/report"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *reportService) List(ctx context.Context, query dto.ReportListQuery) ([]dto.ReportResponse, int64, error) {
	reports, total, err := s.repo.List(ctx, repository.ReportFilter{
		Status:        strings.TrimSpace(query.Status),
		DisasterType:  strings.TrimSpace(query.DisasterType),
		SeverityLevel: strings.TrimSpace(query.SeverityLevel),
		ReporterID:    query.ReporterID,
		Search:        strings.TrimSpace(query.Search),
		Page:          query.Page,
		PerPage:       query.PerPage,
	})
	if err != nil {
		return nil, 0, err
	}
	return dto.NewReportResponseSlice(reports), total, nil
}

func (s *reportService) Get(ctx context.Context, id uint) (dto.ReportResponse, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	response := dto.NewReportResponse(report)
	if s.forum != nil {
		count, err := s.forum.CountByReport(ctx, id)
		if err != nil {
			return dto.ReportResponse{}, err
		}
		response.MessageCount = &count
	}

	return response, nil
}

func (s *reportService) Create(ctx context.Context, actor Principal, payload dto.ReportCreateRequest) (dto.ReportResponse, error) {
	payload.DisasterType = strings.ToUpper(strings.TrimSpace(payload.DisasterType))
	payload.SeverityLevel = strings.ToUpper(strings.TrimSpace(payload.SeverityLevel))
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "reports.create", trace.WithAttributes(
		attribute.Int64("report.reporter_id", int64(actor.UserID)),
		attribute.String("report.severity", payload.SeverityLevel),
	))
	defer span.End()

	incident := s.now()
	if payload.IncidentTimestamp != nil && !payload.IncidentTimestamp.IsZero() {
		incident = *payload.IncidentTimestamp
	}

	report := models.DisasterReport{
		Title:             strings.TrimSpace(payload.Title),
		Description:       strings.TrimSpace(payload.Description),
		DisasterType:      payload.DisasterType,
		SeverityLevel:     payload.SeverityLevel,
		Status:            models.ReportStatusPending,
		Latitude:          payload.Latitude,
		Longitude:         payload.Longitude,
		LocationName:      strings.TrimSpace(payload.LocationName),
		Address:           strings.TrimSpace(payload.Address),
		IncidentTimestamp: incident,
		TeamName:          strings.TrimSpace(payload.TeamName),
		PersonnelCount:    payload.PersonnelCount,
		CasualtyCount:     payload.CasualtyCount,
		ReportedBy:        actor.UserID,
	}
	if len(payload.Metadata) > 0 {
		report.Metadata = datatypes.JSONMap(payload.Metadata)
	}

	if err := s.repo.Create(spanCtx, &report); err != nil {
		span.RecordError(err)
		return dto.ReportResponse{}, err
	}

	created, err := s.repo.GetByID(spanCtx, report.ID)
	if err != nil {
		return dto.ReportResponse{}, err
	}
	response := dto.NewReportResponse(created)
	s.invalidateStatistics(spanCtx)

	s.logger.Info().Uint("report_id", report.ID).Uint("reporter_id", actor.UserID).Str("severity", report.SeverityLevel).Msg("disaster report submitted")

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(spanCtx, EventReportSubmitted, response, ChannelAdminDashboard)
	}
	s.notifyStaff(spanCtx, created)

	return response, nil
}

func (s *reportService) Update(ctx context.Context, actor Principal, id uint, payload dto.ReportUpdateRequest) (dto.ReportResponse, error) {
	payload.Status = upperPtr(payload.Status)
	payload.DisasterType = upperPtr(payload.DisasterType)
	payload.SeverityLevel = upperPtr(payload.SeverityLevel)
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}

	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	staff := models.IsStaffRole(actor.Role)
	if report.ReportedBy != actor.UserID && !staff {
		return dto.ReportResponse{}, ErrForbidden
	}
	statusChange := payload.Status != nil && *payload.Status != report.Status
	if (statusChange || payload.AssignedTo != nil) && !staff {
		return dto.ReportResponse{}, ErrForbidden
	}

	applyReportUpdate(&report, payload)

	if err := s.repo.Update(ctx, &report); err != nil {
		return dto.ReportResponse{}, err
	}
	s.invalidateStatistics(ctx)

	return s.Get(ctx, id)
}

func (s *reportService) Delete(ctx context.Context, actor Principal, id uint) error {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if report.ReportedBy != actor.UserID && !models.IsStaffRole(actor.Role) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateStatistics(ctx)

	s.logger.Info().Uint("report_id", id).Uint("actor_id", actor.UserID).Msg("disaster report deleted")
	return nil
}

// Verify records a staff decision and tells the reporter and the dashboard about it.
func (s *reportService) Verify(ctx context.Context, actor Principal, id uint, payload dto.ReportVerifyRequest) (dto.ReportResponse, error) {
	payload.Status = strings.ToUpper(strings.TrimSpace(payload.Status))
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}
	if !models.IsStaffRole(actor.Role) {
		return dto.ReportResponse{}, ErrForbidden
	}

	spanCtx, span := s.tracer.Start(ctx, "reports.verify", trace.WithAttributes(
		attribute.Int64("report.id", int64(id)),
		attribute.String("report.status", payload.Status),
	))
	defer span.End()

	report, err := s.repo.GetByID(spanCtx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	now := s.now()
	verifier := actor.UserID
	report.Status = payload.Status
	report.VerifiedBy = &verifier
	report.VerifiedAt = &now
	report.VerificationNotes = strings.TrimSpace(payload.Notes)

	if err := s.repo.Update(spanCtx, &report); err != nil {
		span.RecordError(err)
		return dto.ReportResponse{}, err
	}

	response := dto.NewReportResponse(report)
	s.invalidateStatistics(spanCtx)

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(spanCtx, EventReportVerified, response, UserChannel(report.ReportedBy), ChannelAdminDashboard)
	}

	if s.notifications != nil {
		notificationType := models.NotificationReportVerified
		title := "Laporan terverifikasi"
		if payload.Status == models.ReportStatusRejected {
			notificationType = models.NotificationReportRejected
			title = "Laporan ditolak"
		}
		reportID := report.ID
		message := fmt.Sprintf("Your report \"%s\" was marked %s.", report.Title, strings.ToLower(payload.Status))
		if report.VerificationNotes != "" {
			message += " Notes: " + report.VerificationNotes
		}
		if _, err := s.notifications.Publish(spanCtx, dto.NotificationCreateRequest{
			UserID:          report.ReportedBy,
			Title:           title,
			Message:         message,
			Type:            notificationType,
			Priority:        models.PriorityHigh,
			RelatedReportID: &reportID,
			ActionURL:       fmt.Sprintf("/reports/%d", report.ID),
		}); err != nil {
			s.logger.Warn().Err(err).Uint("report_id", report.ID).Msg("failed to notify reporter about verification")
		}
	}

	s.logger.Info().Uint("report_id", report.ID).Uint("verifier_id", verifier).Str("status", report.Status).Msg("disaster report verified")
	return response, nil
}

// Statistics aggregates every report for staff and only the caller's own reports otherwise.
func (s *reportService) Statistics(ctx context.Context, actor Principal) (dto.ReportStatisticsResponse, error) {
	var reporter *uint
	if !models.IsStaffRole(actor.Role) {
		id := actor.UserID
		reporter = &id
	}

	byStatus, err := s.repo.CountGrouped(ctx, "status", reporter)
	if err != nil {
		return dto.ReportStatisticsResponse{}, err
	}
	bySeverity, err := s.repo.CountGrouped(ctx, "severity_level", reporter)
	if err != nil {
		return dto.ReportStatisticsResponse{}, err
	}
	byType, err := s.repo.CountGrouped(ctx, "disaster_type", reporter)
	if err != nil {
		return dto.ReportStatisticsResponse{}, err
	}

	var total int64
	for _, count := range byStatus {
		total += count
	}

	return dto.ReportStatisticsResponse{
		Total:      total,
		ByStatus:   withZeroKeys(byStatus, models.ReportStatuses),
		BySeverity: withZeroKeys(bySeverity, models.SeverityLevels),
		ByType:     withZeroKeys(byType, models.DisasterTypes),
	}, nil
}

func (s *reportService) invalidateStatistics(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}

func (s *reportService) notifyStaff(ctx context.Context, report models.DisasterReport) {
	if s.notifications == nil {
		return
	}

	reportID := report.ID
	_, err := s.notifications.NotifyRoles(ctx, []string{models.RoleAdmin, models.RoleCoordinator}, dto.NotificationCreateRequest{
		Title:           "Laporan bencana baru",
		Message:         fmt.Sprintf("%s (%s, %s) needs verification.", report.Title, report.DisasterType, report.SeverityLevel),
		Type:            models.NotificationNewReport,
		Priority:        priorityForSeverity(report.SeverityLevel),
		RelatedReportID: &reportID,
		ActionURL:       fmt.Sprintf("/reports/%d", report.ID),
		Data:            map[string]interface{}{"report_id": report.ID, "severity_level": report.SeverityLevel},
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("report_id", report.ID).Msg("failed to notify staff about new report")
	}
}

func applyReportUpdate(report *models.DisasterReport, payload dto.ReportUpdateRequest) {
	if payload.Title != nil {
		report.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		report.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.DisasterType != nil {
		report.DisasterType = *payload.DisasterType
	}
	if payload.SeverityLevel != nil {
		report.SeverityLevel = *payload.SeverityLevel
	}
	if payload.Status != nil {
		report.Status = *payload.Status
	}
	if payload.Latitude != nil {
		report.Latitude = *payload.Latitude
	}
	if payload.Longitude != nil {
		report.Longitude = *payload.Longitude
	}
	if payload.LocationName != nil {
		report.LocationName = strings.TrimSpace(*payload.LocationName)
	}
	if payload.Address != nil {
		report.Address = strings.TrimSpace(*payload.Address)
	}
	if payload.TeamName != nil {
		report.TeamName = strings.TrimSpace(*payload.TeamName)
	}
	if payload.PersonnelCount != nil {
		report.PersonnelCount = *payload.PersonnelCount
	}
	if payload.CasualtyCount != nil {
		report.CasualtyCount = *payload.CasualtyCount
	}
	if payload.AssignedTo != nil {
		assignee := *payload.AssignedTo
		report.AssignedTo = &assignee
	}
	if payload.Metadata != nil {
		report.Metadata = datatypes.JSONMap(payload.Metadata)
	}
}

func upperPtr(value *string) *string {
	if value == nil {
		return nil
	}
	upper := strings.ToUpper(strings.TrimSpace(*value))
	return &upper
}

func priorityForSeverity(severity string) string {
	switch severity {
	case models.SeverityCritical:
		return models.PriorityUrgent
	case models.SeverityHigh:
		return models.PriorityHigh
	default:
		return models.PriorityNormal
	}
}

func withZeroKeys(counts map[string]int64, keys []string) map[string]int64 {
	out := make(map[string]int64, len(keys))
	for _, key := range keys {
		out[key] = counts[key]
	}
	for key, value := range counts {
		out[key] = value
	}
	return out
}

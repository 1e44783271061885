package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/models"
)

// DashboardRepository supplies aggregate counters for the administrator dashboard.
type DashboardRepository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountActiveVolunteers(ctx context.Context) (int64, error)
	ListReportTimestampsSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository constructs the dashboard repository.
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *dashboardRepository) CountActiveVolunteers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleVolunteer, true).
		Count(&count).Error
	return count, err
}

// ListReportTimestampsSince returns creation times so bucketing stays independent of SQL date functions.
func (r *dashboardRepository) ListReportTimestampsSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.DisasterReport{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &stamps).Error
	return stamps, err
}

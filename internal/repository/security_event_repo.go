package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/models"
)

// SecurityEventFilter narrows security event queries.
type SecurityEventFilter struct {
	IPAddress string
	Kind      string
	Page      int
	PerPage   int
}

// SecurityEventRepository persists suspicious-activity events.
type SecurityEventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) error
	List(ctx context.Context, filter SecurityEventFilter) ([]models.SecurityEvent, int64, error)
}

type securityEventRepository struct {
	db *gorm.DB
}

// NewSecurityEventRepository constructs the security event repository.
func NewSecurityEventRepository(db *gorm.DB) SecurityEventRepository {
	return &securityEventRepository{db: db}
}

func (r *securityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *securityEventRepository) List(ctx context.Context, filter SecurityEventFilter) ([]models.SecurityEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SecurityEvent{})

	if filter.IPAddress != "" {
		query = query.Where("ip_address = ?", filter.IPAddress)
	}

	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.SecurityEvent
	if err := paginate(query.Order("created_at DESC").Order("id DESC"), filter.Page, filter.PerPage).
		Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

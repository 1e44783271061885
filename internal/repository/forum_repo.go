package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/astacala/rescue-api/internal/models"
)

// ForumRepository persists per-report coordination messages.
type ForumRepository interface {
	ListByReport(ctx context.Context, reportID uint) ([]models.ForumMessage, error)
	CountByReport(ctx context.Context, reportID uint) (int64, error)
	GetByID(ctx context.Context, id uint) (models.ForumMessage, error)
	Create(ctx context.Context, message *models.ForumMessage) error
	Update(ctx context.Context, message *models.ForumMessage) error
	Delete(ctx context.Context, id uint) error
	MarkReportRead(ctx context.Context, reportID, readerID uint, at time.Time) (int64, error)
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository constructs a GORM-backed repository.
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

// ListByReport returns every message of the report, oldest first, with authors loaded.
func (r *forumRepository) ListByReport(ctx context.Context, reportID uint) ([]models.ForumMessage, error) {
	var messages []models.ForumMessage
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("disaster_report_id = ?", reportID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *forumRepository) CountByReport(ctx context.Context, reportID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ForumMessage{}).Where("disaster_report_id = ?", reportID).Count(&count).Error
	return count, err
}

func (r *forumRepository) GetByID(ctx context.Context, id uint) (models.ForumMessage, error) {
	var message models.ForumMessage
	if err := r.db.WithContext(ctx).Preload("User").First(&message, id).Error; err != nil {
		return models.ForumMessage{}, err
	}
	return message, nil
}

func (r *forumRepository) Create(ctx context.Context, message *models.ForumMessage) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

func (r *forumRepository) Update(ctx context.Context, message *models.ForumMessage) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(message).Error
}

// Delete soft deletes the message together with its direct replies.
func (r *forumRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.ForumMessage{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("parent_message_id = ?", id).Delete(&models.ForumMessage{}).Error
	})
}

// MarkReportRead flags messages written by other users as read.
func (r *forumRepository) MarkReportRead(ctx context.Context, reportID, readerID uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ForumMessage{}).
		Where("disaster_report_id = ? AND user_id <> ? AND is_read = ?", reportID, readerID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

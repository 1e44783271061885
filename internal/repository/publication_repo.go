package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/astacala/rescue-api/internal/models"
)

// PublicationFilter narrows publication listings.
type PublicationFilter struct {
	Status   string
	Category string
	Search   string
	Page     int
	PerPage  int
}

// PublicationRepository persists publications and reader comments.
type PublicationRepository interface {
	Create(ctx context.Context, publication *models.Publication) error
	GetByID(ctx context.Context, id uint) (models.Publication, error)
	List(ctx context.Context, filter PublicationFilter) ([]models.Publication, int64, error)
	Update(ctx context.Context, publication *models.Publication) error
	Delete(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	ReplaceReports(ctx context.Context, publication *models.Publication, reportIDs []uint) error
	CountByStatus(ctx context.Context, status string) (int64, error)

	CreateComment(ctx context.Context, comment *models.PublicationComment) error
	GetComment(ctx context.Context, id uint) (models.PublicationComment, error)
	ListComments(ctx context.Context, publicationID uint, status string) ([]models.PublicationComment, error)
	DeleteComment(ctx context.Context, id uint) error
}

type publicationRepository struct {
	db *gorm.DB
}

// NewPublicationRepository constructs a GORM-backed publication repository.
func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

func (r *publicationRepository) Create(ctx context.Context, publication *models.Publication) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(publication).Error
}

func (r *publicationRepository) GetByID(ctx context.Context, id uint) (models.Publication, error) {
	var publication models.Publication
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Reports").
		First(&publication, id).Error; err != nil {
		return models.Publication{}, err
	}
	return publication, nil
}

func (r *publicationRepository) List(ctx context.Context, filter PublicationFilter) ([]models.Publication, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Publication{})

	if filter.Status != "" {
		query = query.Where("status = ?", strings.ToLower(filter.Status))
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var publications []models.Publication
	if err := paginate(query.Order("COALESCE(published_at, created_at) DESC").Order("id DESC"), filter.Page, filter.PerPage).
		Preload("Author").
		Find(&publications).Error; err != nil {
		return nil, 0, err
	}

	return publications, total, nil
}

func (r *publicationRepository) Update(ctx context.Context, publication *models.Publication) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(publication).Error
}

func (r *publicationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Publication{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SlugExists checks slugs across soft-deleted rows too since the unique index still holds them.
func (r *publicationRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Unscoped().Model(&models.Publication{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *publicationRepository) ReplaceReports(ctx context.Context, publication *models.Publication, reportIDs []uint) error {
	reports := make([]models.DisasterReport, 0, len(reportIDs))
	if len(reportIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", reportIDs).Find(&reports).Error; err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Model(publication).Omit("Reports.*").Association("Reports").Replace(reports)
}

func (r *publicationRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Publication{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *publicationRepository) CreateComment(ctx context.Context, comment *models.PublicationComment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

func (r *publicationRepository) GetComment(ctx context.Context, id uint) (models.PublicationComment, error) {
	var comment models.PublicationComment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return models.PublicationComment{}, err
	}
	return comment, nil
}

// ListComments returns a flat, oldest-first list; an empty status returns every comment.
func (r *publicationRepository) ListComments(ctx context.Context, publicationID uint, status string) ([]models.PublicationComment, error) {
	query := r.db.WithContext(ctx).Preload("User").Where("publication_id = ?", publicationID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var comments []models.PublicationComment
	if err := query.Order("created_at ASC").Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *publicationRepository) DeleteComment(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.PublicationComment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("parent_id = ?", id).Delete(&models.PublicationComment{}).Error
	})
}

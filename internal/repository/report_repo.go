package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/astacala/rescue-api/internal/models"
)

// ReportFilter narrows report listings.
type ReportFilter struct {
	Status        string
	DisasterType  string
	SeverityLevel string
	ReporterID    *uint
	Search        string
	Page          int
	PerPage       int
}

// ReportRepository persists disaster reports and their images.
type ReportRepository interface {
	Create(ctx context.Context, report *models.DisasterReport) error
	GetByID(ctx context.Context, id uint) (models.DisasterReport, error)
	List(ctx context.Context, filter ReportFilter) ([]models.DisasterReport, int64, error)
	Update(ctx context.Context, report *models.DisasterReport) error
	Delete(ctx context.Context, id uint) error
	CountGrouped(ctx context.Context, column string, reporterID *uint) (map[string]int64, error)
	AddImage(ctx context.Context, image *models.ReportImage) error
	CountImages(ctx context.Context, reportID uint) (int64, error)
	GetImage(ctx context.Context, reportID, imageID uint) (models.ReportImage, error)
	DeleteImage(ctx context.Context, reportID, imageID uint) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository constructs a GORM-backed report repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.DisasterReport) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (models.DisasterReport, error) {
	var report models.DisasterReport
	if err := r.db.WithContext(ctx).
		Preload("Reporter").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, created_at ASC")
		}).
		First(&report, id).Error; err != nil {
		return models.DisasterReport{}, err
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.DisasterReport, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DisasterReport{})

	if filter.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(filter.Status))
	}
	if filter.DisasterType != "" {
		query = query.Where("disaster_type = ?", strings.ToUpper(filter.DisasterType))
	}
	if filter.SeverityLevel != "" {
		query = query.Where("severity_level = ?", strings.ToUpper(filter.SeverityLevel))
	}
	if filter.ReporterID != nil {
		query = query.Where("reported_by = ?", *filter.ReporterID)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.DisasterReport
	err := paginate(query.Order("created_at DESC").Order("id DESC"), filter.Page, filter.PerPage).
		Preload("Reporter").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, created_at ASC")
		}).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) Update(ctx context.Context, report *models.DisasterReport) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(report).Error
}

func (r *reportRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.DisasterReport{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type groupedCount struct {
	GroupKey string
	Total    int64
}

// CountGrouped counts non-deleted reports grouped by one of status, severity_level or disaster_type.
func (r *reportRepository) CountGrouped(ctx context.Context, column string, reporterID *uint) (map[string]int64, error) {
	switch column {
	case "status", "severity_level", "disaster_type":
	default:
		return nil, gorm.ErrInvalidField
	}

	query := r.db.WithContext(ctx).Model(&models.DisasterReport{})
	if reporterID != nil {
		query = query.Where("reported_by = ?", *reporterID)
	}

	var rows []groupedCount
	if err := query.Select(column + " AS group_key, COUNT(*) AS total").Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.GroupKey] = row.Total
	}
	return out, nil
}

func (r *reportRepository) AddImage(ctx context.Context, image *models.ReportImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *reportRepository) CountImages(ctx context.Context, reportID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReportImage{}).Where("disaster_report_id = ?", reportID).Count(&count).Error
	return count, err
}

func (r *reportRepository) GetImage(ctx context.Context, reportID, imageID uint) (models.ReportImage, error) {
	var image models.ReportImage
	if err := r.db.WithContext(ctx).
		Where("disaster_report_id = ? AND id = ?", reportID, imageID).
		First(&image).Error; err != nil {
		return models.ReportImage{}, err
	}
	return image, nil
}

func (r *reportRepository) DeleteImage(ctx context.Context, reportID, imageID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image models.ReportImage
		if err := tx.Where("disaster_report_id = ? AND id = ?", reportID, imageID).First(&image).Error; err != nil {
			return err
		}
		if err := tx.Delete(&image).Error; err != nil {
			return err
		}
		if !image.IsPrimary {
			return nil
		}

		var next models.ReportImage
		err := tx.Where("disaster_report_id = ?", reportID).Order("created_at ASC").First(&next).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).UpdateColumn("is_primary", true).Error
	})
}

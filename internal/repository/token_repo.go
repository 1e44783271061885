package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/models"
)

// AccessTokenRepository persists issued bearer tokens so they can be revoked.
type AccessTokenRepository interface {
	Create(ctx context.Context, token *models.AccessToken) error
	FindByTokenID(ctx context.Context, tokenID string) (models.AccessToken, error)
	Touch(ctx context.Context, tokenID string, at time.Time) error
	Revoke(ctx context.Context, tokenID string, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint, exceptTokenID string, at time.Time) (int64, error)
}

type accessTokenRepository struct {
	db *gorm.DB
}

// NewAccessTokenRepository constructs the token repository.
func NewAccessTokenRepository(db *gorm.DB) AccessTokenRepository {
	return &accessTokenRepository{db: db}
}

func (r *accessTokenRepository) Create(ctx context.Context, token *models.AccessToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *accessTokenRepository) FindByTokenID(ctx context.Context, tokenID string) (models.AccessToken, error) {
	var token models.AccessToken
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&token).Error; err != nil {
		return models.AccessToken{}, err
	}
	return token, nil
}

func (r *accessTokenRepository) Touch(ctx context.Context, tokenID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AccessToken{}).
		Where("token_id = ?", tokenID).
		UpdateColumn("last_used_at", at).Error
}

func (r *accessTokenRepository) Revoke(ctx context.Context, tokenID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccessToken{}).
		Where("token_id = ? AND revoked_at IS NULL", tokenID).
		UpdateColumn("revoked_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *accessTokenRepository) RevokeAllForUser(ctx context.Context, userID uint, exceptTokenID string, at time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AccessToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID)
	if exceptTokenID != "" {
		query = query.Where("token_id <> ?", exceptTokenID)
	}

	result := query.UpdateColumn("revoked_at", at)
	return result.RowsAffected, result.Error
}

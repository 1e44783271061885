package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User roles.
const (
	RoleVolunteer   = "VOLUNTEER"
	RoleAdmin       = "ADMIN"
	RoleCoordinator = "COORDINATOR"
)

// User is an account that can report disasters, coordinate or administer the platform.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"size:255;not null" json:"name"`
	Email             string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash      string         `gorm:"size:255;not null" json:"-"`
	Phone             string         `gorm:"size:32" json:"phone"`
	Role              string         `gorm:"size:32;index;not null" json:"role"`
	ProfilePictureURL string         `gorm:"size:512" json:"profile_picture_url"`
	FCMToken          string         `gorm:"size:512" json:"-"`
	IsActive          bool           `gorm:"not null" json:"is_active"`
	LastLoginAt       *time.Time     `json:"last_login_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsStaff reports whether the user may moderate reports and publications.
func (u User) IsStaff() bool {
	return IsStaffRole(u.Role)
}

// IsStaffRole reports whether the role is ADMIN or COORDINATOR.
func IsStaffRole(role string) bool {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case RoleAdmin, RoleCoordinator:
		return true
	default:
		return false
	}
}

// IsValidRole reports whether the role is one of the known roles.
func IsValidRole(role string) bool {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case RoleVolunteer, RoleAdmin, RoleCoordinator:
		return true
	default:
		return false
	}
}

// AccessToken is a personal access token issued to a client. The JWT carries its TokenID as jti.
type AccessToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	TokenID    string     `gorm:"size:64;uniqueIndex;not null" json:"token_id"`
	Name       string     `gorm:"size:128" json:"name"`
	Platform   string     `gorm:"size:16" json:"platform"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Usable reports whether the token is neither revoked nor expired at the given instant.
func (t AccessToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

package dto

import (
	"time"

	"github.com/astacala/rescue-api/internal/models"
)

// RegisterRequest is the payload used to create a volunteer account.
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,min=2,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Phone                string `json:"phone" validate:"omitempty,max=32"`
	DeviceName           string `json:"device_name" validate:"omitempty,max=128"`
}

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	DeviceName string `json:"device_name" validate:"omitempty,max=128"`
}

// ChangePasswordRequest replaces the current password.
type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,min=8,max=128"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID                uint       `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	Role              string     `json:"role"`
	ProfilePictureURL string     `json:"profile_picture_url,omitempty"`
	IsActive          bool       `json:"is_active"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// UserSummary is the compact representation embedded in other resources.
type UserSummary struct {
	ID                uint   `json:"id"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

// AuthResponse is returned after a successful login, registration or refresh.
type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Platform    string       `json:"platform"`
	TokenID     string       `json:"-"`
}

// ProfileUpdateRequest updates the caller's own profile.
type ProfileUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=255"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

// FCMTokenRequest registers a push notification device token.
type FCMTokenRequest struct {
	Token string `json:"fcm_token" validate:"required,max=512"`
}

// UserRoleUpdateRequest changes a user's role.
type UserRoleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=VOLUNTEER ADMIN COORDINATOR"`
}

// UserStatusUpdateRequest activates or deactivates a user.
type UserStatusUpdateRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// UserListQuery filters the admin user listing.
type UserListQuery struct {
	Search  string
	Role    string
	Active  *bool
	Page    int
	PerPage int
}

// NewUserResponse converts a user model into its public representation.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:                user.ID,
		Name:              user.Name,
		Email:             user.Email,
		Phone:             user.Phone,
		Role:              user.Role,
		ProfilePictureURL: user.ProfilePictureURL,
		IsActive:          user.IsActive,
		LastLoginAt:       user.LastLoginAt,
		CreatedAt:         user.CreatedAt,
	}
}

// NewUserResponseSlice converts users to DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}

// NewUserSummary returns nil when the association was not loaded.
func NewUserSummary(user models.User) *UserSummary {
	if user.ID == 0 {
		return nil
	}
	return &UserSummary{
		ID:                user.ID,
		Name:              user.Name,
		Role:              user.Role,
		ProfilePictureURL: user.ProfilePictureURL,
	}
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/repository"
)

// UserService manages profiles and administrator account controls.
type UserService interface {
	Profile(ctx context.Context, userID uint) (dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uint, payload dto.ProfileUpdateRequest) (dto.UserResponse, error)
	RegisterFCMToken(ctx context.Context, userID uint, payload dto.FCMTokenRequest) error
	UpdateAvatar(ctx context.Context, userID uint, url string) (dto.UserResponse, error)
	List(ctx context.Context, query dto.UserListQuery) ([]dto.UserResponse, int64, error)
	UpdateRole(ctx context.Context, actorID, userID uint, payload dto.UserRoleUpdateRequest) (dto.UserResponse, error)
	UpdateStatus(ctx context.Context, actorID, userID uint, payload dto.UserStatusUpdateRequest) (dto.UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	tokens    repository.AccessTokenRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewUserService constructs the user service.
func NewUserService(users repository.UserRepository, tokens repository.AccessTokenRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		tokens:    tokens,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
		now:       time.Now,
	}
}

func (s *userService) Profile(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, payload dto.ProfileUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	updates := map[string]interface{}{}
	if payload.Name != nil {
		updates["name"] = strings.TrimSpace(*payload.Name)
	}
	if payload.Phone != nil {
		updates["phone"] = strings.TrimSpace(*payload.Phone)
	}
	if len(updates) == 0 {
		return s.Profile(ctx, userID)
	}

	user, err := s.users.Update(ctx, userID, updates)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) RegisterFCMToken(ctx context.Context, userID uint, payload dto.FCMTokenRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}
	_, err := s.users.Update(ctx, userID, map[string]interface{}{"fcm_token": strings.TrimSpace(payload.Token)})
	return err
}

func (s *userService) UpdateAvatar(ctx context.Context, userID uint, url string) (dto.UserResponse, error) {
	user, err := s.users.Update(ctx, userID, map[string]interface{}{"profile_picture_url": url})
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, query dto.UserListQuery) ([]dto.UserResponse, int64, error) {
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Search:  strings.TrimSpace(query.Search),
		Role:    strings.TrimSpace(query.Role),
		Active:  query.Active,
		Page:    query.Page,
		PerPage: query.PerPage,
	})
	if err != nil {
		return nil, 0, err
	}
	return dto.NewUserResponseSlice(users), total, nil
}

func (s *userService) UpdateRole(ctx context.Context, actorID, userID uint, payload dto.UserRoleUpdateRequest) (dto.UserResponse, error) {
	payload.Role = strings.ToUpper(strings.TrimSpace(payload.Role))
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}
	if actorID == userID {
		return dto.UserResponse{}, ErrForbidden
	}

	user, err := s.users.Update(ctx, userID, map[string]interface{}{"role": payload.Role})
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("actor_id", actorID).Uint("user_id", userID).Str("role", payload.Role).Msg("user role changed")
	return dto.NewUserResponse(user), nil
}

// UpdateStatus toggles activation; deactivating revokes every issued token.
func (s *userService) UpdateStatus(ctx context.Context, actorID, userID uint, payload dto.UserStatusUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}
	if actorID == userID {
		return dto.UserResponse{}, ErrForbidden
	}

	active := *payload.IsActive
	user, err := s.users.Update(ctx, userID, map[string]interface{}{"is_active": active})
	if err != nil {
		return dto.UserResponse{}, err
	}

	if !active {
		revoked, err := s.tokens.RevokeAllForUser(ctx, userID, "", s.now())
		if err != nil {
			return dto.UserResponse{}, err
		}
		s.logger.Info().Uint("actor_id", actorID).Uint("user_id", userID).Int64("revoked_tokens", revoked).Msg("user deactivated")
	}

	return dto.NewUserResponse(user), nil
}

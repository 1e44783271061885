package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
)

// Request platforms.
const (
	PlatformMobile = "mobile"
	PlatformWeb    = "web"
)

// ClientMeta describes the client issuing an authentication request.
type ClientMeta struct {
	IP         string
	Platform   string
	UserAgent  string
	DeviceName string
}

// Principal is the identity resolved from a bearer token or session.
type Principal struct {
	UserID  uint
	Role    string
	TokenID string
}

// TokenClaims are the JWT claims carried by issued bearer tokens.
type TokenClaims struct {
	Role     string `json:"role"`
	Platform string `json:"platform"`
	jwt.RegisteredClaims
}

// AuthService exposes account registration, login and token lifecycle operations.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest, meta ClientMeta) (dto.AuthResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest, meta ClientMeta) (dto.AuthResponse, error)
	Logout(ctx context.Context, tokenID string) error
	Refresh(ctx context.Context, principal Principal, meta ClientMeta) (dto.AuthResponse, error)
	ChangePassword(ctx context.Context, principal Principal, payload dto.ChangePasswordRequest) error
	Me(ctx context.Context, userID uint) (dto.UserResponse, error)
	Authenticate(ctx context.Context, rawToken string) (Principal, error)
	ResolveUser(ctx context.Context, userID uint) (Principal, error)
}

// AuthOptions configures token issuance.
type AuthOptions struct {
	Secret     string
	TokenTTL   time.Duration
	Issuer     string
	BcryptCost int
}

type authService struct {
	users     repository.UserRepository
	tokens    repository.AccessTokenRepository
	blocker   ClientBlocker
	validator *validator.Validate
	secret    []byte
	ttl       time.Duration
	issuer    string
	cost      int
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAuthService constructs the authentication service.
func NewAuthService(users repository.UserRepository, tokens repository.AccessTokenRepository, blocker ClientBlocker, validate *validator.Validate, opts AuthOptions, logger zerolog.Logger) AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Issuer == "" {
		opts.Issuer = "astacala-rescue"
	}

	return &authService{
		users:     users,
		tokens:    tokens,
		blocker:   blocker,
		validator: validate,
		secret:    []byte(opts.Secret),
		ttl:       opts.TokenTTL,
		issuer:    opts.Issuer,
		cost:      opts.BcryptCost,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		tracer:    otel.Tracer("github.com/astacala/rescue-api/internal/service/auth"),
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest, meta ClientMeta) (dto.AuthResponse, error) {
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	payload.Name = strings.TrimSpace(payload.Name)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	if _, err := s.users.FindByEmail(spanCtx, payload.Email); err == nil {
		return dto.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.cost)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: string(hash),
		Phone:        strings.TrimSpace(payload.Phone),
		Role:         models.RoleVolunteer,
		IsActive:     true,
	}
	if err := s.users.Create(spanCtx, &user); err != nil {
		span.RecordError(err)
		return dto.AuthResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("platform", meta.Platform).Msg("user registered")

	return s.issue(spanCtx, user, meta)
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest, meta ClientMeta) (dto.AuthResponse, error) {
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "auth.login", trace.WithAttributes(attribute.String("auth.platform", meta.Platform)))
	defer span.End()

	user, err := s.users.FindByEmail(spanCtx, payload.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.AuthResponse{}, err
	}

	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)) != nil {
		s.registerFailure(spanCtx, meta)
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return dto.AuthResponse{}, ErrAccountInactive
	}

	if s.blocker != nil {
		if err := s.blocker.ResetFailedLogins(spanCtx, meta.IP); err != nil {
			s.logger.Warn().Err(err).Str("ip", meta.IP).Msg("failed to reset login failure counter")
		}
	}

	now := s.now()
	user, err = s.users.Update(spanCtx, user.ID, map[string]interface{}{"last_login_at": now})
	if err != nil {
		return dto.AuthResponse{}, err
	}

	return s.issue(spanCtx, user, meta)
}

func (s *authService) Logout(ctx context.Context, tokenID string) error {
	if strings.TrimSpace(tokenID) == "" {
		return nil
	}
	err := s.tokens.Revoke(ctx, tokenID, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// Refresh revokes the presented token and issues a fresh one.
func (s *authService) Refresh(ctx context.Context, principal Principal, meta ClientMeta) (dto.AuthResponse, error) {
	user, err := s.activeUser(ctx, principal.UserID)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	if principal.TokenID != "" {
		if err := s.tokens.Revoke(ctx, principal.TokenID, s.now()); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, err
		}
	}

	return s.issue(ctx, user, meta)
}

func (s *authService) ChangePassword(ctx context.Context, principal Principal, payload dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	user, err := s.activeUser(ctx, principal.UserID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.CurrentPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.users.Update(ctx, user.ID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}

	revoked, err := s.tokens.RevokeAllForUser(ctx, user.ID, principal.TokenID, s.now())
	if err != nil {
		return err
	}

	s.logger.Info().Uint("user_id", user.ID).Int64("revoked_tokens", revoked).Msg("password changed")
	return nil
}

func (s *authService) Me(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

// Authenticate verifies the JWT signature, then checks the referenced access token and its owner.
func (s *authService) Authenticate(ctx context.Context, rawToken string) (Principal, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.ID == "" {
		return Principal{}, ErrInvalidToken
	}

	record, err := s.tokens.FindByTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}

	now := s.now()
	if !record.Usable(now) || strconv.FormatUint(uint64(record.UserID), 10) != claims.Subject {
		return Principal{}, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !user.IsActive {
		return Principal{}, ErrInvalidToken
	}

	if err := s.tokens.Touch(ctx, record.TokenID, now); err != nil {
		s.logger.Debug().Err(err).Msg("failed to record token usage")
	}

	return Principal{UserID: user.ID, Role: user.Role, TokenID: record.TokenID}, nil
}

// ResolveUser loads the principal for a session-authenticated user.
func (s *authService) ResolveUser(ctx context.Context, userID uint) (Principal, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: user.ID, Role: user.Role}, nil
}

func (s *authService) activeUser(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, ErrAccountInactive
	}
	return user, nil
}

func (s *authService) issue(ctx context.Context, user models.User, meta ClientMeta) (dto.AuthResponse, error) {
	platform := meta.Platform
	if platform == "" {
		platform = PlatformMobile
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	tokenID := uuid.NewString()

	claims := TokenClaims{
		Role:     user.Role,
		Platform: platform,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("sign token: %w", err)
	}

	name := strings.TrimSpace(meta.DeviceName)
	if name == "" {
		name = platform + "-client"
	}

	record := models.AccessToken{
		UserID:    user.ID,
		TokenID:   tokenID,
		Name:      name,
		Platform:  platform,
		ExpiresAt: expiresAt,
	}
	if err := s.tokens.Create(ctx, &record); err != nil {
		return dto.AuthResponse{}, err
	}

	return dto.AuthResponse{
		User:        dto.NewUserResponse(user),
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Platform:    platform,
		TokenID:     tokenID,
	}, nil
}

func (s *authService) registerFailure(ctx context.Context, meta ClientMeta) {
	if s.blocker == nil {
		return
	}

	blocked, err := s.blocker.RegisterFailedLogin(ctx, meta.IP)
	if err != nil {
		s.logger.Warn().Err(err).Str("ip", meta.IP).Msg("failed to track login failure")
		return
	}
	if blocked {
		s.logger.Warn().Str("ip", meta.IP).Msg("client blocked after repeated login failures")
	}
}

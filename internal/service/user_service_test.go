package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
)

func TestUserServiceDeactivationRevokesTokens(t *testing.T) {
	db := setupServiceDB(t)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)
	volunteer := createTestUser(t, db, "vol@example.com", models.RoleVolunteer)
	tokens := repository.NewAccessTokenRepository(db)
	svc := NewUserService(repository.NewUserRepository(db), tokens, testValidator(), testLogger())
	ctx := context.Background()

	require.NoError(t, db.Create(&models.AccessToken{UserID: volunteer.ID, TokenID: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	inactive := false
	_, err := svc.UpdateStatus(ctx, admin.ID, admin.ID, dto.UserStatusUpdateRequest{IsActive: &inactive})
	require.ErrorIs(t, err, ErrForbidden)

	resp, err := svc.UpdateStatus(ctx, admin.ID, volunteer.ID, dto.UserStatusUpdateRequest{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, resp.IsActive)

	token, err := tokens.FindByTokenID(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, token.RevokedAt)

	updated, err := svc.UpdateRole(ctx, admin.ID, volunteer.ID, dto.UserRoleUpdateRequest{Role: "coordinator"})
	require.NoError(t, err)
	require.Equal(t, models.RoleCoordinator, updated.Role)

	_, err = svc.UpdateRole(ctx, admin.ID, volunteer.ID, dto.UserRoleUpdateRequest{Role: "superuser"})
	require.Error(t, err)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	db := setupServiceDB(t)
	user := createTestUser(t, db, "vol@example.com", models.RoleVolunteer)
	svc := NewUserService(repository.NewUserRepository(db), repository.NewAccessTokenRepository(db), testValidator(), testLogger())
	ctx := context.Background()

	name := "  Rina Kartika "
	phone := "+62811000111"
	resp, err := svc.UpdateProfile(ctx, user.ID, dto.ProfileUpdateRequest{Name: &name, Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "Rina Kartika", resp.Name)
	require.Equal(t, phone, resp.Phone)

	require.NoError(t, svc.RegisterFCMToken(ctx, user.ID, dto.FCMTokenRequest{Token: "device-token"}))
	require.Error(t, svc.RegisterFCMToken(ctx, user.ID, dto.FCMTokenRequest{}))

	items, total, err := svc.List(ctx, dto.UserListQuery{Search: "rina"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, user.ID, items[0].ID)
}

package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
)

func newTestNotificationService(t *testing.T, db *gorm.DB, broadcaster EventBroadcaster, client *redis.Client) NotificationService {
	t.Helper()
	return NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		broadcaster,
		client,
		"test",
		nil,
		testValidator(),
		testLogger(),
	)
}

func TestNotificationServicePublishStreamsAndBroadcasts(t *testing.T) {
	db := setupServiceDB(t)
	user := createTestUser(t, db, "vol@example.com", models.RoleVolunteer)
	broadcaster := &recordingBroadcaster{}
	svc := newTestNotificationService(t, db, broadcaster, nil)
	ctx := context.Background()

	stream, cleanup := svc.Subscribe(user.ID)
	defer cleanup()

	resp, err := svc.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  user.ID,
		Title:   "<b>Report verified</b>",
		Message: "Your report was verified",
		Type:    models.NotificationReportVerified,
	})
	require.NoError(t, err)
	require.Equal(t, "Report verified", resp.Title)
	require.Equal(t, models.PriorityNormal, resp.Priority)

	select {
	case streamed := <-stream:
		require.Equal(t, resp.ID, streamed.ID)
	case <-time.After(time.Second):
		t.Fatal("expected notification on SSE stream")
	}

	events := broadcaster.byEvent(EventAdminNotification)
	require.Len(t, events, 1)
	require.Equal(t, []string{UserChannel(user.ID)}, events[0].Channels)

	_, err = svc.Publish(ctx, dto.NotificationCreateRequest{UserID: user.ID, Title: "<script></script>", Message: "x", Type: models.NotificationSystem})
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestNotificationServiceNotifyRolesTargetsActiveStaff(t *testing.T) {
	db := setupServiceDB(t)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)
	coordinator := createTestUser(t, db, "coord@example.com", models.RoleCoordinator)
	createTestUser(t, db, "vol@example.com", models.RoleVolunteer)
	inactive := createTestUser(t, db, "old-admin@example.com", models.RoleAdmin)
	require.NoError(t, db.Model(&inactive).Update("is_active", false).Error)

	svc := newTestNotificationService(t, db, nil, nil)
	ctx := context.Background()

	sent, err := svc.NotifyRoles(ctx, []string{models.RoleAdmin, models.RoleCoordinator}, dto.NotificationCreateRequest{
		Title:   "New report",
		Message: "A new flood report was submitted",
		Type:    models.NotificationNewReport,
		Data:    map[string]interface{}{"report_id": 5},
	})
	require.NoError(t, err)
	require.Equal(t, 2, sent)

	for _, id := range []uint{admin.ID, coordinator.ID} {
		count, err := svc.UnreadCount(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
	}

	count, err := svc.UnreadCount(ctx, inactive.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	sent, err = svc.NotifyUsers(ctx, []uint{admin.ID, admin.ID, 0}, dto.NotificationCreateRequest{
		Title:   "Duplicate",
		Message: "Only once",
		Type:    models.NotificationSystem,
	})
	require.NoError(t, err)
	require.Equal(t, 1, sent)
}

func TestNotificationServiceReadLifecycle(t *testing.T) {
	db := setupServiceDB(t)
	user := createTestUser(t, db, "vol@example.com", models.RoleVolunteer)
	other := createTestUser(t, db, "other@example.com", models.RoleVolunteer)
	svc := newTestNotificationService(t, db, nil, nil)
	ctx := context.Background()

	created := make([]dto.NotificationResponse, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := svc.Publish(ctx, dto.NotificationCreateRequest{UserID: user.ID, Title: "Update", Message: "Something happened", Type: models.NotificationSystem})
		require.NoError(t, err)
		created = append(created, resp)
	}

	_, err := svc.MarkRead(ctx, created[0].ID, other.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	read, err := svc.MarkRead(ctx, created[0].ID, user.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	unread, total, err := svc.List(ctx, user.ID, dto.NotificationListQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, unread, 2)

	updated, err := svc.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated)

	require.ErrorIs(t, svc.Delete(ctx, created[1].ID, other.ID), gorm.ErrRecordNotFound)
	require.NoError(t, svc.Delete(ctx, created[1].ID, user.ID))

	_, total, err = svc.List(ctx, user.ID, dto.NotificationListQuery{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
}

func TestNotificationServiceRelaysRemoteEvents(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	db := setupServiceDB(t)
	user := createTestUser(t, db, "vol@example.com", models.RoleVolunteer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	origin := newTestNotificationService(t, db, nil, client)
	replica := newTestNotificationService(t, db, nil, client)
	replica.Start(ctx)

	require.Eventually(t, func() bool {
		return server.PubSubNumSub("test:notifications")["test:notifications"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	stream, cleanup := replica.Subscribe(user.ID)
	defer cleanup()

	resp, err := origin.Publish(ctx, dto.NotificationCreateRequest{UserID: user.ID, Title: "Remote", Message: "From another node", Type: models.NotificationSystem})
	require.NoError(t, err)

	select {
	case streamed := <-stream:
		require.Equal(t, resp.ID, streamed.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected relayed notification")
	}
}

package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	user := models.User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: "hash", Role: role, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedReport(t *testing.T, db *gorm.DB, reporter uint, title, status, severity string, createdAt time.Time) models.DisasterReport {
	t.Helper()
	report := models.DisasterReport{
		Title:         title,
		Description:   "Water level rising near the river bank",
		DisasterType:  models.DisasterFlood,
		SeverityLevel: severity,
		Status:        status,
		Latitude:      -6.2,
		Longitude:     106.8,
		ReportedBy:    reporter,
		CreatedAt:     createdAt,
	}
	require.NoError(t, db.Omit("Reporter", "Assignee", "Images").Create(&report).Error)
	return report
}

func TestUserRepositoryFindByEmailIgnoresCase(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seedUser(t, db, "rina@example.com", models.RoleVolunteer)

	user, err := repo.FindByEmail(context.Background(), "  RINA@example.com ")
	require.NoError(t, err)
	require.Equal(t, "rina@example.com", user.Email)

	_, err = repo.FindByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepositoryListFiltersByRoleAndActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seedUser(t, db, "admin@example.com", models.RoleAdmin)
	seedUser(t, db, "vol@example.com", models.RoleVolunteer)
	inactive := seedUser(t, db, "gone@example.com", models.RoleVolunteer)
	_, err := repo.Update(context.Background(), inactive.ID, map[string]interface{}{"is_active": false})
	require.NoError(t, err)

	active := true
	users, total, err := repo.List(context.Background(), UserFilter{Role: "volunteer", Active: &active})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "vol@example.com", users[0].Email)

	staff, err := repo.ListActiveByRoles(context.Background(), models.RoleAdmin, models.RoleCoordinator)
	require.NoError(t, err)
	require.Len(t, staff, 1)

	_, err = repo.Update(context.Background(), 9999, map[string]interface{}{"name": "x"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccessTokenRepositoryRevokeAllKeepsCurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccessTokenRepository(db)
	user := seedUser(t, db, "tok@example.com", models.RoleVolunteer)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	for _, id := range []string{"keep", "drop-1", "drop-2"} {
		require.NoError(t, repo.Create(ctx, &models.AccessToken{UserID: user.ID, TokenID: id, ExpiresAt: expires}))
	}

	revoked, err := repo.RevokeAllForUser(ctx, user.ID, "keep", time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(2), revoked)

	kept, err := repo.FindByTokenID(ctx, "keep")
	require.NoError(t, err)
	require.True(t, kept.Usable(time.Now()))

	dropped, err := repo.FindByTokenID(ctx, "drop-1")
	require.NoError(t, err)
	require.False(t, dropped.Usable(time.Now()))
}

func TestReportRepositoryListFiltersAndOrders(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)
	reporter := seedUser(t, db, "reporter@example.com", models.RoleVolunteer)
	other := seedUser(t, db, "other@example.com", models.RoleVolunteer)
	now := time.Now()

	seedReport(t, db, reporter.ID, "Flood in Bandung", models.ReportStatusPending, models.SeverityHigh, now.Add(-2*time.Hour))
	seedReport(t, db, reporter.ID, "Flash flood Garut", models.ReportStatusVerified, models.SeverityCritical, now.Add(-time.Hour))
	seedReport(t, db, other.ID, "Landslide Bogor", models.ReportStatusPending, models.SeverityLow, now)

	reports, total, err := repo.List(context.Background(), ReportFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, "Landslide Bogor", reports[0].Title, "expected newest first")
	require.Equal(t, "other@example.com", reports[0].Reporter.Email)

	reports, total, err = repo.List(context.Background(), ReportFilter{Status: "pending", ReporterID: &reporter.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Flood in Bandung", reports[0].Title)

	reports, total, err = repo.List(context.Background(), ReportFilter{Search: "FLOOD", PerPage: 1, Page: 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, reports, 1)
	require.Equal(t, "Flood in Bandung", reports[0].Title)

	bySeverity, err := repo.CountGrouped(context.Background(), "severity_level", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), bySeverity[models.SeverityCritical])

	_, err = repo.CountGrouped(context.Background(), "title", nil)
	require.Error(t, err)
}

func TestReportRepositoryDeleteImagePromotesNextPrimary(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)
	reporter := seedUser(t, db, "img@example.com", models.RoleVolunteer)
	report := seedReport(t, db, reporter.ID, "Fire", models.ReportStatusPending, models.SeverityMedium, time.Now())
	ctx := context.Background()

	first := models.ReportImage{DisasterReportID: report.ID, ImageURL: "https://cdn/1.jpg", IsPrimary: true, CreatedAt: time.Now().Add(-time.Minute)}
	second := models.ReportImage{DisasterReportID: report.ID, ImageURL: "https://cdn/2.jpg", CreatedAt: time.Now()}
	require.NoError(t, repo.AddImage(ctx, &first))
	require.NoError(t, repo.AddImage(ctx, &second))

	count, err := repo.CountImages(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	require.NoError(t, repo.DeleteImage(ctx, report.ID, first.ID))

	promoted, err := repo.GetImage(ctx, report.ID, second.ID)
	require.NoError(t, err)
	require.True(t, promoted.IsPrimary)

	require.ErrorIs(t, repo.DeleteImage(ctx, report.ID, first.ID), gorm.ErrRecordNotFound)
}

func TestForumRepositoryMarkReportReadSkipsOwnMessages(t *testing.T) {
	db := setupTestDB(t)
	repo := NewForumRepository(db)
	alice := seedUser(t, db, "alice@example.com", models.RoleVolunteer)
	bob := seedUser(t, db, "bob@example.com", models.RoleCoordinator)
	report := seedReport(t, db, alice.ID, "Storm", models.ReportStatusPending, models.SeverityHigh, time.Now())
	ctx := context.Background()

	root := models.ForumMessage{DisasterReportID: report.ID, UserID: alice.ID, Message: "Need boats", PriorityLevel: models.PriorityHigh}
	require.NoError(t, repo.Create(ctx, &root))
	reply := models.ForumMessage{DisasterReportID: report.ID, UserID: bob.ID, ParentMessageID: &root.ID, Message: "On the way", PriorityLevel: models.PriorityNormal}
	require.NoError(t, repo.Create(ctx, &reply))

	updated, err := repo.MarkReportRead(ctx, report.ID, alice.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), updated)

	messages, err := repo.ListByReport(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.False(t, messages[0].IsRead)
	require.True(t, messages[1].IsRead)
	require.Equal(t, "bob@example.com", messages[1].User.Email)

	require.NoError(t, repo.Delete(ctx, root.ID))
	count, err := repo.CountByReport(ctx, report.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestNotificationRepositoryUnreadLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	user := seedUser(t, db, "notify@example.com", models.RoleVolunteer)
	ctx := context.Background()

	require.NoError(t, repo.CreateBatch(ctx, []models.Notification{
		{UserID: user.ID, Title: "One", Message: "first", Type: models.NotificationSystem},
		{UserID: user.ID, Title: "Two", Message: "second", Type: models.NotificationSystem},
	}))

	unread, err := repo.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), unread)

	items, total, err := repo.ListByUser(ctx, user.ID, NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	read, err := repo.MarkRead(ctx, items[0].ID, user.ID, time.Now())
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	_, err = repo.MarkRead(ctx, items[0].ID, user.ID+1, time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	affected, err := repo.MarkAllRead(ctx, user.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	require.NoError(t, repo.Delete(ctx, items[1].ID, user.ID))
	require.ErrorIs(t, repo.Delete(ctx, items[1].ID, user.ID), gorm.ErrRecordNotFound)
}

func TestPublicationRepositorySlugAndReports(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPublicationRepository(db)
	author := seedUser(t, db, "author@example.com", models.RoleAdmin)
	report := seedReport(t, db, author.ID, "Quake", models.ReportStatusVerified, models.SeverityCritical, time.Now())
	ctx := context.Background()

	publication := models.Publication{Title: "Quake relief", Slug: "quake-relief", Content: "body", Status: models.PublicationDraft, AuthorID: author.ID}
	require.NoError(t, repo.Create(ctx, &publication))
	require.NoError(t, repo.ReplaceReports(ctx, &publication, []uint{report.ID}))

	exists, err := repo.SlugExists(ctx, "quake-relief", 0)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.SlugExists(ctx, "quake-relief", publication.ID)
	require.NoError(t, err)
	require.False(t, exists)

	loaded, err := repo.GetByID(ctx, publication.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Reports, 1)
	require.Equal(t, "author@example.com", loaded.Author.Email)

	items, total, err := repo.List(ctx, PublicationFilter{Status: models.PublicationPublished})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)
}

func TestDashboardRepositoryCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardRepository(db)
	volunteer := seedUser(t, db, "v@example.com", models.RoleVolunteer)
	seedUser(t, db, "a@example.com", models.RoleAdmin)
	seedReport(t, db, volunteer.ID, "Old", models.ReportStatusPending, models.SeverityLow, time.Now().Add(-10*24*time.Hour))
	seedReport(t, db, volunteer.ID, "New", models.ReportStatusPending, models.SeverityLow, time.Now())

	volunteers, err := repo.CountActiveVolunteers(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), volunteers)

	stamps, err := repo.ListReportTimestampsSince(context.Background(), time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stamps, 1)
}

func TestSecurityEventRepositoryFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSecurityEventRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.SecurityEvent{IPAddress: "10.0.0.1", Kind: models.SecurityEventInjection, Path: "/api/v1/reports"}))
	require.NoError(t, repo.Create(ctx, &models.SecurityEvent{IPAddress: "10.0.0.2", Kind: models.SecurityEventMissingAgent, Path: "/api/v1/health"}))

	events, total, err := repo.List(ctx, SecurityEventFilter{Kind: models.SecurityEventInjection})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "10.0.0.1", events[0].IPAddress)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
)

func newTestPublicationService(t *testing.T) (PublicationService, *gorm.DB) {
	t.Helper()
	db := setupServiceDB(t)
	return NewPublicationService(repository.NewPublicationRepository(db), testValidator(), testLogger()), db
}

func TestPublicationServiceLifecycle(t *testing.T) {
	svc, db := newTestPublicationService(t)
	ctx := context.Background()
	editor := createTestUser(t, db, "editor@example.com", models.RoleCoordinator)
	volunteer := createTestUser(t, db, "vol@example.com", models.RoleVolunteer)
	report := createTestReport(t, db, volunteer.ID, "Flood response")
	staff := Principal{UserID: editor.ID, Role: models.RoleCoordinator}
	reader := Principal{UserID: volunteer.ID, Role: models.RoleVolunteer}

	_, err := svc.Create(ctx, reader, dto.PublicationCreateRequest{Title: "Nope", Content: "Volunteers cannot publish articles"})
	require.ErrorIs(t, err, ErrForbidden)

	first, err := svc.Create(ctx, staff, dto.PublicationCreateRequest{
		Title:     "Flood Response Update!",
		Content:   "<p>Evacuation completed</p><script>alert(1)</script>",
		Category:  "update",
		ReportIDs: []uint{report.ID},
	})
	require.NoError(t, err)
	require.Equal(t, models.PublicationDraft, first.Status)
	require.Equal(t, "flood-response-update", first.Slug)
	require.NotContains(t, first.Content, "<script>")
	require.Equal(t, []uint{report.ID}, first.ReportIDs)

	second, err := svc.Create(ctx, staff, dto.PublicationCreateRequest{Title: "Flood response update", Content: "Another article with the same title"})
	require.NoError(t, err)
	require.Equal(t, "flood-response-update-2", second.Slug)

	items, total, err := svc.List(ctx, nil, dto.PublicationListQuery{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)

	_, err = svc.Get(ctx, &reader, first.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = svc.Archive(ctx, staff, first.ID)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)

	published, err := svc.Publish(ctx, staff, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.PublicationPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	require.Equal(t, editor.ID, *published.PublishedBy)

	items, total, err = svc.List(ctx, nil, dto.PublicationListQuery{Status: models.PublicationDraft})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, first.ID, items[0].ID)

	_, total, err = svc.List(ctx, &staff, dto.PublicationListQuery{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	title := "Flood response: final update"
	updated, err := svc.Update(ctx, staff, first.ID, dto.PublicationUpdateRequest{Title: &title, ReportIDs: []uint{}})
	require.NoError(t, err)
	require.Equal(t, "flood-response-final-update", updated.Slug)
	require.Equal(t, editor.ID, *updated.UpdatedBy)
	require.Empty(t, updated.ReportIDs)

	archived, err := svc.Archive(ctx, staff, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.PublicationArchived, archived.Status)
	require.NotNil(t, archived.ArchivedAt)

	_, err = svc.Get(ctx, nil, first.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.ErrorIs(t, svc.Delete(ctx, reader, second.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, staff, second.ID))
}

func TestPublicationServiceThreadedComments(t *testing.T) {
	svc, db := newTestPublicationService(t)
	ctx := context.Background()
	editor := createTestUser(t, db, "editor@example.com", models.RoleAdmin)
	alice := createTestUser(t, db, "alice@example.com", models.RoleVolunteer)
	bob := createTestUser(t, db, "bob@example.com", models.RoleVolunteer)
	staff := Principal{UserID: editor.ID, Role: models.RoleAdmin}

	pub, err := svc.Create(ctx, staff, dto.PublicationCreateRequest{Title: "Preparedness tips", Content: "Keep an emergency bag ready at all times"})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, Principal{UserID: alice.ID, Role: models.RoleVolunteer}, pub.ID, dto.PublicationCommentCreateRequest{Comment: "Draft comment"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = svc.Publish(ctx, staff, pub.ID)
	require.NoError(t, err)
	other, err := svc.Create(ctx, staff, dto.PublicationCreateRequest{Title: "Other", Content: "A different publication body"})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, staff, other.ID)
	require.NoError(t, err)

	root, err := svc.AddComment(ctx, Principal{UserID: alice.ID, Role: models.RoleVolunteer}, pub.ID, dto.PublicationCommentCreateRequest{Comment: "Very useful"})
	require.NoError(t, err)
	reply, err := svc.AddComment(ctx, Principal{UserID: bob.ID, Role: models.RoleVolunteer}, pub.ID, dto.PublicationCommentCreateRequest{Comment: "Agreed", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, Principal{UserID: bob.ID, Role: models.RoleVolunteer}, other.ID, dto.PublicationCommentCreateRequest{Comment: "Wrong thread", ParentID: &root.ID})
	require.ErrorIs(t, err, ErrInvalidParent)

	comments, err := svc.ListComments(ctx, nil, pub.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Len(t, comments[0].Replies, 1)
	require.Equal(t, reply.ID, comments[0].Replies[0].ID)

	require.ErrorIs(t, svc.DeleteComment(ctx, Principal{UserID: bob.ID, Role: models.RoleVolunteer}, pub.ID, root.ID), ErrForbidden)
	require.NoError(t, svc.DeleteComment(ctx, Principal{UserID: editor.ID, Role: models.RoleAdmin}, pub.ID, root.ID))

	comments, err = svc.ListComments(ctx, nil, pub.ID)
	require.NoError(t, err)
	require.Empty(t, comments)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "banjir-bandang-di-garut", Slugify("  Banjir Bandang di Garut!! "))
	require.Equal(t, "", Slugify("!!!"))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// PublicationService manages staff articles and their reader comments.
type PublicationService interface {
	List(ctx context.Context, viewer *Principal, query dto.PublicationListQuery) ([]dto.PublicationResponse, int64, error)
	Get(ctx context.Context, viewer *Principal, id uint) (dto.PublicationResponse, error)
	Create(ctx context.Context, actor Principal, payload dto.PublicationCreateRequest) (dto.PublicationResponse, error)
	Update(ctx context.Context, actor Principal, id uint, payload dto.PublicationUpdateRequest) (dto.PublicationResponse, error)
	Publish(ctx context.Context, actor Principal, id uint) (dto.PublicationResponse, error)
	Archive(ctx context.Context, actor Principal, id uint) (dto.PublicationResponse, error)
	Delete(ctx context.Context, actor Principal, id uint) error
	ListComments(ctx context.Context, viewer *Principal, publicationID uint) ([]dto.PublicationCommentResponse, error)
	AddComment(ctx context.Context, actor Principal, publicationID uint, payload dto.PublicationCommentCreateRequest) (dto.PublicationCommentResponse, error)
	DeleteComment(ctx context.Context, actor Principal, publicationID, commentID uint) error
}

type publicationService struct {
	repo      repository.PublicationRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	strict    *bluemonday.Policy
	now       func() time.Time
}

// NewPublicationService constructs the publication service.
func NewPublicationService(repo repository.PublicationRepository, validate *validator.Validate, logger zerolog.Logger) PublicationService {
	return &publicationService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "publication_service").Logger(),
		tracer:    otel.Tracer("github.com/astacala/rescue-api/internal/service/publication"),
		sanitizer: bluemonday.UGCPolicy(),
		strict:    bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func isStaffViewer(viewer *Principal) bool {
	return viewer != nil && models.IsStaffRole(viewer.Role)
}

func (s *publicationService) List(ctx context.Context, viewer *Principal, query dto.PublicationListQuery) ([]dto.PublicationResponse, int64, error) {
	filter := repository.PublicationFilter{
		Status:   strings.ToLower(strings.TrimSpace(query.Status)),
		Category: strings.TrimSpace(query.Category),
		Search:   strings.TrimSpace(query.Search),
		Page:     query.Page,
		PerPage:  query.PerPage,
	}
	if !isStaffViewer(viewer) {
		filter.Status = models.PublicationPublished
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return dto.NewPublicationResponseSlice(items), total, nil
}

func (s *publicationService) Get(ctx context.Context, viewer *Principal, id uint) (dto.PublicationResponse, error) {
	publication, err := s.visible(ctx, viewer, id)
	if err != nil {
		return dto.PublicationResponse{}, err
	}
	return dto.NewPublicationResponse(publication), nil
}

// visible hides drafts and archived articles from non-staff viewers.
func (s *publicationService) visible(ctx context.Context, viewer *Principal, id uint) (models.Publication, error) {
	publication, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Publication{}, err
	}
	if publication.Status != models.PublicationPublished && !isStaffViewer(viewer) {
		return models.Publication{}, gorm.ErrRecordNotFound
	}
	return publication, nil
}

func (s *publicationService) Create(ctx context.Context, actor Principal, payload dto.PublicationCreateRequest) (dto.PublicationResponse, error) {
	if !models.IsStaffRole(actor.Role) {
		return dto.PublicationResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.PublicationResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "publication.create", trace.WithAttributes(
		attribute.Int64("publication.author_id", int64(actor.UserID)),
	))
	defer span.End()

	title := strings.TrimSpace(s.strict.Sanitize(payload.Title))
	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if title == "" || content == "" {
		return dto.PublicationResponse{}, ErrEmptyContent
	}

	slug, err := s.uniqueSlug(spanCtx, title, 0)
	if err != nil {
		span.RecordError(err)
		return dto.PublicationResponse{}, err
	}

	publication := models.Publication{
		Title:    title,
		Slug:     slug,
		Content:  content,
		Category: strings.TrimSpace(payload.Category),
		Status:   models.PublicationDraft,
		AuthorID: actor.UserID,
	}
	if err := s.repo.Create(spanCtx, &publication); err != nil {
		span.RecordError(err)
		return dto.PublicationResponse{}, err
	}

	if len(payload.ReportIDs) > 0 {
		if err := s.repo.ReplaceReports(spanCtx, &publication, payload.ReportIDs); err != nil {
			return dto.PublicationResponse{}, err
		}
	}

	s.logger.Info().Uint("publication_id", publication.ID).Str("slug", slug).Msg("publication drafted")
	return s.reload(spanCtx, publication.ID)
}

func (s *publicationService) Update(ctx context.Context, actor Principal, id uint, payload dto.PublicationUpdateRequest) (dto.PublicationResponse, error) {
	if !models.IsStaffRole(actor.Role) {
		return dto.PublicationResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.PublicationResponse{}, err
	}

	publication, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.PublicationResponse{}, err
	}

	if payload.Title != nil {
		title := strings.TrimSpace(s.strict.Sanitize(*payload.Title))
		if title == "" {
			return dto.PublicationResponse{}, ErrEmptyContent
		}
		if title != publication.Title {
			slug, err := s.uniqueSlug(ctx, title, publication.ID)
			if err != nil {
				return dto.PublicationResponse{}, err
			}
			publication.Title = title
			publication.Slug = slug
		}
	}
	if payload.Content != nil {
		content := strings.TrimSpace(s.sanitizer.Sanitize(*payload.Content))
		if content == "" {
			return dto.PublicationResponse{}, ErrEmptyContent
		}
		publication.Content = content
	}
	if payload.Category != nil {
		publication.Category = strings.TrimSpace(*payload.Category)
	}

	updatedBy := actor.UserID
	publication.UpdatedBy = &updatedBy

	if err := s.repo.Update(ctx, &publication); err != nil {
		return dto.PublicationResponse{}, err
	}
	if payload.ReportIDs != nil {
		if err := s.repo.ReplaceReports(ctx, &publication, payload.ReportIDs); err != nil {
			return dto.PublicationResponse{}, err
		}
	}

	return s.reload(ctx, publication.ID)
}

func (s *publicationService) Publish(ctx context.Context, actor Principal, id uint) (dto.PublicationResponse, error) {
	if !models.IsStaffRole(actor.Role) {
		return dto.PublicationResponse{}, ErrForbidden
	}

	publication, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.PublicationResponse{}, err
	}
	if publication.Status == models.PublicationPublished {
		return dto.NewPublicationResponse(publication), nil
	}

	now := s.now()
	publisher := actor.UserID
	publication.Status = models.PublicationPublished
	publication.PublishedAt = &now
	publication.PublishedBy = &publisher
	publication.ArchivedAt = nil
	publication.ArchivedBy = nil

	if err := s.repo.Update(ctx, &publication); err != nil {
		return dto.PublicationResponse{}, err
	}

	s.logger.Info().Uint("publication_id", publication.ID).Uint("published_by", publisher).Msg("publication published")
	return dto.NewPublicationResponse(publication), nil
}

func (s *publicationService) Archive(ctx context.Context, actor Principal, id uint) (dto.PublicationResponse, error) {
	if !models.IsStaffRole(actor.Role) {
		return dto.PublicationResponse{}, ErrForbidden
	}

	publication, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.PublicationResponse{}, err
	}
	switch publication.Status {
	case models.PublicationArchived:
		return dto.NewPublicationResponse(publication), nil
	case models.PublicationDraft:
		return dto.PublicationResponse{}, ErrInvalidStatusTransition
	}

	now := s.now()
	archiver := actor.UserID
	publication.Status = models.PublicationArchived
	publication.ArchivedAt = &now
	publication.ArchivedBy = &archiver

	if err := s.repo.Update(ctx, &publication); err != nil {
		return dto.PublicationResponse{}, err
	}
	return dto.NewPublicationResponse(publication), nil
}

func (s *publicationService) Delete(ctx context.Context, actor Principal, id uint) error {
	if !models.IsStaffRole(actor.Role) {
		return ErrForbidden
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *publicationService) ListComments(ctx context.Context, viewer *Principal, publicationID uint) ([]dto.PublicationCommentResponse, error) {
	if _, err := s.visible(ctx, viewer, publicationID); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListComments(ctx, publicationID, models.CommentApproved)
	if err != nil {
		return nil, err
	}
	return BuildCommentTree(comments), nil
}

func (s *publicationService) AddComment(ctx context.Context, actor Principal, publicationID uint, payload dto.PublicationCommentCreateRequest) (dto.PublicationCommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PublicationCommentResponse{}, err
	}

	if _, err := s.visible(ctx, &actor, publicationID); err != nil {
		return dto.PublicationCommentResponse{}, err
	}

	text := strings.TrimSpace(s.strict.Sanitize(payload.Comment))
	if text == "" {
		return dto.PublicationCommentResponse{}, ErrEmptyContent
	}

	if payload.ParentID != nil {
		parent, err := s.repo.GetComment(ctx, *payload.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.PublicationCommentResponse{}, ErrInvalidParent
			}
			return dto.PublicationCommentResponse{}, err
		}
		if parent.PublicationID != publicationID {
			return dto.PublicationCommentResponse{}, ErrInvalidParent
		}
	}

	comment := models.PublicationComment{
		PublicationID: publicationID,
		UserID:        actor.UserID,
		ParentID:      payload.ParentID,
		Comment:       text,
		Status:        models.CommentApproved,
	}
	if err := s.repo.CreateComment(ctx, &comment); err != nil {
		return dto.PublicationCommentResponse{}, err
	}

	stored, err := s.repo.GetComment(ctx, comment.ID)
	if err != nil {
		return dto.PublicationCommentResponse{}, err
	}
	return dto.NewPublicationCommentResponse(stored), nil
}

// DeleteComment removes a comment; a zero publicationID skips the ownership check against the publication.
func (s *publicationService) DeleteComment(ctx context.Context, actor Principal, publicationID, commentID uint) error {
	comment, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if publicationID != 0 && comment.PublicationID != publicationID {
		return gorm.ErrRecordNotFound
	}
	if comment.UserID != actor.UserID && !strings.EqualFold(actor.Role, models.RoleAdmin) {
		return ErrForbidden
	}
	return s.repo.DeleteComment(ctx, commentID)
}

func (s *publicationService) reload(ctx context.Context, id uint) (dto.PublicationResponse, error) {
	publication, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.PublicationResponse{}, err
	}
	return dto.NewPublicationResponse(publication), nil
}

// uniqueSlug derives a slug from the title, suffixing -2, -3, ... until it is free.
func (s *publicationService) uniqueSlug(ctx context.Context, title string, excludeID uint) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "publication"
	}

	candidate := base
	for attempt := 2; attempt < 1000; attempt++ {
		exists, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return fmt.Sprintf("%s-%d", base, s.now().UnixNano()), nil
}

// Slugify lowercases the value and joins alphanumeric runs with hyphens.
func Slugify(value string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 200 {
		slug = strings.TrimRight(slug[:200], "-")
	}
	return slug
}

// BuildCommentTree nests approved replies under their parents.
func BuildCommentTree(comments []models.PublicationComment) []dto.PublicationCommentResponse {
	present := make(map[uint]struct{}, len(comments))
	for _, comment := range comments {
		present[comment.ID] = struct{}{}
	}

	children := make(map[uint][]models.PublicationComment)
	roots := make([]models.PublicationComment, 0)
	for _, comment := range comments {
		if comment.ParentID != nil {
			if _, ok := present[*comment.ParentID]; ok && *comment.ParentID != comment.ID {
				children[*comment.ParentID] = append(children[*comment.ParentID], comment)
				continue
			}
		}
		roots = append(roots, comment)
	}

	visited := make(map[uint]struct{}, len(comments))
	var build func(comment models.PublicationComment) dto.PublicationCommentResponse
	build = func(comment models.PublicationComment) dto.PublicationCommentResponse {
		visited[comment.ID] = struct{}{}
		node := dto.NewPublicationCommentResponse(comment)
		for _, child := range children[comment.ID] {
			if _, seen := visited[child.ID]; seen {
				continue
			}
			node.Replies = append(node.Replies, build(child))
		}
		return node
	}

	out := make([]dto.PublicationCommentResponse, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out
}

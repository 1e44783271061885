package dto

import (
	"time"

	"github.com/astacala/rescue-api/internal/models"
)

// PublicationCreateRequest creates a draft publication.
type PublicationCreateRequest struct {
	Title     string `json:"title" validate:"required,min=3,max=255"`
	Content   string `json:"content" validate:"required,min=10"`
	Category  string `json:"category" validate:"omitempty,max=64"`
	ReportIDs []uint `json:"report_ids" validate:"omitempty,max=50"`
}

// PublicationUpdateRequest partially updates a publication.
type PublicationUpdateRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=3,max=255"`
	Content   *string `json:"content" validate:"omitempty,min=10"`
	Category  *string `json:"category" validate:"omitempty,max=64"`
	ReportIDs []uint  `json:"report_ids" validate:"omitempty,max=50"`
}

// PublicationListQuery filters publication listings.
type PublicationListQuery struct {
	Status   string
	Category string
	Search   string
	Page     int
	PerPage  int
}

// PublicationResponse is the serialized publication.
type PublicationResponse struct {
	ID          uint         `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Content     string       `json:"content"`
	Category    string       `json:"category,omitempty"`
	Status      string       `json:"status"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	AuthorID    uint         `json:"author_id"`
	Author      *UserSummary `json:"author,omitempty"`
	PublishedBy *uint        `json:"published_by,omitempty"`
	UpdatedBy   *uint        `json:"updated_by,omitempty"`
	ArchivedBy  *uint        `json:"archived_by,omitempty"`
	ArchivedAt  *time.Time   `json:"archived_at,omitempty"`
	ReportIDs   []uint       `json:"report_ids"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PublicationCommentCreateRequest adds a comment or reply to a publication.
type PublicationCommentCreateRequest struct {
	Comment  string `json:"comment" validate:"required,min=1,max=2000"`
	ParentID *uint  `json:"parent_id"`
}

// PublicationCommentResponse is a serialized comment with nested replies.
type PublicationCommentResponse struct {
	ID            uint                         `json:"id"`
	PublicationID uint                         `json:"publication_id"`
	ParentID      *uint                        `json:"parent_id"`
	Comment       string                       `json:"comment"`
	Status        string                       `json:"status"`
	User          *UserSummary                 `json:"user,omitempty"`
	Replies       []PublicationCommentResponse `json:"replies"`
	CreatedAt     time.Time                    `json:"created_at"`
}

// NewPublicationResponse converts a publication model.
func NewPublicationResponse(model models.Publication) PublicationResponse {
	reportIDs := make([]uint, 0, len(model.Reports))
	for _, report := range model.Reports {
		reportIDs = append(reportIDs, report.ID)
	}
	return PublicationResponse{
		ID:          model.ID,
		Title:       model.Title,
		Slug:        model.Slug,
		Content:     model.Content,
		Category:    model.Category,
		Status:      model.Status,
		PublishedAt: model.PublishedAt,
		AuthorID:    model.AuthorID,
		Author:      NewUserSummary(model.Author),
		PublishedBy: model.PublishedBy,
		UpdatedBy:   model.UpdatedBy,
		ArchivedBy:  model.ArchivedBy,
		ArchivedAt:  model.ArchivedAt,
		ReportIDs:   reportIDs,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewPublicationResponseSlice converts publications to DTOs.
func NewPublicationResponseSlice(items []models.Publication) []PublicationResponse {
	out := make([]PublicationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewPublicationResponse(item))
	}
	return out
}

// NewPublicationCommentResponse converts a comment without its replies.
func NewPublicationCommentResponse(model models.PublicationComment) PublicationCommentResponse {
	return PublicationCommentResponse{
		ID:            model.ID,
		PublicationID: model.PublicationID,
		ParentID:      model.ParentID,
		Comment:       model.Comment,
		Status:        model.Status,
		User:          NewUserSummary(model.User),
		Replies:       []PublicationCommentResponse{},
		CreatedAt:     model.CreatedAt,
	}
}

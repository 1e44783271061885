package models

import (
	"time"

	"gorm.io/gorm"
)

// Publication statuses.
const (
	PublicationDraft     = "draft"
	PublicationPublished = "published"
	PublicationArchived  = "archived"
)

// Comment statuses.
const (
	CommentApproved = "approved"
	CommentPending  = "pending"
	CommentHidden   = "hidden"
)

// Publication is an article published by staff, optionally referencing disaster reports.
type Publication struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	Title       string               `gorm:"size:255;not null" json:"title"`
	Slug        string               `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Content     string               `gorm:"type:text;not null" json:"content"`
	Category    string               `gorm:"size:64;index" json:"category"`
	Status      string               `gorm:"size:16;index;not null" json:"status"`
	PublishedAt *time.Time           `json:"published_at"`
	AuthorID    uint                 `gorm:"index;not null" json:"author_id"`
	PublishedBy *uint                `json:"published_by"`
	UpdatedBy   *uint                `json:"updated_by"`
	ArchivedBy  *uint                `json:"archived_by"`
	ArchivedAt  *time.Time           `json:"archived_at"`
	Author      User                 `gorm:"foreignKey:AuthorID" json:"author"`
	Reports     []DisasterReport     `gorm:"many2many:publication_disaster_reports" json:"reports,omitempty"`
	Comments    []PublicationComment `gorm:"foreignKey:PublicationID" json:"comments,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	DeletedAt   gorm.DeletedAt       `gorm:"index" json:"-"`
}

// PublicationComment is a reader comment; replies reference their parent through ParentID.
type PublicationComment struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	PublicationID uint                 `gorm:"index;not null" json:"publication_id"`
	UserID        uint                 `gorm:"index;not null" json:"user_id"`
	ParentID      *uint                `gorm:"index" json:"parent_id"`
	Comment       string               `gorm:"type:text;not null" json:"comment"`
	Status        string               `gorm:"size:16;not null" json:"status"`
	User          User                 `gorm:"foreignKey:UserID" json:"user"`
	Replies       []PublicationComment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	DeletedAt     gorm.DeletedAt       `gorm:"index" json:"-"`
}

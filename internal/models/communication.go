package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Forum and notification priorities.
const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Notification types.
const (
	NotificationNewReport      = "NEW_REPORT"
	NotificationReportVerified = "REPORT_VERIFIED"
	NotificationReportRejected = "REPORT_REJECTED"
	NotificationForumMessage   = "FORUM_MESSAGE"
	NotificationSystem         = "SYSTEM"
)

// ForumMessage is a coordination message attached to a disaster report.
// Replies reference their parent through ParentMessageID.
type ForumMessage struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	DisasterReportID uint           `gorm:"index;not null" json:"disaster_report_id"`
	UserID           uint           `gorm:"index;not null" json:"user_id"`
	ParentMessageID  *uint          `gorm:"index" json:"parent_message_id"`
	Message          string         `gorm:"type:text;not null" json:"message"`
	PriorityLevel    string         `gorm:"size:16;not null" json:"priority_level"`
	IsRead           bool           `gorm:"not null" json:"is_read"`
	ReadAt           *time.Time     `json:"read_at"`
	EditedAt         *time.Time     `json:"edited_at"`
	User             User           `gorm:"foreignKey:UserID" json:"user"`
	Replies          []ForumMessage `gorm:"foreignKey:ParentMessageID" json:"replies,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// Notification is an in-app notification targeted to a single user.
type Notification struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	UserID          uint              `gorm:"index;not null" json:"user_id"`
	Title           string            `gorm:"size:255;not null" json:"title"`
	Message         string            `gorm:"type:text;not null" json:"message"`
	Type            string            `gorm:"size:64;index" json:"type"`
	Priority        string            `gorm:"size:16" json:"priority"`
	IsRead          bool              `gorm:"not null;index" json:"is_read"`
	ReadAt          *time.Time        `json:"read_at"`
	RelatedReportID *uint             `gorm:"index" json:"related_report_id"`
	ActionURL       string            `gorm:"size:512" json:"action_url"`
	Data            datatypes.JSONMap `gorm:"type:json" json:"data"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

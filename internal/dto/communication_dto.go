package dto

import (
	"time"

	"github.com/astacala/rescue-api/internal/models"
)

// ForumMessageCreateRequest posts a message (or a reply) on a report's forum.
type ForumMessageCreateRequest struct {
	Message         string `json:"message" validate:"required,min=1,max=2000"`
	PriorityLevel   string `json:"priority_level" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	ParentMessageID *uint  `json:"parent_message_id"`
}

// ForumMessageUpdateRequest edits an existing message.
type ForumMessageUpdateRequest struct {
	Message       string `json:"message" validate:"required,min=1,max=2000"`
	PriorityLevel string `json:"priority_level" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

// ForumMessageResponse is a serialized forum message with nested replies.
type ForumMessageResponse struct {
	ID               uint                   `json:"id"`
	DisasterReportID uint                   `json:"disaster_report_id"`
	ParentMessageID  *uint                  `json:"parent_message_id"`
	Message          string                 `json:"message"`
	PriorityLevel    string                 `json:"priority_level"`
	IsRead           bool                   `json:"is_read"`
	EditedAt         *time.Time             `json:"edited_at,omitempty"`
	User             *UserSummary           `json:"user,omitempty"`
	Replies          []ForumMessageResponse `json:"replies"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewForumMessageResponse converts a message without its replies.
func NewForumMessageResponse(message models.ForumMessage) ForumMessageResponse {
	return ForumMessageResponse{
		ID:               message.ID,
		DisasterReportID: message.DisasterReportID,
		ParentMessageID:  message.ParentMessageID,
		Message:          message.Message,
		PriorityLevel:    message.PriorityLevel,
		IsRead:           message.IsRead,
		EditedAt:         message.EditedAt,
		User:             NewUserSummary(message.User),
		Replies:          []ForumMessageResponse{},
		CreatedAt:        message.CreatedAt,
		UpdatedAt:        message.UpdatedAt,
	}
}

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	UserID          uint                   `json:"user_id" validate:"required"`
	Title           string                 `json:"title" validate:"required,min=1,max=255"`
	Message         string                 `json:"message" validate:"required,min=1,max=2000"`
	Type            string                 `json:"type" validate:"required,max=64"`
	Priority        string                 `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	RelatedReportID *uint                  `json:"related_report_id"`
	ActionURL       string                 `json:"action_url" validate:"omitempty,max=512"`
	Data            map[string]interface{} `json:"data"`
}

// NotificationBroadcastRequest sends the same notification to every active user of the given roles.
type NotificationBroadcastRequest struct {
	Title    string   `json:"title" validate:"required,min=1,max=255"`
	Message  string   `json:"message" validate:"required,min=1,max=2000"`
	Priority string   `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Roles    []string `json:"roles" validate:"omitempty,dive,oneof=VOLUNTEER ADMIN COORDINATOR"`
}

// NotificationListQuery filters a user's notifications.
type NotificationListQuery struct {
	UnreadOnly bool
	Page       int
	PerPage    int
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID              uint                   `json:"id"`
	UserID          uint                   `json:"user_id"`
	Title           string                 `json:"title"`
	Message         string                 `json:"message"`
	Type            string                 `json:"type"`
	Priority        string                 `json:"priority"`
	IsRead          bool                   `json:"is_read"`
	ReadAt          *time.Time             `json:"read_at,omitempty"`
	RelatedReportID *uint                  `json:"related_report_id,omitempty"`
	ActionURL       string                 `json:"action_url,omitempty"`
	Data            map[string]interface{} `json:"data,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// UnreadCountResponse reports how many notifications are unread.
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	var data map[string]interface{}
	if len(model.Data) > 0 {
		data = map[string]interface{}(model.Data)
	}
	return NotificationResponse{
		ID:              model.ID,
		UserID:          model.UserID,
		Title:           model.Title,
		Message:         model.Message,
		Type:            model.Type,
		Priority:        model.Priority,
		IsRead:          model.IsRead,
		ReadAt:          model.ReadAt,
		RelatedReportID: model.RelatedReportID,
		ActionURL:       model.ActionURL,
		Data:            data,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// BroadcastEvent is the payload delivered on realtime channels.
type BroadcastEvent struct {
	Event   string      `json:"event"`
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
	SentAt  time.Time   `json:"sent_at"`
}

package dto

import (
	"time"

	"github.com/astacala/rescue-api/internal/models"
)

// DailyReportPoint counts reports submitted on a single day.
type DailyReportPoint struct {
	Date    string `json:"date"`
	Reports int64  `json:"reports"`
}

// DashboardStatisticsResponse aggregates counters for the admin dashboard.
type DashboardStatisticsResponse struct {
	TotalReports        int64              `json:"total_reports"`
	PendingReports      int64              `json:"pending_reports"`
	VerifiedReports     int64              `json:"verified_reports"`
	CriticalReports     int64              `json:"critical_reports"`
	ByStatus            map[string]int64   `json:"by_status"`
	BySeverity          map[string]int64   `json:"by_severity"`
	ByType              map[string]int64   `json:"by_type"`
	LastSevenDays       []DailyReportPoint `json:"last_seven_days"`
	ActiveVolunteers    int64              `json:"active_volunteers"`
	TotalUsers          int64              `json:"total_users"`
	PublishedArticles   int64              `json:"published_publications"`
	UnreadNotifications int64              `json:"unread_notifications"`
	GeneratedAt         time.Time          `json:"generated_at"`
	CacheHit            bool               `json:"cache_hit"`
}

// SecurityEventListQuery filters the security event listing.
type SecurityEventListQuery struct {
	IPAddress string
	Kind      string
	Page      int
	PerPage   int
}

// SecurityEventResponse describes a recorded suspicious-activity event.
type SecurityEventResponse struct {
	ID        uint                   `json:"id"`
	IPAddress string                 `json:"ip_address"`
	UserID    *uint                  `json:"user_id,omitempty"`
	Kind      string                 `json:"kind"`
	Method    string                 `json:"method"`
	Path      string                 `json:"path"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewSecurityEventResponseSlice converts security events to DTOs.
func NewSecurityEventResponseSlice(items []models.SecurityEvent) []SecurityEventResponse {
	out := make([]SecurityEventResponse, 0, len(items))
	for _, item := range items {
		out = append(out, SecurityEventResponse{
			ID:        item.ID,
			IPAddress: item.IPAddress,
			UserID:    item.UserID,
			Kind:      item.Kind,
			Method:    item.Method,
			Path:      item.Path,
			UserAgent: item.UserAgent,
			Details:   map[string]interface{}(item.Details),
			CreatedAt: item.CreatedAt,
		})
	}
	return out
}

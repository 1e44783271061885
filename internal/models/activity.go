package models

import (
	"time"

	"gorm.io/datatypes"
)

// Security event kinds.
const (
	SecurityEventInjection    = "injection_attempt"
	SecurityEventMissingAgent = "missing_user_agent"
	SecurityEventFailedLogin  = "failed_login"
	SecurityEventBlocked      = "client_blocked"
)

// SecurityEvent captures suspicious client activity detected by the request guard.
type SecurityEvent struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	IPAddress string            `gorm:"size:64;index;not null" json:"ip_address"`
	UserID    *uint             `gorm:"index" json:"user_id"`
	Kind      string            `gorm:"size:64;index;not null" json:"kind"`
	Method    string            `gorm:"size:16" json:"method"`
	Path      string            `gorm:"size:512" json:"path"`
	UserAgent string            `gorm:"size:512" json:"user_agent"`
	Details   datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt time.Time         `json:"created_at"`
}

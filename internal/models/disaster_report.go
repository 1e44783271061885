package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Disaster types.
const (
	DisasterEarthquake = "EARTHQUAKE"
	DisasterFlood      = "FLOOD"
	DisasterFire       = "FIRE"
	DisasterLandslide  = "LANDSLIDE"
	DisasterTsunami    = "TSUNAMI"
	DisasterVolcano    = "VOLCANO"
	DisasterStorm      = "STORM"
	DisasterDrought    = "DROUGHT"
	DisasterOther      = "OTHER"
)

// Severity levels.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Report statuses.
const (
	ReportStatusPending  = "PENDING"
	ReportStatusVerified = "VERIFIED"
	ReportStatusActive   = "ACTIVE"
	ReportStatusResolved = "RESOLVED"
	ReportStatusRejected = "REJECTED"
)

// DisasterTypes lists every accepted disaster type.
var DisasterTypes = []string{DisasterEarthquake, DisasterFlood, DisasterFire, DisasterLandslide, DisasterTsunami, DisasterVolcano, DisasterStorm, DisasterDrought, DisasterOther}

// SeverityLevels lists severities from least to most severe.
var SeverityLevels = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ReportStatuses lists every report status.
var ReportStatuses = []string{ReportStatusPending, ReportStatusVerified, ReportStatusActive, ReportStatusResolved, ReportStatusRejected}

// DisasterReport is an incident submitted by a volunteer.
type DisasterReport struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	Title             string            `gorm:"size:255;not null" json:"title"`
	Description       string            `gorm:"type:text;not null" json:"description"`
	DisasterType      string            `gorm:"size:32;index;not null" json:"disaster_type"`
	SeverityLevel     string            `gorm:"size:16;index;not null" json:"severity_level"`
	Status            string            `gorm:"size:16;index;not null" json:"status"`
	Latitude          float64           `gorm:"not null" json:"latitude"`
	Longitude         float64           `gorm:"not null" json:"longitude"`
	LocationName      string            `gorm:"size:255" json:"location_name"`
	Address           string            `gorm:"type:text" json:"address"`
	IncidentTimestamp time.Time         `json:"incident_timestamp"`
	TeamName          string            `gorm:"size:255" json:"team_name"`
	PersonnelCount    int               `json:"personnel_count"`
	CasualtyCount     int               `json:"casualty_count"`
	Metadata          datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	ReportedBy        uint              `gorm:"index;not null" json:"reported_by"`
	AssignedTo        *uint             `gorm:"index" json:"assigned_to"`
	VerifiedBy        *uint             `json:"verified_by"`
	VerifiedAt        *time.Time        `json:"verified_at"`
	VerificationNotes string            `gorm:"type:text" json:"verification_notes"`
	Reporter          User              `gorm:"foreignKey:ReportedBy" json:"reporter"`
	Assignee          *User             `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Images            []ReportImage     `gorm:"foreignKey:DisasterReportID" json:"images"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`
}

// ReportImage is a photo attached to a disaster report.
type ReportImage struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	DisasterReportID uint      `gorm:"index;not null" json:"disaster_report_id"`
	ImageURL         string    `gorm:"size:1024;not null" json:"image_url"`
	ThumbnailURL     string    `gorm:"size:1024" json:"thumbnail_url"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `gorm:"size:64" json:"mime_type"`
	IsPrimary        bool      `json:"is_primary"`
	UploadedBy       uint      `json:"uploaded_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsOneOf reports whether value matches one of the options, ignoring case.
func IsOneOf(value string, options []string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, option := range options {
		if option == normalized {
			return true
		}
	}
	return false
}

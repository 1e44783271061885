package dto

import (
	"time"

	"github.com/astacala/rescue-api/internal/models"
)

// ReportCreateRequest is the payload used to submit a disaster report.
type ReportCreateRequest struct {
	Title             string                 `json:"title" validate:"required,min=3,max=255"`
	Description       string                 `json:"description" validate:"required,min=10,max=5000"`
	DisasterType      string                 `json:"disaster_type" validate:"required,oneof=EARTHQUAKE FLOOD FIRE LANDSLIDE TSUNAMI VOLCANO STORM DROUGHT OTHER"`
	SeverityLevel     string                 `json:"severity_level" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Latitude          float64                `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude         float64                `json:"longitude" validate:"gte=-180,lte=180"`
	LocationName      string                 `json:"location_name" validate:"omitempty,max=255"`
	Address           string                 `json:"address" validate:"omitempty,max=1000"`
	IncidentTimestamp *time.Time             `json:"incident_timestamp"`
	TeamName          string                 `json:"team_name" validate:"omitempty,max=255"`
	PersonnelCount    int                    `json:"personnel_count" validate:"gte=0,lte=100000"`
	CasualtyCount     int                    `json:"casualty_count" validate:"gte=0,lte=1000000"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// ReportUpdateRequest partially updates a disaster report.
type ReportUpdateRequest struct {
	Title          *string                `json:"title" validate:"omitempty,min=3,max=255"`
	Description    *string                `json:"description" validate:"omitempty,min=10,max=5000"`
	DisasterType   *string                `json:"disaster_type" validate:"omitempty,oneof=EARTHQUAKE FLOOD FIRE LANDSLIDE TSUNAMI VOLCANO STORM DROUGHT OTHER"`
	SeverityLevel  *string                `json:"severity_level" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Status         *string                `json:"status" validate:"omitempty,oneof=PENDING VERIFIED ACTIVE RESOLVED REJECTED"`
	Latitude       *float64               `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64               `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	LocationName   *string                `json:"location_name" validate:"omitempty,max=255"`
	Address        *string                `json:"address" validate:"omitempty,max=1000"`
	TeamName       *string                `json:"team_name" validate:"omitempty,max=255"`
	PersonnelCount *int                   `json:"personnel_count" validate:"omitempty,gte=0,lte=100000"`
	CasualtyCount  *int                   `json:"casualty_count" validate:"omitempty,gte=0,lte=1000000"`
	AssignedTo     *uint                  `json:"assigned_to"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// ReportVerifyRequest records a staff verification decision.
type ReportVerifyRequest struct {
	Status string `json:"status" validate:"required,oneof=VERIFIED REJECTED"`
	Notes  string `json:"verification_notes" validate:"omitempty,max=2000"`
}

// ReportListQuery filters the report listing.
type ReportListQuery struct {
	Status        string
	DisasterType  string
	SeverityLevel string
	ReporterID    *uint
	Search        string
	Page          int
	PerPage       int
}

// ReportImageResponse describes an image attached to a report.
type ReportImageResponse struct {
	ID           uint      `json:"id"`
	ImageURL     string    `json:"image_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	FileSize     int64     `json:"file_size"`
	MimeType     string    `json:"mime_type,omitempty"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReportResponse is the serialized disaster report.
type ReportResponse struct {
	ID                uint                   `json:"id"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	DisasterType      string                 `json:"disaster_type"`
	SeverityLevel     string                 `json:"severity_level"`
	Status            string                 `json:"status"`
	Latitude          float64                `json:"latitude"`
	Longitude         float64                `json:"longitude"`
	LocationName      string                 `json:"location_name,omitempty"`
	Address           string                 `json:"address,omitempty"`
	IncidentTimestamp time.Time              `json:"incident_timestamp"`
	TeamName          string                 `json:"team_name,omitempty"`
	PersonnelCount    int                    `json:"personnel_count"`
	CasualtyCount     int                    `json:"casualty_count"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	ReportedBy        uint                   `json:"reported_by"`
	AssignedTo        *uint                  `json:"assigned_to,omitempty"`
	VerifiedBy        *uint                  `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time             `json:"verified_at,omitempty"`
	VerificationNotes string                 `json:"verification_notes,omitempty"`
	Reporter          *UserSummary           `json:"reporter,omitempty"`
	Images            []ReportImageResponse  `json:"images"`
	MessageCount      *int64                 `json:"message_count,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// ReportStatisticsResponse aggregates report counters.
type ReportStatisticsResponse struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	BySeverity map[string]int64 `json:"by_severity"`
	ByType     map[string]int64 `json:"by_type"`
}

// NewReportImageResponse converts an image model.
func NewReportImageResponse(image models.ReportImage) ReportImageResponse {
	return ReportImageResponse{
		ID:           image.ID,
		ImageURL:     image.ImageURL,
		ThumbnailURL: image.ThumbnailURL,
		FileSize:     image.FileSize,
		MimeType:     image.MimeType,
		IsPrimary:    image.IsPrimary,
		CreatedAt:    image.CreatedAt,
	}
}

// NewReportResponse converts a report model including preloaded associations.
func NewReportResponse(report models.DisasterReport) ReportResponse {
	images := make([]ReportImageResponse, 0, len(report.Images))
	for _, image := range report.Images {
		images = append(images, NewReportImageResponse(image))
	}

	var metadata map[string]interface{}
	if len(report.Metadata) > 0 {
		metadata = map[string]interface{}(report.Metadata)
	}

	return ReportResponse{
		ID:                report.ID,
		Title:             report.Title,
		Description:       report.Description,
		DisasterType:      report.DisasterType,
		SeverityLevel:     report.SeverityLevel,
		Status:            report.Status,
		Latitude:          report.Latitude,
		Longitude:         report.Longitude,
		LocationName:      report.LocationName,
		Address:           report.Address,
		IncidentTimestamp: report.IncidentTimestamp,
		TeamName:          report.TeamName,
		PersonnelCount:    report.PersonnelCount,
		CasualtyCount:     report.CasualtyCount,
		Metadata:          metadata,
		ReportedBy:        report.ReportedBy,
		AssignedTo:        report.AssignedTo,
		VerifiedBy:        report.VerifiedBy,
		VerifiedAt:        report.VerifiedAt,
		VerificationNotes: report.VerificationNotes,
		Reporter:          NewUserSummary(report.Reporter),
		Images:            images,
		CreatedAt:         report.CreatedAt,
		UpdatedAt:         report.UpdatedAt,
	}
}

// NewReportResponseSlice converts a slice of reports.
func NewReportResponseSlice(reports []models.DisasterReport) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, NewReportResponse(report))
	}
	return out
}

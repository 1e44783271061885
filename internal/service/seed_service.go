package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
)

// ErrSeedPasswordRequired indicates no admin password was configured for seeding.
var ErrSeedPasswordRequired = errors.New("seed admin password is required")

const (
	seedVolunteerEmail    = "volunteer@astacala.local"
	seedVolunteerPassword = "volunteer-demo-123"
)

// SeedOptions configures the seeded accounts.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
}

// SeedResult reports what a seeding run created.
type SeedResult struct {
	AdminCreated     bool `json:"admin_created"`
	VolunteerCreated bool `json:"volunteer_created"`
	ReportsCreated   int  `json:"reports_created"`
}

// SeedService creates the bootstrap accounts and demo data.
type SeedService interface {
	Seed(ctx context.Context) (SeedResult, error)
}

type seedService struct {
	users   repository.UserRepository
	reports repository.ReportRepository
	opts    SeedOptions
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, reports repository.ReportRepository, opts SeedOptions, logger zerolog.Logger) SeedService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	opts.AdminEmail = strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	return &seedService{
		users:   users,
		reports: reports,
		opts:    opts,
		logger:  logger.With().Str("component", "seed_service").Logger(),
		now:     time.Now,
	}
}

// Seed is idempotent: accounts are matched by email and sample reports are only added
// when the volunteer has none.
func (s *seedService) Seed(ctx context.Context) (SeedResult, error) {
	var result SeedResult
	if strings.TrimSpace(s.opts.AdminPassword) == "" {
		return result, ErrSeedPasswordRequired
	}

	_, created, err := s.ensureUser(ctx, "Astacala Administrator", s.opts.AdminEmail, s.opts.AdminPassword, models.RoleAdmin)
	if err != nil {
		return result, err
	}
	result.AdminCreated = created

	volunteer, created, err := s.ensureUser(ctx, "Demo Volunteer", seedVolunteerEmail, seedVolunteerPassword, models.RoleVolunteer)
	if err != nil {
		return result, err
	}
	result.VolunteerCreated = created

	reporterID := volunteer.ID
	_, total, err := s.reports.List(ctx, repository.ReportFilter{ReporterID: &reporterID, Page: 1, PerPage: 1})
	if err != nil {
		return result, err
	}
	if total == 0 {
		for _, report := range s.sampleReports(volunteer.ID) {
			if err := s.reports.Create(ctx, &report); err != nil {
				return result, err
			}
			result.ReportsCreated++
		}
	}

	s.logger.Info().
		Bool("admin_created", result.AdminCreated).
		Bool("volunteer_created", result.VolunteerCreated).
		Int("reports_created", result.ReportsCreated).
		Msg("seed completed")
	return result, nil
}

func (s *seedService) ensureUser(ctx context.Context, name, email, password, role string) (models.User, bool, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return models.User{}, false, err
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

func (s *seedService) sampleReports(reporterID uint) []models.DisasterReport {
	now := s.now().UTC()
	return []models.DisasterReport{
		{
			Title:             "Flash flood in riverside settlement",
			Description:       "Water level rose quickly after heavy rain; several houses are submerged.",
			DisasterType:      models.DisasterFlood,
			SeverityLevel:     models.SeverityHigh,
			Status:            models.ReportStatusPending,
			Latitude:          -6.914744,
			Longitude:         107.609810,
			LocationName:      "Bandung",
			IncidentTimestamp: now.Add(-3 * time.Hour),
			TeamName:          "Astacala Team Alpha",
			PersonnelCount:    6,
			Metadata:          datatypes.JSONMap{"source": "seed"},
			ReportedBy:        reporterID,
		},
		{
			Title:             "Landslide blocking mountain road",
			Description:       "A landslide cut off access to the village; no casualties reported yet.",
			DisasterType:      models.DisasterLandslide,
			SeverityLevel:     models.SeverityMedium,
			Status:            models.ReportStatusPending,
			Latitude:          -7.250445,
			Longitude:         112.768845,
			LocationName:      "Malang",
			IncidentTimestamp: now.Add(-26 * time.Hour),
			TeamName:          "Astacala Team Bravo",
			PersonnelCount:    4,
			Metadata:          datatypes.JSONMap{"source": "seed"},
			ReportedBy:        reporterID,
		},
	}
}

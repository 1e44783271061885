package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:         strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestReport(t *testing.T, db *gorm.DB, reporter uint, title string) models.DisasterReport {
	t.Helper()
	report := models.DisasterReport{
		Title:         title,
		Description:   "Flood water reached the second floor of several houses",
		DisasterType:  models.DisasterFlood,
		SeverityLevel: models.SeverityHigh,
		Status:        models.ReportStatusPending,
		Latitude:      -6.9,
		Longitude:     107.6,
		ReportedBy:    reporter,
	}
	require.NoError(t, db.Omit("Reporter", "Assignee", "Images").Create(&report).Error)
	return report
}

type recordedBroadcast struct {
	Event    string
	Data     interface{}
	Channels []string
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedBroadcast
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, event string, data interface{}, channels ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedBroadcast{Event: event, Data: data, Channels: append([]string(nil), channels...)})
}

func (r *recordingBroadcaster) byEvent(event string) []recordedBroadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedBroadcast, 0)
	for _, item := range r.events {
		if item.Event == event {
			out = append(out, item)
		}
	}
	return out
}

type stubPublisher struct {
	mu        sync.Mutex
	published []dto.NotificationCreateRequest
	users     [][]uint
	roles     [][]string
	payloads  []dto.NotificationCreateRequest
}

func (s *stubPublisher) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, payload)
	return dto.NotificationResponse{UserID: payload.UserID, Title: payload.Title, Type: payload.Type}, nil
}

func (s *stubPublisher) NotifyUsers(_ context.Context, userIDs []uint, payload dto.NotificationCreateRequest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, append([]uint(nil), userIDs...))
	s.payloads = append(s.payloads, payload)
	return len(userIDs), nil
}

func (s *stubPublisher) NotifyRoles(_ context.Context, roles []string, payload dto.NotificationCreateRequest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = append(s.roles, append([]string(nil), roles...))
	s.payloads = append(s.payloads, payload)
	return len(roles), nil
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/repository"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

const testPassword = "password123"

type envelope struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Data      json.RawMessage        `json:"data"`
	ErrorCode string                 `json:"error_code"`
	Errors    json.RawMessage        `json:"errors"`
	Meta      map[string]interface{} `json:"meta"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target), string(body))
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var body envelope
	decodeResponse(t, resp, &body)
	return body
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return req
}

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
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

// asUser stands in for the auth middleware by populating the principal locals.
func asUser(user models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", user.ID)
		c.Locals("user_role", user.Role)
		return c.Next()
	}
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStorage) Upload(_ context.Context, folder, name string, reader io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	key := folder + "/" + name
	m.objects[key] = data
	return "https://files.test/" + key, nil
}

func (m *memoryStorage) ThumbnailURL(url string) string {
	return url + "?thumb=1"
}

type testStack struct {
	db            *gorm.DB
	auth          service.AuthService
	users         service.UserService
	security      service.SecurityService
	realtime      service.RealtimeService
	notifications service.NotificationService
	reports       service.ReportService
	forum         service.ForumService
	publications  service.PublicationService
	files         service.FileService
	dashboard     service.DashboardService
	storage       *memoryStorage
}

func newTestStack(t *testing.T) testStack {
	t.Helper()

	db := setupHandlerDB(t)
	logger := zerolog.Nop()
	validate := utils.NewValidator()

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewAccessTokenRepository(db)
	reportRepo := repository.NewReportRepository(db)
	forumRepo := repository.NewForumRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)

	security := service.NewSecurityService(repository.NewSecurityEventRepository(db), nil, service.SecurityOptions{}, logger)
	users := service.NewUserService(userRepo, tokenRepo, validate, logger)
	realtime := service.NewRealtimeService(nil, "", nil, logger)
	notifications := service.NewNotificationService(notificationRepo, userRepo, realtime, nil, "", nil, validate, logger)
	storage := &memoryStorage{}
	auth := service.NewAuthService(userRepo, tokenRepo, security, validate, service.AuthOptions{
		Secret:     "test-secret",
		BcryptCost: bcrypt.MinCost,
	}, logger)

	dashboard := service.NewDashboardService(repository.NewDashboardRepository(db), reportRepo, publicationRepo, notificationRepo, nil, "test", 0, logger)

	return testStack{
		db:            db,
		auth:          auth,
		users:         users,
		security:      security,
		realtime:      realtime,
		notifications: notifications,
		reports:       service.NewReportService(reportRepo, forumRepo, notifications, realtime, validate, logger, service.WithStatisticsInvalidator(dashboard)),
		forum:         service.NewForumService(forumRepo, reportRepo, notifications, realtime, validate, logger),
		publications:  service.NewPublicationService(publicationRepo, validate, logger),
		files:         service.NewFileService(storage, users, reportRepo, 1, logger),
		dashboard:     dashboard,
		storage:       storage,
	}
}

func createReport(t *testing.T, stack testStack, reporter models.User, title string) uint {
	t.Helper()
	report, err := stack.reports.Create(context.Background(), service.Principal{UserID: reporter.ID, Role: reporter.Role}, reportPayload(title))
	require.NoError(t, err)
	return report.ID
}

func reportPayload(title string) dto.ReportCreateRequest {
	return dto.ReportCreateRequest{
		Title:         title,
		Description:   "Flood water reached the second floor of several houses",
		DisasterType:  models.DisasterFlood,
		SeverityLevel: models.SeverityHigh,
		Latitude:      -6.9,
		Longitude:     107.6,
		LocationName:  "Bandung",
	}
}

// startServer serves app on a loopback listener for streaming and websocket tests.
func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	t.Cleanup(func() {
		_ = app.ShutdownWithTimeout(time.Second)
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})

	return listener.Addr().String()
}

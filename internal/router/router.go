package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/config"
	"github.com/astacala/rescue-api/internal/handler"
	"github.com/astacala/rescue-api/internal/middleware"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DB                  *gorm.DB
	Redis               *redis.Client
	LimiterStorage      fiber.Storage
	AuthMiddleware      fiber.Handler
	OptionalAuth        fiber.Handler
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	ReportHandler       *handler.ReportHandler
	FilesHandler        *handler.FilesHandler
	ForumHandler        *handler.ForumHandler
	NotificationHandler *handler.NotificationHandler
	PublicationHandler  *handler.PublicationHandler
	RealtimeHandler     *handler.RealtimeHandler
	AdminHandler        *handler.AdminHandler
	GibranHandler       *handler.GibranHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB, deps.Redis))

	// Use provided auth middleware, or a no-op if nil
	auth := deps.AuthMiddleware
	if auth == nil {
		auth = func(c *fiber.Ctx) error { return c.Next() }
	}
	optionalAuth := deps.OptionalAuth
	if optionalAuth == nil {
		optionalAuth = func(c *fiber.Ctx) error { return c.Next() }
	}

	authLimit := middleware.RateLimit(middleware.RateClassAuth, deps.LimiterStorage)
	uploadLimit := middleware.RateLimit(middleware.RateClassUpload, deps.LimiterStorage)
	reportsLimit := middleware.RateLimit(middleware.RateClassReports, deps.LimiterStorage)
	general := middleware.RateLimit(middleware.RateClassGeneral, deps.LimiterStorage)
	// Counts rejected requests per IP ahead of auth so invalid tokens are throttled as well.
	rejected := middleware.RateLimitFailures(middleware.RateClassGeneral, deps.LimiterStorage)

	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleCoordinator)

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), auth, authLimit)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", rejected, auth, general)
		deps.UserHandler.Register(users)
		deps.UserHandler.RegisterAdmin(users, admin)
	}

	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(api.Group("/reports", rejected, auth, general), reportsLimit, staff)
	}

	if deps.FilesHandler != nil {
		deps.FilesHandler.Register(api.Group("/files", rejected, auth, uploadLimit))
	}

	if deps.ForumHandler != nil {
		deps.ForumHandler.Register(api.Group("/forum", rejected, auth, general))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", rejected, auth, general), admin)
	}

	if deps.PublicationHandler != nil {
		deps.PublicationHandler.Register(api.Group("/publications", general), handler.PublicationRoutes{
			OptionalAuth: optionalAuth,
			Auth:         auth,
			Staff:        staff,
		})
	}

	if deps.RealtimeHandler != nil {
		deps.RealtimeHandler.Register(api.Group("/realtime", rejected), auth)
	}

	if deps.AdminHandler != nil {
		deps.AdminHandler.Register(api.Group("/admin", rejected, auth, general, staff))
	}

	if deps.GibranHandler != nil && deps.AuthHandler != nil {
		gibran := app.Group("/gibran")
		// Registered before the authenticated group so the login route answers first.
		gibran.Post("/auth/login", middleware.ForcePlatform(middleware.PlatformWeb), authLimit, deps.AuthHandler.Login)
		deps.GibranHandler.Register(gibran.Group("", rejected, auth, general))
	}
}

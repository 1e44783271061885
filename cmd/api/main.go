package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/config"
	"github.com/astacala/rescue-api/internal/database"
	"github.com/astacala/rescue-api/internal/handler"
	"github.com/astacala/rescue-api/internal/middleware"
	"github.com/astacala/rescue-api/internal/repository"
	"github.com/astacala/rescue-api/internal/router"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
	cloud "github.com/astacala/rescue-api/pkg/cloudinary"
	objectstore "github.com/astacala/rescue-api/pkg/minio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level := zerolog.InfoLevel
	if cfg.AppDebug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	var sharedStorage fiber.Storage
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		sharedStorage = database.NewRedisStorage(redisClient, cfg.RealtimeChannelBase)
	} else {
		logger.Warn().Msg("redis not configured; rate limits, sessions and block list stay in process memory")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := newFileStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to create file storage: %v", err)
	}

	validate := utils.NewValidator()

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewAccessTokenRepository(db)
	reportRepo := repository.NewReportRepository(db)
	forumRepo := repository.NewForumRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	securityRepo := repository.NewSecurityEventRepository(db)

	securityService := service.NewSecurityService(securityRepo, redisClient, service.SecurityOptions{
		KeyPrefix:            cfg.RealtimeChannelBase,
		BlockTTL:             cfg.SecurityBlockTTL,
		FailedLoginThreshold: cfg.FailedLoginThreshold,
	}, logger)
	authService := service.NewAuthService(userRepo, tokenRepo, securityService, validate, service.AuthOptions{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.JWTTTL,
	}, logger)
	userService := service.NewUserService(userRepo, tokenRepo, validate, logger)
	realtimeService := service.NewRealtimeService(redisClient, cfg.RealtimeChannelBase, natsConn, logger)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, realtimeService, redisClient, cfg.RealtimeChannelBase, natsConn, validate, logger)
	dashboardService := service.NewDashboardService(dashboardRepo, reportRepo, publicationRepo, notificationRepo, redisClient, cfg.RealtimeChannelBase, cfg.DashboardCacheTTL, logger)
	reportService := service.NewReportService(reportRepo, forumRepo, notificationService, realtimeService, validate, logger, service.WithStatisticsInvalidator(dashboardService))
	forumService := service.NewForumService(forumRepo, reportRepo, notificationService, realtimeService, validate, logger)
	publicationService := service.NewPublicationService(publicationRepo, validate, logger)
	fileService := service.NewFileService(storage, userService, reportRepo, cfg.UploadMaxMB, logger)

	realtimeService.Start(ctx)
	notificationService.Start(ctx)

	sessions := middleware.NewSessionStore(sharedStorage, cfg.SessionTTL, cfg.IsProduction())

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB*service.MaxImagesPerUpload + 1) * 1024 * 1024,
		ErrorHandler: handler.ErrorHandler(cfg.AppDebug, logger),
	})

	middleware.Register(app, middleware.Config{
		Logger: &logger,
		Guard:  securityService,
	})
	router.Register(app, cfg, router.Dependencies{
		DB:             db,
		Redis:          redisClient,
		LimiterStorage: sharedStorage,
		AuthMiddleware: middleware.DualAuth(middleware.DualAuthConfig{Auth: authService, Sessions: sessions}),
		OptionalAuth:   middleware.DualAuth(middleware.DualAuthConfig{Auth: authService, Sessions: sessions, Optional: true}),

		AuthHandler:         handler.NewAuthHandler(authService, sessions, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		ReportHandler:       handler.NewReportHandler(reportService, logger),
		FilesHandler:        handler.NewFilesHandler(fileService, logger),
		ForumHandler:        handler.NewForumHandler(forumService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive),
		PublicationHandler:  handler.NewPublicationHandler(publicationService, logger),
		RealtimeHandler:     handler.NewRealtimeHandler(realtimeService, logger),
		AdminHandler:        handler.NewAdminHandler(dashboardService, securityService, logger),
		GibranHandler:       handler.NewGibranHandler(reportService, publicationService, notificationService, dashboardService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func newFileStorage(ctx context.Context, cfg config.Config, logger zerolog.Logger) (service.FileStorage, error) {
	if cfg.StorageDriver == "minio" {
		return objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		}, logger)
	}

	return cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	AppDebug               bool
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	RealtimeChannelBase    string
	JWTSecret              string
	JWTTTL                 time.Duration
	SessionTTL             time.Duration
	StorageDriver          string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	MinioEndpoint          string
	MinioAccessKey         string
	MinioSecretKey         string
	MinioBucket            string
	MinioUseSSL            bool
	MinioPublicURL         string
	UploadMaxMB            int
	DashboardCacheTTL      time.Duration
	SecurityBlockTTL       time.Duration
	FailedLoginThreshold   int
	NotificationKeepAlive  time.Duration
	SeedAdminEmail         string
	SeedAdminPassword      string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production semantics.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ASTACALA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Astacala Rescue API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.debug", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("realtime.channel_base", "astacala")
	v.SetDefault("jwt.ttl", "720h")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("storage.driver", "cloudinary")
	v.SetDefault("cloudinary.folder", "astacala/rescue")
	v.SetDefault("minio.bucket", "astacala-rescue")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("dashboard.cache_ttl", "2m")
	v.SetDefault("security.block_ttl", "1h")
	v.SetDefault("security.failed_login_threshold", 10)
	v.SetDefault("notifications.keepalive", "30s")
	v.SetDefault("seed.admin_email", "admin@astacala.local")

	jwtTTL, err := parseDuration(v, "jwt.ttl", "720h")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := parseDuration(v, "session.ttl", "12h")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "dashboard.cache_ttl", "2m")
	if err != nil {
		return Config{}, err
	}
	blockTTL, err := parseDuration(v, "security.block_ttl", "1h")
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "notifications.keepalive", "30s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		AppDebug:               v.GetBool("app.debug"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		RealtimeChannelBase:    v.GetString("realtime.channel_base"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		SessionTTL:             sessionTTL,
		StorageDriver:          strings.ToLower(v.GetString("storage.driver")),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		MinioEndpoint:          v.GetString("minio.endpoint"),
		MinioAccessKey:         v.GetString("minio.access_key"),
		MinioSecretKey:         v.GetString("minio.secret_key"),
		MinioBucket:            v.GetString("minio.bucket"),
		MinioUseSSL:            v.GetBool("minio.use_ssl"),
		MinioPublicURL:         v.GetString("minio.public_url"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		DashboardCacheTTL:      cacheTTL,
		SecurityBlockTTL:       blockTTL,
		FailedLoginThreshold:   v.GetInt("security.failed_login_threshold"),
		NotificationKeepAlive:  keepAlive,
		SeedAdminEmail:         v.GetString("seed.admin_email"),
		SeedAdminPassword:      v.GetString("seed.admin_password"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		raw = fallback
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return value, nil
}

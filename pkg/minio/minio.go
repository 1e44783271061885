package minio

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Config contains connection details for an S3-compatible object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Service stores images in a MinIO bucket.
type Service struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    zerolog.Logger
}

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio endpoint and credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check minio bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create minio bucket: %w", err)
		}
	}

	return &Service{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: PublicBaseURL(cfg),
		logger:    logger.With().Str("component", "minio").Logger(),
	}, nil
}

// Upload stores the object under folder/name and returns its public URL.
func (s *Service) Upload(ctx context.Context, folder, name string, reader io.Reader, size int64, contentType string) (string, error) {
	objectName := ObjectName(folder, name, time.Now())

	info, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Info().Str("object", info.Key).Int64("size", info.Size).Msg("image uploaded to minio")

	return s.publicURL + "/" + objectName, nil
}

// ThumbnailURL returns the original URL; the bucket serves objects untransformed.
func (s *Service) ThumbnailURL(url string) string {
	return url
}

// PublicBaseURL resolves the base URL objects are served from.
func PublicBaseURL(cfg Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
}

// ObjectName builds a collision-resistant object key.
func ObjectName(folder, name string, now time.Time) string {
	return path.Join(strings.Trim(folder, "/"), fmt.Sprintf("%d-%s", now.UnixNano(), path.Base(name)))
}

package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/observability"
	"github.com/astacala/rescue-api/internal/repository"
)

// MaxImagesPerUpload bounds the number of files accepted by one report image upload.
const MaxImagesPerUpload = 5

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the content is not an accepted image type.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadMissing indicates no file was attached.
	ErrUploadMissing = errors.New("file is required")
	// ErrTooManyFiles indicates more images than accepted in a single upload.
	ErrTooManyFiles = fmt.Errorf("at most %d images per upload", MaxImagesPerUpload)
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, folder, name string, reader io.Reader, size int64, contentType string) (string, error)
	ThumbnailURL(url string) string
}

// FileService validates image uploads and records them against users and reports.
type FileService interface {
	UploadAvatar(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.AvatarResponse, error)
	UploadReportImages(ctx context.Context, actor Principal, reportID uint, files []*multipart.FileHeader) ([]dto.ReportImageResponse, error)
	DeleteReportImage(ctx context.Context, actor Principal, reportID, imageID uint) error
}

type fileService struct {
	storage FileStorage
	users   UserService
	reports repository.ReportRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

type storedImage struct {
	upload dto.UploadResponse
	size   int64
}

// NewFileService constructs the file service.
func NewFileService(storage FileStorage, users UserService, reports repository.ReportRepository, maxSizeMB int, logger zerolog.Logger) FileService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &fileService{
		storage: storage,
		users:   users,
		reports: reports,
		logger:  logger.With().Str("component", "file_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/astacala/rescue-api/internal/service/files"),
	}
}

func (s *fileService) UploadAvatar(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.AvatarResponse, error) {
	stored, err := s.store(ctx, "avatars", file, "avatar")
	if err != nil {
		return dto.AvatarResponse{}, err
	}

	user, err := s.users.UpdateAvatar(ctx, userID, stored.upload.URL)
	if err != nil {
		return dto.AvatarResponse{}, err
	}

	return dto.AvatarResponse{ProfilePictureURL: user.ProfilePictureURL, Upload: stored.upload}, nil
}

// UploadReportImages stores every file before recording any, so a rejected file leaves the report untouched.
func (s *fileService) UploadReportImages(ctx context.Context, actor Principal, reportID uint, files []*multipart.FileHeader) ([]dto.ReportImageResponse, error) {
	if len(files) == 0 {
		return nil, ErrUploadMissing
	}
	if len(files) > MaxImagesPerUpload {
		return nil, ErrTooManyFiles
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.ReportedBy != actor.UserID && !models.IsStaffRole(actor.Role) {
		return nil, ErrForbidden
	}

	folder := fmt.Sprintf("reports/%d", reportID)
	stored := make([]storedImage, 0, len(files))
	for _, file := range files {
		item, err := s.store(ctx, folder, file, "report_image")
		if err != nil {
			return nil, err
		}
		stored = append(stored, item)
	}

	existing, err := s.reports.CountImages(ctx, reportID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ReportImageResponse, 0, len(stored))
	for i, item := range stored {
		image := models.ReportImage{
			DisasterReportID: reportID,
			ImageURL:         item.upload.URL,
			ThumbnailURL:     item.upload.ThumbnailURL,
			FileSize:         item.size,
			MimeType:         item.upload.MimeType,
			IsPrimary:        existing == 0 && i == 0,
			UploadedBy:       actor.UserID,
		}
		if err := s.reports.AddImage(ctx, &image); err != nil {
			return nil, err
		}
		out = append(out, dto.NewReportImageResponse(image))
	}

	s.logger.Info().Uint("report_id", reportID).Int("images", len(out)).Msg("report images uploaded")
	return out, nil
}

func (s *fileService) DeleteReportImage(ctx context.Context, actor Principal, reportID, imageID uint) error {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if report.ReportedBy != actor.UserID && !models.IsStaffRole(actor.Role) {
		return ErrForbidden
	}
	return s.reports.DeleteImage(ctx, reportID, imageID)
}

func (s *fileService) store(ctx context.Context, folder string, file *multipart.FileHeader, kind string) (storedImage, error) {
	ctx, span := s.tracer.Start(ctx, "files.store")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize), attribute.String("upload.kind", kind))

	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return storedImage{}, ErrUploadMissing
	}

	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		observability.Uploads().WithLabelValues(kind, "too_large").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return storedImage{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return storedImage{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return storedImage{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.Uploads().WithLabelValues(kind, "too_large").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return storedImage{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	span.SetAttributes(attribute.String("upload.detected_mime", detected))
	if _, ok := allowedImageTypes[detected]; !ok {
		observability.Uploads().WithLabelValues(kind, "rejected_type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return storedImage{}, ErrUploadTypeNotAllowed
	}

	checksum := sha256.Sum256(buf.Bytes())
	name := sanitizeFileName(file.Filename)

	url, err := s.storage.Upload(ctx, folder, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()), detected)
	if err != nil {
		observability.Uploads().WithLabelValues(kind, "storage_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return storedImage{}, err
	}

	observability.Uploads().WithLabelValues(kind, "stored").Inc()
	span.SetStatus(codes.Ok, "stored")

	return storedImage{
		upload: dto.UploadResponse{
			URL:          url,
			ThumbnailURL: s.storage.ThumbnailURL(url),
			SizeBytes:    int64(buf.Len()),
			MimeType:     detected,
			Checksum:     hex.EncodeToString(checksum[:]),
			FileName:     name,
		},
		size: int64(buf.Len()),
	}, nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

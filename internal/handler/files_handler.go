package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

// FilesHandler accepts avatar and report image uploads.
type FilesHandler struct {
	service service.FileService
	logger  zerolog.Logger
}

// NewFilesHandler constructs the handler.
func NewFilesHandler(service service.FileService, logger zerolog.Logger) *FilesHandler {
	return &FilesHandler{
		service: service,
		logger:  logger.With().Str("component", "files_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *FilesHandler) Register(router fiber.Router) {
	router.Post("/avatar", h.uploadAvatar)
	router.Post("/reports/:id/images", h.uploadReportImages)
	router.Delete("/reports/:id/images/:imageId", h.deleteReportImage)
}

func (h *FilesHandler) uploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		return respondError(c, h.logger, service.ErrUploadMissing, "avatar is required")
	}

	result, err := h.service.UploadAvatar(c.UserContext(), principalFromContext(c).UserID, file)
	if err != nil {
		return respondError(c, h.logger, err, "upload failed")
	}
	return utils.SendSuccess(c, "avatar uploaded", result)
}

func (h *FilesHandler) uploadReportImages(c *fiber.Ctx) error {
	reportID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, h.logger, service.ErrUploadMissing, "images are required")
	}

	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["images[]"]
	}

	images, err := h.service.UploadReportImages(c.UserContext(), principalFromContext(c), reportID, files)
	if err != nil {
		return respondError(c, h.logger, err, "upload failed")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "images uploaded", images)
}

func (h *FilesHandler) deleteReportImage(c *fiber.Ctx) error {
	reportID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	imageID, err := parseIDParam(c, "imageId")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.DeleteReportImage(c.UserContext(), principalFromContext(c), reportID, imageID); err != nil {
		return respondError(c, h.logger, err, "failed to delete image")
	}
	return utils.SendSuccess(c, "image deleted", nil)
}

package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/astacala/rescue-api/internal/middleware"
	"github.com/astacala/rescue-api/internal/service"
	"github.com/astacala/rescue-api/internal/utils"
)

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

var (
	errBadPagination = errors.New("invalid pagination parameters")
	errBadFilter     = errors.New("invalid filter value")
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryBool(c *fiber.Ctx, key string) (*bool, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// pageParams reads page and per_page, clamping per_page to the listing maximum.
func pageParams(c *fiber.Ctx) (int, int, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return 0, 0, err
	}
	perPage, err := parseQueryInt(c, "per_page")
	if err != nil {
		return 0, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage, nil
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(parsed), nil
}

func principalFromContext(c *fiber.Ctx) service.Principal {
	principal, _ := middleware.CurrentPrincipal(c)
	return principal
}

// viewerFromContext returns nil for anonymous callers of public routes.
func viewerFromContext(c *fiber.Ctx) *service.Principal {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return nil
	}
	return &principal
}

func clientMeta(c *fiber.Ctx, deviceName string) service.ClientMeta {
	return service.ClientMeta{
		IP:         c.IP(),
		Platform:   middleware.GetPlatform(c),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
		DeviceName: deviceName,
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if requestID := middleware.GetRequestID(c); requestID != "" {
			logger = base.With().Str("request_id", requestID).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func invalidBody(c *fiber.Ctx) error {
	return badRequest(c, "invalid request body")
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.SendError(c, fiber.StatusBadRequest, utils.CodeBadRequest, message)
}

// respondError maps service errors onto the failure envelope.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.SendErrorWithDetails(c, fiber.StatusUnprocessableEntity, utils.CodeValidation, "the given data was invalid", utils.ValidationErrors(err))
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, utils.CodeNotFound, "resource not found")
	case errors.Is(err, service.ErrEmailTaken):
		return utils.SendErrorWithDetails(c, fiber.StatusConflict, utils.CodeConflict, err.Error(),
			map[string][]string{"email": {"The email has already been taken."}})
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, utils.CodeInvalidCredentials, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		return utils.SendError(c, fiber.StatusUnauthorized, utils.CodeInvalidToken, err.Error())
	case errors.Is(err, service.ErrAccountInactive):
		return utils.SendError(c, fiber.StatusForbidden, utils.CodeAccountInactive, err.Error())
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrChannelForbidden), errors.Is(err, service.ErrEditWindowClosed):
		return utils.SendError(c, fiber.StatusForbidden, utils.CodeForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidStatusTransition):
		return utils.SendError(c, fiber.StatusConflict, utils.CodeConflict, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, utils.CodeFileTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, utils.CodeUnsupportedFile, err.Error())
	case errors.Is(err, service.ErrInvalidParent), errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrUploadMissing), errors.Is(err, service.ErrTooManyFiles):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, utils.CodeValidation, err.Error())
	case errors.Is(err, service.ErrUnknownChannel):
		return badRequest(c, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, utils.CodeServerError, fallback)
	}
}

// ErrorHandler renders errors that escaped the handlers in the response envelope.
func ErrorHandler(debug bool, logger zerolog.Logger) fiber.ErrorHandler {
	errLogger := logger.With().Str("component", "error_handler").Logger()

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return utils.SendError(c, fiberErr.Code, "", fiberErr.Message)
		}

		requestLogger(errLogger, c).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		message := "internal server error"
		if debug {
			message = err.Error()
		}
		return utils.SendError(c, fiber.StatusInternalServerError, utils.CodeServerError, message)
	}
}

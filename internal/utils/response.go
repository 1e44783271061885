package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestIDKey is the fiber locals key holding the active request identifier.
const RequestIDKey = "request_id"

// Error codes returned in failure envelopes.
const (
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeForbidden          = "FORBIDDEN"
	CodeClientBlocked      = "CLIENT_BLOCKED"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeUnsupportedFile    = "UNSUPPORTED_FILE"
	CodeServerError        = "SERVER_ERROR"
)

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Data      interface{}            `json:"data"`
	ErrorCode string                 `json:"error_code,omitempty"`
	Errors    interface{}            `json:"errors,omitempty"`
	Meta      map[string]interface{} `json:"meta"`
}

// Pagination describes a paged listing.
type Pagination struct {
	Page     int   `json:"current_page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

// NewPagination computes the last page for the given totals.
func NewPagination(page, perPage int, total int64) Pagination {
	if perPage <= 0 {
		perPage = 1
	}
	if page <= 0 {
		page = 1
	}
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last == 0 {
		last = 1
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, LastPage: last}
}

// SendSuccess sends a successful JSON response with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    buildMeta(c, nil),
	})
}

// SendPaginated sends a success payload carrying pagination details in meta.
func SendPaginated(c *fiber.Ctx, message string, data interface{}, pagination Pagination) error {
	if message == "" {
		message = "success"
	}

	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta: buildMeta(c, map[string]interface{}{
			"pagination": pagination,
		}),
	})
}

// SendError sends an error JSON response with the given status code and error code.
func SendError(c *fiber.Ctx, status int, code, message string) error {
	return SendErrorWithDetails(c, status, code, message, nil)
}

// SendErrorWithDetails sends an error response that includes field level details.
func SendErrorWithDetails(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	if message == "" {
		message = "error"
	}
	if code == "" {
		code = codeForStatus(status)
	}

	return c.Status(status).JSON(APIResponse{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Errors:    details,
		Meta:      buildMeta(c, nil),
	})
}

func buildMeta(c *fiber.Ctx, extra map[string]interface{}) map[string]interface{} {
	meta := map[string]interface{}{
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID(c),
	}
	for key, value := range extra {
		meta[key] = value
	}
	return meta
}

func requestID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(RequestIDKey).(string); ok {
		return id
	}
	return c.Get("X-Request-ID")
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return CodeAuthRequired
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusConflict:
		return CodeConflict
	case fiber.StatusUnprocessableEntity:
		return CodeValidation
	case fiber.StatusTooManyRequests:
		return CodeRateLimitExceeded
	case fiber.StatusRequestEntityTooLarge:
		return CodeFileTooLarge
	case fiber.StatusBadRequest:
		return CodeBadRequest
	default:
		return CodeServerError
	}
}

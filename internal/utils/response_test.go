package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/astacala/rescue-api/internal/utils"
)

func TestSendSuccessIncludesMeta(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals(utils.RequestIDKey, "req-1")
		return utils.SendSuccess(c, "", map[string]string{"hello": "world"})
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Data    map[string]string      `json:"data"`
		Meta    map[string]interface{} `json:"meta"`
	}
	decode(t, resp, &payload)

	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, "world", payload.Data["hello"])
	require.Equal(t, "req-1", payload.Meta["request_id"])
	require.NotEmpty(t, payload.Meta["timestamp"])
}

func TestSendErrorIncludesCodeAndDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		details := map[string][]string{"email": {"The email field is required."}}
		return utils.SendErrorWithDetails(c, fiber.StatusUnprocessableEntity, "", "validation failed", details)
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var payload struct {
		Success   bool                   `json:"success"`
		ErrorCode string                 `json:"error_code"`
		Errors    map[string][]string    `json:"errors"`
		Data      map[string]interface{} `json:"data"`
	}
	decode(t, resp, &payload)

	require.False(t, payload.Success)
	require.Equal(t, utils.CodeValidation, payload.ErrorCode)
	require.Equal(t, []string{"The email field is required."}, payload.Errors["email"])
	require.Nil(t, payload.Data)
}

func TestSendPaginatedAddsPagination(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendPaginated(c, "reports", []int{1, 2}, utils.NewPagination(2, 2, 5))
	})

	resp := performRequest(t, app, http.MethodGet, "/")

	var payload struct {
		Meta struct {
			Pagination utils.Pagination `json:"pagination"`
		} `json:"meta"`
	}
	decode(t, resp, &payload)

	require.Equal(t, 2, payload.Meta.Pagination.Page)
	require.Equal(t, 3, payload.Meta.Pagination.LastPage)
	require.Equal(t, int64(5), payload.Meta.Pagination.Total)
}

func TestValidationErrorsUsesJSONNames(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"required"`
	}

	err := utils.NewValidator().Struct(payload{Email: "nope"})
	fields := utils.ValidationErrors(err)
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "name")
	require.Nil(t, utils.ValidationErrors(nil))
}

func performRequest(t *testing.T, app *fiber.App, method, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

package handler_test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/astacala/rescue-api/internal/dto"
	"github.com/astacala/rescue-api/internal/handler"
	"github.com/astacala/rescue-api/internal/models"
)

func newForumApp(stack testStack, user models.User) *fiber.App {
	app := fiber.New()
	handler.NewForumHandler(stack.forum, zerolog.Nop()).Register(app.Group("/api/v1/forum", asUser(user)))
	return app
}

func TestForumHandlerThread(t *testing.T) {
	stack := newTestStack(t)
	reporter := createUser(t, stack.db, "relawan@example.com", models.RoleVolunteer)
	coordinator := createUser(t, stack.db, "koordinator@example.com", models.RoleCoordinator)
	reportID := createReport(t, stack, reporter, "Banjir di kampung nelayan")
	thread := "/api/v1/forum/reports/" + strconv.FormatUint(uint64(reportID), 10) + "/messages"

	resp, err := newForumApp(stack, coordinator).Test(jsonRequest(http.MethodPost, thread, map[string]interface{}{
		"message":        "Tim logistik berangkat pukul 10.00",
		"priority_level": "high",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var root dto.ForumMessageResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &root))
	require.Equal(t, "HIGH", root.PriorityLevel)

	resp, err = newForumApp(stack, reporter).Test(jsonRequest(http.MethodPost, thread, map[string]interface{}{
		"message":           "Siap, kami tunggu di posko",
		"parent_message_id": root.ID,
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = newForumApp(stack, reporter).Test(jsonRequest(http.MethodGet, thread, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var messages []dto.ForumMessageResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &messages))
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Replies, 1)

	messagePath := "/api/v1/forum/messages/" + strconv.FormatUint(uint64(root.ID), 10)
	resp, err = newForumApp(stack, reporter).Test(jsonRequest(http.MethodPut, messagePath, map[string]string{"message": "diubah"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = newForumApp(stack, coordinator).Test(jsonRequest(http.MethodPut, messagePath, map[string]string{"message": "Tim logistik berangkat pukul 11.00"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var edited dto.ForumMessageResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &edited))
	require.NotNil(t, edited.EditedAt)

	resp, err = newForumApp(stack, reporter).Test(jsonRequest(http.MethodPost, "/api/v1/forum/reports/"+strconv.FormatUint(uint64(reportID), 10)+"/read", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForumHandlerRejectsForeignParent(t *testing.T) {
	stack := newTestStack(t)
	reporter := createUser(t, stack.db, "relawan@example.com", models.RoleVolunteer)
	first := createReport(t, stack, reporter, "Laporan pertama")
	second := createReport(t, stack, reporter, "Laporan kedua")
	app := newForumApp(stack, reporter)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/forum/reports/"+strconv.FormatUint(uint64(first), 10)+"/messages", map[string]string{"message": "Pesan awal"}))
	require.NoError(t, err)
	var root dto.ForumMessageResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &root))

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/forum/reports/"+strconv.FormatUint(uint64(second), 10)+"/messages", map[string]interface{}{
		"message":           "Balasan di thread lain",
		"parent_message_id": root.ID,
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/forum/reports/"+strconv.FormatUint(uint64(first), 10)+"/messages", map[string]string{"message": "<script></script>"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

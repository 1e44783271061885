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

func newGibranApp(stack testStack, user models.User) *fiber.App {
	app := fiber.New()
	h := handler.NewGibranHandler(stack.reports, stack.publications, stack.notifications, stack.dashboard, zerolog.Nop())
	h.Register(app.Group("/gibran", asUser(user)))
	return app
}

func TestGibranHandlerCreateAndListReports(t *testing.T) {
	stack := newTestStack(t)
	volunteer := createUser(t, stack.db, "relawan@example.com", models.RoleVolunteer)
	app := newGibranApp(stack, volunteer)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/gibran/pelaporans", map[string]interface{}{
		"judul":                         "Banjir di Dayeuhkolot",
		"nama_team_pelapor":             "Tim Bravo",
		"jumlah_personel":               8,
		"jumlah_korban":                 2,
		"jenis_bencana":                 "flood",
		"informasi_singkat_bencana":     "Ketinggian air mencapai satu meter di pemukiman",
		"lokasi_bencana":                "Dayeuhkolot, Bandung",
		"titik_kordinat_lokasi_bencana": "-6.9876, 107.6234",
		"skala_bencana":                 "tinggi",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	require.Equal(t, "pelaporan berhasil dibuat", body.Message)

	var created dto.LegacyReportResponse
	require.NoError(t, json.Unmarshal(body.Data, &created))
	require.Equal(t, "Banjir di Dayeuhkolot", created.Judul)
	require.Equal(t, models.DisasterFlood, created.JenisBencana)
	require.Equal(t, models.SeverityHigh, created.SkalaBencana)
	require.Equal(t, models.ReportStatusPending, created.StatusVerifikasi)
	require.Equal(t, "-6.9876,107.6234", created.TitikKordinatLokasiBencana)
	require.Equal(t, volunteer.ID, created.UserID)

	resp, err = app.Test(jsonRequest(http.MethodGet, "/gibran/pelaporans?skala_bencana=tinggi", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &raw))
	require.Len(t, raw, 1)
	require.Contains(t, raw[0], "nama_team_pelapor")
	require.Contains(t, raw[0], "status_verifikasi")
	require.NotContains(t, raw[0], "title")
}

func TestGibranHandlerRejectsMalformedCoordinates(t *testing.T) {
	stack := newTestStack(t)
	volunteer := createUser(t, stack.db, "relawan@example.com", models.RoleVolunteer)

	resp, err := newGibranApp(stack, volunteer).Test(jsonRequest(http.MethodPost, "/gibran/pelaporans", map[string]interface{}{
		"judul":                         "Longsor",
		"jenis_bencana":                 "LANDSLIDE",
		"informasi_singkat_bencana":     "Jalan desa tertutup material longsor",
		"titik_kordinat_lokasi_bencana": "di dekat sungai",
		"skala_bencana":                 "sedang",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	var fields map[string][]string
	require.NoError(t, json.Unmarshal(body.Errors, &fields))
	require.Contains(t, fields, "titik_kordinat_lokasi_bencana")
}

func TestGibranHandlerVerifyMapsLegacyStatus(t *testing.T) {
	stack := newTestStack(t)
	volunteer := createUser(t, stack.db, "relawan@example.com", models.RoleVolunteer)
	admin := createUser(t, stack.db, "admin@example.com", models.RoleAdmin)
	reportID := createReport(t, stack, volunteer, "Kebakaran pasar")
	target := "/gibran/pelaporans/" + strconv.FormatUint(uint64(reportID), 10) + "/verify"
	payload := map[string]string{"status_verifikasi": "DITERIMA", "catatan_verifikasi": "Sesuai temuan lapangan"}

	resp, err := newGibranApp(stack, volunteer).Test(jsonRequest(http.MethodPost, target, payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = newGibranApp(stack, admin).Test(jsonRequest(http.MethodPost, target, payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verified dto.LegacyReportResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &verified))
	require.Equal(t, models.ReportStatusVerified, verified.StatusVerifikasi)
	require.Equal(t, "Sesuai temuan lapangan", verified.CatatanVerifikasi)
	require.NotNil(t, verified.DiverifikasiPada)
}

func TestGibranHandlerTranslatesIndonesianValues(t *testing.T) {
	stack := newTestStack(t)
	volunteer := createUser(t, stack.db, "relawan@example.com", models.RoleVolunteer)
	admin := createUser(t, stack.db, "admin@example.com", models.RoleAdmin)
	volunteerApp := newGibranApp(stack, volunteer)
	adminApp := newGibranApp(stack, admin)

	submit := func(jenis string) dto.LegacyReportResponse {
		t.Helper()
		resp, err := volunteerApp.Test(jsonRequest(http.MethodPost, "/gibran/pelaporans", map[string]interface{}{
			"judul":                         jenis + " di Cianjur",
			"jenis_bencana":                 jenis,
			"informasi_singkat_bencana":     "Warga membutuhkan evakuasi segera",
			"titik_kordinat_lokasi_bencana": "-6.82,107.14",
			"skala_bencana":                 "sedang",
		}))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var created dto.LegacyReportResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &created))
		return created
	}

	flood := submit("Banjir")
	require.Equal(t, models.DisasterFlood, flood.JenisBencana)
	landslide := submit("Tanah  Longsor")
	require.Equal(t, models.DisasterLandslide, landslide.JenisBencana)
	quake := submit("gempa bumi")
	require.Equal(t, models.DisasterEarthquake, quake.JenisBencana)

	list := func(query string) []dto.LegacyReportResponse {
		t.Helper()
		resp, err := adminApp.Test(jsonRequest(http.MethodGet, "/gibran/pelaporans?"+query, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var items []dto.LegacyReportResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &items))
		return items
	}

	floods := list("jenis_bencana=banjir")
	require.Len(t, floods, 1)
	require.Equal(t, flood.ID, floods[0].ID)

	target := "/gibran/pelaporans/" + strconv.FormatUint(uint64(landslide.ID), 10) + "/verify"
	resp, err := adminApp.Test(jsonRequest(http.MethodPost, target, map[string]string{"status_verifikasi": "Ditolak"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rejected := list("status_verifikasi=ditolak")
	require.Len(t, rejected, 1)
	require.Equal(t, landslide.ID, rejected[0].ID)
	require.Equal(t, models.ReportStatusRejected, rejected[0].StatusVerifikasi)

	require.Len(t, list("status_verifikasi=menunggu"), 2)
	require.Empty(t, list("status_verifikasi=terverifikasi"))
}

func TestGibranHandlerStatisticsAndNotifications(t *testing.T) {
	stack := newTestStack(t)
	volunteer := createUser(t, stack.db, "relawan@example.com", models.RoleVolunteer)
	coordinator := createUser(t, stack.db, "koordinator@example.com", models.RoleCoordinator)
	createReport(t, stack, volunteer, "Angin puting beliung")
	app := newGibranApp(stack, coordinator)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/gibran/dashboard/statistics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats dto.LegacyStatisticsResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &stats))
	require.Equal(t, int64(1), stats.TotalPelaporan)
	require.Equal(t, int64(1), stats.PelaporanMenunggu)
	require.Len(t, stats.TujuhHariTerakhir, 7)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/gibran/notifikasi/send", map[string]interface{}{
		"judul":     "Apel siaga",
		"pesan":     "Apel siaga relawan pukul 07.00",
		"prioritas": "high",
		"peran":     []string{"volunteer"},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sent map[string]int
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &sent))
	require.Equal(t, 1, sent["penerima"])
}

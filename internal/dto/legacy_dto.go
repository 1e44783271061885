package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LegacyReportRequest is the report payload posted by the legacy web dashboard.
type LegacyReportRequest struct {
	Judul                      string     `json:"judul"`
	NamaTeamPelapor            string     `json:"nama_team_pelapor"`
	JumlahPersonel             int        `json:"jumlah_personel"`
	JumlahKorban               int        `json:"jumlah_korban"`
	JenisBencana               string     `json:"jenis_bencana"`
	InformasiSingkatBencana    string     `json:"informasi_singkat_bencana"`
	LokasiBencana              string     `json:"lokasi_bencana"`
	TitikKordinatLokasiBencana string     `json:"titik_kordinat_lokasi_bencana"`
	SkalaBencana               string     `json:"skala_bencana"`
	TanggalKejadian            *time.Time `json:"tanggal_kejadian"`
}

// LegacyReportResponse renders a report with the legacy field names.
type LegacyReportResponse struct {
	ID                         uint       `json:"id"`
	Judul                      string     `json:"judul"`
	NamaTeamPelapor            string     `json:"nama_team_pelapor"`
	JumlahPersonel             int        `json:"jumlah_personel"`
	JumlahKorban               int        `json:"jumlah_korban"`
	JenisBencana               string     `json:"jenis_bencana"`
	InformasiSingkatBencana    string     `json:"informasi_singkat_bencana"`
	LokasiBencana              string     `json:"lokasi_bencana"`
	TitikKordinatLokasiBencana string     `json:"titik_kordinat_lokasi_bencana"`
	SkalaBencana               string     `json:"skala_bencana"`
	StatusVerifikasi           string     `json:"status_verifikasi"`
	CatatanVerifikasi          string     `json:"catatan_verifikasi,omitempty"`
	FotoLokasiBencana          []string   `json:"foto_lokasi_bencana"`
	Pelapor                    string     `json:"pelapor,omitempty"`
	UserID                     uint       `json:"user_id"`
	TanggalKejadian            time.Time  `json:"tanggal_kejadian"`
	DiverifikasiPada           *time.Time `json:"diverifikasi_pada,omitempty"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
}

// LegacyVerifyRequest is the legacy verification payload.
type LegacyVerifyRequest struct {
	StatusVerifikasi  string `json:"status_verifikasi"`
	CatatanVerifikasi string `json:"catatan_verifikasi"`
}

// LegacyPublicationRequest creates a publication from the legacy dashboard.
type LegacyPublicationRequest struct {
	Judul    string `json:"judul"`
	Konten   string `json:"konten"`
	Kategori string `json:"kategori"`
}

// LegacyPublicationResponse renders a publication with the legacy field names.
type LegacyPublicationResponse struct {
	ID               uint       `json:"id"`
	Judul            string     `json:"judul"`
	Slug             string     `json:"slug"`
	Konten           string     `json:"konten"`
	Kategori         string     `json:"kategori,omitempty"`
	Status           string     `json:"status"`
	Penulis          string     `json:"penulis,omitempty"`
	TanggalPublikasi *time.Time `json:"tanggal_publikasi,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// LegacyNotificationRequest sends a notification from the legacy dashboard.
type LegacyNotificationRequest struct {
	Judul     string   `json:"judul"`
	Pesan     string   `json:"pesan"`
	Prioritas string   `json:"prioritas"`
	Peran     []string `json:"peran"`
}

// LegacyStatisticsResponse renders dashboard aggregates with the legacy field names.
type LegacyStatisticsResponse struct {
	TotalPelaporan         int64              `json:"total_pelaporan"`
	PelaporanMenunggu      int64              `json:"pelaporan_menunggu"`
	PelaporanTerverifikasi int64              `json:"pelaporan_terverifikasi"`
	PelaporanKritis        int64              `json:"pelaporan_kritis"`
	BerdasarkanStatus      map[string]int64   `json:"berdasarkan_status"`
	BerdasarkanSkala       map[string]int64   `json:"berdasarkan_skala"`
	BerdasarkanJenis       map[string]int64   `json:"berdasarkan_jenis"`
	TujuhHariTerakhir      []DailyReportPoint `json:"tujuh_hari_terakhir"`
	RelawanAktif           int64              `json:"relawan_aktif"`
	TotalPengguna          int64              `json:"total_pengguna"`
	PublikasiTerbit        int64              `json:"publikasi_terbit"`
	NotifikasiBelumDibaca  int64              `json:"notifikasi_belum_dibaca"`
	CacheHit               bool               `json:"cache_hit"`
}

var legacySeverity = map[string]string{
	"rendah": "LOW",
	"kecil":  "LOW",
	"sedang": "MEDIUM",
	"tinggi": "HIGH",
	"besar":  "HIGH",
	"kritis": "CRITICAL",
}

var legacyDisasterType = map[string]string{
	"banjir":               "FLOOD",
	"banjir bandang":       "FLOOD",
	"gempa":                "EARTHQUAKE",
	"gempa bumi":           "EARTHQUAKE",
	"kebakaran":            "FIRE",
	"kebakaran hutan":      "FIRE",
	"longsor":              "LANDSLIDE",
	"tanah longsor":        "LANDSLIDE",
	"tsunami":              "TSUNAMI",
	"gunung meletus":       "VOLCANO",
	"erupsi":               "VOLCANO",
	"erupsi gunung berapi": "VOLCANO",
	"angin puting beliung": "STORM",
	"puting beliung":       "STORM",
	"badai":                "STORM",
	"kekeringan":           "DROUGHT",
	"lainnya":              "OTHER",
}

var legacyStatus = map[string]string{
	"menunggu":      "PENDING",
	"pending":       "PENDING",
	"diterima":      "VERIFIED",
	"terverifikasi": "VERIFIED",
	"ditolak":       "REJECTED",
	"aktif":         "ACTIVE",
	"selesai":       "RESOLVED",
}

// ToReportCreateRequest maps the legacy payload onto the report create request.
// Unparseable coordinates are reported as an error.
func (r LegacyReportRequest) ToReportCreateRequest() (ReportCreateRequest, error) {
	lat, lng, err := ParseCoordinates(r.TitikKordinatLokasiBencana)
	if err != nil {
		return ReportCreateRequest{}, err
	}

	title := strings.TrimSpace(r.Judul)
	if title == "" {
		title = strings.TrimSpace(strings.Join([]string{r.JenisBencana, r.LokasiBencana}, " - "))
	}

	disasterType := LegacyDisasterType(r.JenisBencana)
	if disasterType == "" {
		disasterType = "OTHER"
	}

	return ReportCreateRequest{
		Title:             title,
		Description:       strings.TrimSpace(r.InformasiSingkatBencana),
		DisasterType:      disasterType,
		SeverityLevel:     LegacySeverity(r.SkalaBencana),
		Latitude:          lat,
		Longitude:         lng,
		LocationName:      strings.TrimSpace(r.LokasiBencana),
		IncidentTimestamp: r.TanggalKejadian,
		TeamName:          strings.TrimSpace(r.NamaTeamPelapor),
		PersonnelCount:    r.JumlahPersonel,
		CasualtyCount:     r.JumlahKorban,
	}, nil
}

// LegacySeverity translates Indonesian severity labels; unknown values pass through upper-cased.
func LegacySeverity(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if mapped, ok := legacySeverity[normalized]; ok {
		return mapped
	}
	return strings.ToUpper(normalized)
}

// LegacyDisasterType translates Indonesian disaster names; unknown values pass through upper-cased.
func LegacyDisasterType(value string) string {
	return translateLegacy(legacyDisasterType, value)
}

// LegacyStatus translates Indonesian verification states; unknown values pass through upper-cased.
func LegacyStatus(value string) string {
	return translateLegacy(legacyStatus, value)
}

func translateLegacy(table map[string]string, value string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(value)), " ")
	if mapped, ok := table[normalized]; ok {
		return mapped
	}
	return strings.ToUpper(normalized)
}

// ParseCoordinates parses "lat,lng".
func ParseCoordinates(value string) (float64, float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("coordinates must be formatted as \"lat,lng\"")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	return lat, lng, nil
}

// NewLegacyReportResponse renders a report for the legacy dashboard.
func NewLegacyReportResponse(report ReportResponse) LegacyReportResponse {
	photos := make([]string, 0, len(report.Images))
	for _, image := range report.Images {
		photos = append(photos, image.ImageURL)
	}

	reporter := ""
	if report.Reporter != nil {
		reporter = report.Reporter.Name
	}

	return LegacyReportResponse{
		ID:                         report.ID,
		Judul:                      report.Title,
		NamaTeamPelapor:            report.TeamName,
		JumlahPersonel:             report.PersonnelCount,
		JumlahKorban:               report.CasualtyCount,
		JenisBencana:               report.DisasterType,
		InformasiSingkatBencana:    report.Description,
		LokasiBencana:              report.LocationName,
		TitikKordinatLokasiBencana: strconv.FormatFloat(report.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(report.Longitude, 'f', -1, 64),
		SkalaBencana:               report.SeverityLevel,
		StatusVerifikasi:           report.Status,
		CatatanVerifikasi:          report.VerificationNotes,
		FotoLokasiBencana:          photos,
		Pelapor:                    reporter,
		UserID:                     report.ReportedBy,
		TanggalKejadian:            report.IncidentTimestamp,
		DiverifikasiPada:           report.VerifiedAt,
		CreatedAt:                  report.CreatedAt,
		UpdatedAt:                  report.UpdatedAt,
	}
}

// NewLegacyReportResponseSlice renders reports for the legacy dashboard.
func NewLegacyReportResponseSlice(reports []ReportResponse) []LegacyReportResponse {
	out := make([]LegacyReportResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, NewLegacyReportResponse(report))
	}
	return out
}

// NewLegacyPublicationResponse renders a publication for the legacy dashboard.
func NewLegacyPublicationResponse(publication PublicationResponse) LegacyPublicationResponse {
	author := ""
	if publication.Author != nil {
		author = publication.Author.Name
	}
	return LegacyPublicationResponse{
		ID:               publication.ID,
		Judul:            publication.Title,
		Slug:             publication.Slug,
		Konten:           publication.Content,
		Kategori:         publication.Category,
		Status:           publication.Status,
		Penulis:          author,
		TanggalPublikasi: publication.PublishedAt,
		CreatedAt:        publication.CreatedAt,
	}
}

// NewLegacyStatisticsResponse renders dashboard aggregates for the legacy dashboard.
func NewLegacyStatisticsResponse(stats DashboardStatisticsResponse) LegacyStatisticsResponse {
	return LegacyStatisticsResponse{
		TotalPelaporan:         stats.TotalReports,
		PelaporanMenunggu:      stats.PendingReports,
		PelaporanTerverifikasi: stats.VerifiedReports,
		PelaporanKritis:        stats.CriticalReports,
		BerdasarkanStatus:      stats.ByStatus,
		BerdasarkanSkala:       stats.BySeverity,
		BerdasarkanJenis:       stats.ByType,
		TujuhHariTerakhir:      stats.LastSevenDays,
		RelawanAktif:           stats.ActiveVolunteers,
		TotalPengguna:          stats.TotalUsers,
		PublikasiTerbit:        stats.PublishedArticles,
		NotifikasiBelumDibaca:  stats.UnreadNotifications,
		CacheHit:               stats.CacheHit,
	}
}

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	notificationsPublished *prometheus.CounterVec
	sseClientsActive       prometheus.Gauge
	realtimeConnections    prometheus.Gauge
	broadcastEventsTotal   *prometheus.CounterVec
	uploadsTotal           *prometheus.CounterVec
	securityEventsTotal    *prometheus.CounterVec
	rateLimitRejections    *prometheus.CounterVec
	dashboardCacheTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astacala_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status", "platform"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "astacala_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astacala_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astacala_notifications_published_total",
			Help: "Notifications delivered to subscribers, by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "astacala_sse_clients_active",
			Help: "Open notification streams.",
		})

		realtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "astacala_realtime_connections_active",
			Help: "Open websocket channel subscriptions.",
		})

		broadcastEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astacala_broadcast_events_total",
			Help: "Broadcast events emitted, by event name and origin.",
		}, []string{"event", "origin"})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astacala_uploads_total",
			Help: "File uploads, by kind and outcome.",
		}, []string{"kind", "outcome"})

		securityEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astacala_security_events_total",
			Help: "Suspicious client activity recorded, by kind.",
		}, []string{"kind"})

		rateLimitRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astacala_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter, by class and platform.",
		}, []string{"class", "platform"})

		dashboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astacala_dashboard_cache_total",
			Help: "Dashboard statistics cache lookups, by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			notificationsPublished,
			sseClientsActive,
			realtimeConnections,
			broadcastEventsTotal,
			uploadsTotal,
			securityEventsTotal,
			rateLimitRejections,
			dashboardCacheTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// NotificationsPublishedTotal counts notifications pushed to local subscribers.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// SSEClientsActive tracks open notification streams.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// RealtimeConnectionsActive tracks open websocket subscriptions.
func RealtimeConnectionsActive() prometheus.Gauge {
	RegisterMetrics()
	return realtimeConnections
}

// BroadcastEvents counts broadcast events.
func BroadcastEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return broadcastEventsTotal
}

// Uploads counts file uploads.
func Uploads() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsTotal
}

// SecurityEvents counts recorded suspicious activity.
func SecurityEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return securityEventsTotal
}

// RateLimitRejections counts 429 responses.
func RateLimitRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitRejections
}

// DashboardCache counts dashboard cache hits and misses.
func DashboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheTotal
}

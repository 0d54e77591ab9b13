package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts records added to notification stores by source (app|firebase) and type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smokefree_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"source", "type"},
	)

	// StorageFailures counts persisted-collection reads/writes that failed (op=load|save|delete).
	StorageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smokefree_notification_storage_failures_total",
			Help: "Total number of failed notification storage operations",
		},
		[]string{"op"},
	)

	// PushMessages counts push deliveries by path (foreground|background|dropped).
	PushMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smokefree_push_messages_total",
			Help: "Total number of push messages handled",
		},
		[]string{"path"},
	)

	// PermissionRequests counts permission gate requests by resulting state.
	PermissionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smokefree_permission_requests_total",
			Help: "Total number of notification permission requests",
		},
		[]string{"result"},
	)

	// DeviceRegistrations counts device token registrations (success|skipped|failure).
	DeviceRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smokefree_device_registrations_total",
			Help: "Total number of push device registrations",
		},
		[]string{"result"},
	)

	// MilestonesEmitted counts milestone notifications by milestone day.
	MilestonesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smokefree_milestones_emitted_total",
			Help: "Total number of milestone notifications emitted",
		},
		[]string{"days"},
	)

	// ActiveSessions tracks signed-in sessions holding a notification store.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smokefree_active_sessions",
			Help: "Number of active notification sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smokefree_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications inserted into the store",
		},
		[]string{"category", "priority"},
	)

	NotificationsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_read_total",
			Help: "Total number of notifications marked read",
		},
	)

	NotificationsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_deleted_total",
			Help: "Total number of notifications deleted or cleared",
		},
	)

	NotificationsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_evicted_total",
			Help: "Total number of notifications dropped by the retention ceiling or age cleanup",
		},
	)

	ListenerNotifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_listener_callbacks_total",
			Help: "Total number of listener callback invocations",
		},
	)

	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_attempts_total",
			Help: "Total number of outbound delivery attempts by channel and status",
		},
		[]string{"channel", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notification_store_operation_duration_seconds",
			Help: "Duration of notification store operations in seconds",
		},
		[]string{"operation"},
	)
)

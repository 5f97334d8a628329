// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngagementsTotal counts engagement writes by kind (post, like, unlike,
	// comment, follow, unfollow, delete) and outcome.
	EngagementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socially_engagements_total",
		Help: "Total number of engagement operations by kind and outcome",
	}, []string{"kind", "outcome"})

	// NotificationsCreated counts notifications committed alongside an engagement.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socially_notifications_created_total",
		Help: "Total number of notifications created by type",
	}, []string{"type"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socially_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// MediaUploads counts media uploads by backend and outcome.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socially_media_uploads_total",
		Help: "Total number of media uploads by backend and outcome",
	}, []string{"backend", "outcome"})

	// ViewInvalidations counts cache keys dropped after writes.
	ViewInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socially_view_invalidations_total",
		Help: "Total number of cached view invalidations by outcome",
	}, []string{"outcome"})

	// WebSocketConnections is the gauge of active notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socially_websocket_connections",
		Help: "Number of active notification WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socially_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// Outcome labels shared by the counters above.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// OutcomeOf maps an error to an outcome label.
func OutcomeOf(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

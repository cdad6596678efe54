package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookEventsTotal,
		webhookDuration,
		reconcileErrorsTotal,
		unmappedPriceTotal,
		planCacheTotal,
		paddleRequestsTotal,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanela",
			Name:      "webhook_events_total",
			Help:      "Paddle webhook deliveries by event type and outcome.",
		},
		[]string{"event_type", "outcome"},
	)

	webhookDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scanela",
			Name:      "webhook_duration_seconds",
			Help:      "Time spent handling a Paddle webhook delivery.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	reconcileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanela",
			Name:      "reconcile_errors_total",
			Help:      "Failed subscription writes by reconciler step.",
		},
		[]string{"step"},
	)

	unmappedPriceTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanela",
			Name:      "unmapped_price_total",
			Help:      "Subscription events whose price id matched no configured plan.",
		},
	)

	planCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanela",
			Name:      "plan_cache_total",
			Help:      "Plan cache lookups by result (hit/miss).",
		},
		[]string{"result"},
	)

	paddleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanela",
			Name:      "paddle_api_requests_total",
			Help:      "Outbound Paddle API calls by operation and status.",
		},
		[]string{"op", "status"},
	)
)

func IncWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(eventType), norm(outcome)).Inc()
}

func ObserveWebhookDuration(d time.Duration) {
	webhookDuration.Observe(d.Seconds())
}

func IncReconcileError(step string) {
	reconcileErrorsTotal.WithLabelValues(norm(step)).Inc()
}

func IncUnmappedPrice() {
	unmappedPriceTotal.Inc()
}

func IncPlanCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	planCacheTotal.WithLabelValues(result).Inc()
}

func IncPaddleRequest(op, status string) {
	paddleRequestsTotal.WithLabelValues(norm(op), norm(status)).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubideas_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hubideas_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hubideas_http_requests_in_flight",
			Help: "HTTP requests being served, including open chat streams.",
		},
	)

	AITokensRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hubideas_ai_tokens_recorded_total",
			Help: "Total provider-reported AI tokens recorded against user quotas.",
		},
	)

	AIGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubideas_ai_generations_total",
			Help: "AI generation calls by feature and outcome.",
		},
		[]string{"feature", "status"},
	)

	QuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubideas_quota_rejections_total",
			Help: "AI requests refused by the usage governor.",
		},
		[]string{"reason"},
	)

	QuotaResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hubideas_quota_resets_total",
			Help: "Monthly quota rollovers performed.",
		},
	)

	ResurfacingPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubideas_resurfacing_passes_total",
			Help: "Resurfacing passes by outcome.",
		},
		[]string{"outcome"},
	)

	PushDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubideas_push_deliveries_total",
			Help: "Push notification deliveries by outcome.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		AITokensRecordedTotal,
		AIGenerationsTotal,
		QuotaRejectionsTotal,
		QuotaResetsTotal,
		ResurfacingPassesTotal,
		PushDeliveriesTotal,
	)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiktok_provider_requests_total",
			Help: "Calls made to the TikTok open API, by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tiktok_provider_request_duration_seconds",
			Help:    "Latency of TikTok open API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiktok_token_refreshes_total",
			Help: "Access token refresh attempts, by outcome",
		},
		[]string{"outcome"},
	)

	OAuthCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiktok_oauth_callbacks_total",
			Help: "Authorization callbacks, by outcome or error code",
		},
		[]string{"outcome"},
	)

	PublishOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiktok_publish_outcomes_total",
			Help: "Publish jobs reaching a terminal status",
		},
		[]string{"status"},
	)
)

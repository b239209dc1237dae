package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AutoResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_auto_responses_total",
		Help: "Auto-response requests, by outcome",
	}, []string{"outcome"})

	AutoResponseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_auto_response_duration_seconds",
		Help:    "Duration of auto-response stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	VideoPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_video_status_polls_total",
		Help: "Video status polls, by mapped status",
	}, []string{"status"})

	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_provider_requests_total",
		Help: "Requests to hosted providers, by provider and result",
	}, []string{"provider", "result"})

	InflightResponses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_inflight_auto_responses",
		Help: "Auto-responses currently holding a dedup lease",
	})
)

// ObserveProvider records one hosted-provider call.
func ObserveProvider(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, result).Inc()
}

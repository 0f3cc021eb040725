package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_provider_calls_total",
			Help: "Total upstream provider API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridpulse_provider_latency_seconds",
			Help:    "Provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	Refreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_refreshes_total",
			Help: "Total refresh cycles by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridpulse_refresh_duration_seconds",
			Help:    "Wall time of one live snapshot assembly",
			Buckets: prometheus.DefBuckets,
		},
	)

	TicksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridpulse_ticks_dropped_total",
			Help: "Refresh ticks skipped because a fetch was still in flight",
		},
	)

	Live = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridpulse_live",
			Help: "1 when the most recent refresh succeeded",
		},
	)
)

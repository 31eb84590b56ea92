package sampler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sampling pass metrics
	passDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pbscache_pass_duration_seconds",
			Help:    "Time taken by a complete sampling pass",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	passTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pbscache_pass_total",
			Help: "Total number of sampling pass attempts",
		},
		[]string{"status"}, // success or error
	)

	passStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pbscache_pass_stage_duration_seconds",
			Help:    "Time taken by individual pass stages",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"stage"}, // fetch, aggregate, publish
	)

	passLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pbscache_pass_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successfully published pass",
		},
	)
)

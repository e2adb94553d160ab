package marketdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compinvest_fetch_total",
		Help: "Remote price fetches by source and outcome.",
	}, []string{"source", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "compinvest_fetch_duration_seconds",
		Help:    "Latency of remote price fetches.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	cacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compinvest_cache_total",
		Help: "Price cache lookups by layer and result.",
	}, []string{"layer", "result"})

	droppedBars = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compinvest_dropped_bars_total",
		Help: "Bars discarded for non-positive or missing closes.",
	})
)

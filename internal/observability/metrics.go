package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurotome_http_requests_total",
			Help: "HTTP requests processed, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neurotome_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neurotome_query_duration_seconds",
			Help:    "Graph query round trip, by query shape and outcome.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"shape", "outcome"},
	)

	QueryRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neurotome_query_rows",
			Help:    "Rows returned per graph query.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"shape"},
	)

	NormalizeDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurotome_normalize_dropped_total",
			Help: "Records dropped while normalizing, by reason.",
		},
		[]string{"reason"},
	)

	StaleResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neurotome_stale_responses_total",
		Help: "Query results discarded because a newer filter state was applied.",
	})

	LayoutFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neurotome_layout_frames_total",
		Help: "Layout frames published to clients.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "neurotome_sessions_active",
		Help: "Explorer sessions currently held in memory.",
	})

	FacetRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurotome_facet_refresh_total",
			Help: "Facet catalog fetches, by facet and source (db, cache, static).",
		},
		[]string{"facet", "source"},
	)
)

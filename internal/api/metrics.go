package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repertoire_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	requestsInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repertoire_http_requests_inflight",
		Help: "HTTP requests currently being served.",
	})

	recommendedGroups = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "repertoire_recommended_groups",
		Help:    "Position groups returned per recommended-lines request.",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	})
)

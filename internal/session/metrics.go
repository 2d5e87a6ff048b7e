package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repertoire_session_cache_lookups_total",
		Help: "Recommended-set cache lookups by backend and result.",
	}, []string{"backend", "result"})

	cacheMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repertoire_session_cache_marks_total",
		Help: "Moves marked played in cached recommended sets.",
	}, []string{"backend"})

	cacheExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repertoire_session_cache_exhausted_total",
		Help: "Sessions whose recommended set was pruned to nothing.",
	}, []string{"backend"})
)

func recordLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(backend, result).Inc()
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Client metrics
	ClientFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordshelf_client_fetch_total",
			Help: "Collection fetches by resource and result (ok, error, cache, skipped)",
		},
		[]string{"resource", "result"},
	)

	ClientMutationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordshelf_client_mutation_total",
			Help: "Optimistic mutations by resource and outcome (ok, rollback)",
		},
		[]string{"resource", "result"},
	)

	UpgradeNotificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wordshelf_client_upgrade_notifications_total",
			Help: "Upgrade-required notifications delivered to subscribers",
		},
	)

	// HTTP metrics (API server)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordshelf_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)
)
